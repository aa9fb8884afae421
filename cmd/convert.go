package cmd

import (
	"fmt"
	"time"

	"github.com/brogergvhs/bookharvest/internal/config"
	"github.com/brogergvhs/bookharvest/internal/pdfconv"
	"github.com/brogergvhs/bookharvest/internal/ui"
	"github.com/brogergvhs/bookharvest/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagConvertOutput   string
	flagConvertMaxPages int
	flagConvertMaxChars int
)

func init() {
	convertCmd := &cobra.Command{
		Use:   "convert <file.pdf>",
		Short: "Convert a PDF into a book file",
		Args:  cobra.ExactArgs(1),
		RunE:  runConvert,
	}

	convertCmd.Flags().StringVar(&flagConvertOutput, "output", "", "folder for the book file")
	convertCmd.Flags().IntVar(&flagConvertMaxPages, "max-pages", pdfconv.DefaultMaxPages, "PDF pages to read at most")
	convertCmd.Flags().IntVar(&flagConvertMaxChars, "max-chars-per-page", pdfconv.DefaultMaxCharsPerPage, "page size of the output book in characters")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(_ *cobra.Command, args []string) error {
	cfg, _, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		Output:       flagConvertOutput,
	})
	if err != nil {
		return err
	}
	log := ui.NewLogger(cfg.Debug)

	src, err := pdfconv.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	conv := pdfconv.New(log)
	conv.MaxPages = max(flagConvertMaxPages, 1)
	conv.MaxCharsPerPage = max(flagConvertMaxChars, 1)

	res, err := conv.Convert(src, args[0])
	if err != nil {
		return err
	}

	path, err := conv.Save(cfg.Output, res.Document)
	if err != nil {
		return err
	}

	st := res.Stats
	doc := res.Document
	fmt.Println()
	fmt.Println("Conversion Summary:")
	fmt.Printf("Title:       %s\n", doc.Title)
	fmt.Printf("Author:      %s\n", doc.Author)
	fmt.Printf("ID:          %s\n", doc.ID)
	fmt.Printf("Time:        %s\n", st.FinishedAt.Sub(st.StartedAt).Round(time.Millisecond))
	fmt.Printf("PDF pages:   %d (%d used, %d skipped)\n", st.TotalPages, st.ProcessedPages, st.SkippedPages)
	fmt.Printf("Chapters:    %d\n", st.Chapters)
	fmt.Printf("Book pages:  %d\n", doc.TotalPages)
	fmt.Printf("Characters:  %d (%d words)\n", st.TotalChars, st.TotalWords)
	if st.Chapters > 0 {
		fmt.Printf("Per chapter: %d chars, %d words\n", st.TotalChars/st.Chapters, st.TotalWords/st.Chapters)
	}
	fmt.Printf("\nSaved to %s (%s)\n", path, util.Human(util.FileSize(path)))
	return nil
}
