package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brogergvhs/bookharvest/internal/checkpoint"
	"github.com/brogergvhs/bookharvest/internal/config"
	"github.com/brogergvhs/bookharvest/internal/journal"

	"github.com/spf13/cobra"
)

var (
	flagHistoryLimit int
	flagHistoryURL   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent harvest sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.Open(config.DataDir())
		if err != nil {
			return err
		}
		defer func() { _ = j.Close() }()

		host := ""
		if flagHistoryURL != "" {
			host = checkpoint.HostID(flagHistoryURL)
		}

		runs, err := j.Recent(cmd.Context(), host, flagHistoryLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No sessions recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "STARTED\tHOST\tMODE\tSTATUS\tREASON\tCHAPTERS\tNEW\tRECOVERIES\tTIME\tARTIFACT")
		for _, r := range runs {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.Host, r.Mode, r.Status, r.Reason,
				r.Chapters, r.NewChapters, r.Recoveries,
				r.Duration().Round(time.Second), r.Artifact)
		}
		if err := w.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "number of sessions to show")
	historyCmd.Flags().StringVar(&flagHistoryURL, "url", "", "only show sessions for this site")
	rootCmd.AddCommand(historyCmd)
}
