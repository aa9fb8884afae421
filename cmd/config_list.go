package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/brogergvhs/bookharvest/internal/config"

	"github.com/spf13/cobra"
)

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every harvest profile and which one is active",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := config.ListConfigs()
		if err != nil {
			return fmt.Errorf("read profiles: %w", err)
		}
		if len(profiles) == 0 {
			fmt.Printf("No profiles in %s; `bookharvest config init` writes the first one.\n", config.ConfigsDir())
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "\tPROFILE\tFILE")
		for _, p := range profiles {
			mark := ""
			if p.Active {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", mark, p.Label, p.Path)
		}
		if err := w.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
}
