package cmd

import (
	"fmt"

	"github.com/brogergvhs/bookharvest/internal/config"

	"github.com/spf13/cobra"
)

var configRenameCmd = &cobra.Command{
	Use:   "rename <old_label> <new_label>",
	Short: "Rename a config profile; the active label follows the rename",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldLabel, newLabel := args[0], args[1]
		if oldLabel == newLabel {
			return nil
		}

		if err := config.RenameConfig(oldLabel, newLabel); err != nil {
			return err
		}

		path, err := config.ConfigPathByLabel(newLabel)
		if err != nil {
			return err
		}
		fmt.Printf("Renamed config %q to %q (%s)\n", oldLabel, newLabel, path)

		return nil
	},
}

func init() {
	configCmd.AddCommand(configRenameCmd)
}
