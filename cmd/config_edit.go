package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/brogergvhs/bookharvest/internal/config"

	"github.com/spf13/cobra"
)

var configEditCmd = &cobra.Command{
	Use:   "edit [label]",
	Short: "Open a harvest profile in $EDITOR and check it afterwards",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := ""
		if len(args) == 1 {
			label = args[0]
		} else {
			active, err := config.CurrentLabel()
			if err != nil {
				return fmt.Errorf("%w; name the profile to edit", err)
			}
			label = active
		}

		path, err := config.ConfigPathByLabel(label)
		if err != nil {
			return err
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		ed := exec.CommandContext(cmd.Context(), editor, path)
		ed.Stdin, ed.Stdout, ed.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := ed.Run(); err != nil {
			return fmt.Errorf("%s: %w", editor, err)
		}

		cfg, err := config.LoadFile(path)
		if err != nil {
			fmt.Printf("warning: %s no longer parses: %v\n", path, err)
			return nil
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("warning: profile %q: %v\n", label, err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
