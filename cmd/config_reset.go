package cmd

import (
	"errors"
	"fmt"

	"github.com/brogergvhs/bookharvest/internal/config"

	"github.com/spf13/cobra"
)

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Overwrite the active profile with the harvest defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ActiveConfigPath()
		if errors.Is(err, config.ErrNoConfig) {
			return fmt.Errorf("%w; `bookharvest config init` creates one", err)
		}
		if err != nil {
			return err
		}

		def := config.DefaultConfig()
		if err := config.SaveYAML(def, path); err != nil {
			return err
		}

		fmt.Printf("%s now holds the defaults:\n", path)
		def.Print()
		return nil
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
}
