package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/brogergvhs/bookharvest/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the Default harvest profile and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		if path, err := config.ConfigPathByLabel(config.DefaultLabel); err == nil {
			if _, err := config.InitDefaultConfig(); err != nil && !errors.Is(err, os.ErrExist) {
				return err
			}
			fmt.Printf("Profile %s already exists at %s and is active.\n", config.DefaultLabel, path)
			fmt.Println("Run `bookharvest config reset` to restore its defaults.")
			return nil
		}

		fmt.Printf("Profiles live in %s\n\n", config.ConfigsDir())
		fmt.Println("Harvest defaults:")
		config.DefaultConfig().Print()
		fmt.Println()

		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("Write the %s profile", config.DefaultLabel),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			fmt.Println("Nothing written.")
			return nil
		}

		path, err := config.InitDefaultConfig()
		if err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("write profile: %w", err)
		}

		fmt.Printf("Wrote %s; it is now the active profile.\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
