package cmd

import (
	"fmt"

	"github.com/brogergvhs/bookharvest/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var forceRemove bool

var configRemoveCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Delete a harvest profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]
		active, _ := config.CurrentLabel()

		if label == active && !forceRemove {
			confirm := promptui.Prompt{
				Label:     fmt.Sprintf("Profile %q is in use. Delete it", label),
				IsConfirm: true,
			}
			if _, err := confirm.Run(); err != nil {
				fmt.Println("Kept.")
				return nil
			}
		}

		now, err := config.RemoveConfig(label)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted profile %q\n", label)

		if label == active {
			if now == "" {
				fmt.Println("No profile is active now; harvest runs on built-in defaults.")
			} else {
				fmt.Printf("Active profile: %s\n", now)
			}
		}
		return nil
	},
}

func init() {
	configRemoveCmd.Flags().BoolVar(&forceRemove, "force", false, "delete the active profile without asking")
	configCmd.AddCommand(configRemoveCmd)
}
