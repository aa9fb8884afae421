package cmd

import (
	"fmt"

	"github.com/brogergvhs/bookharvest/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configSwitchCmd = &cobra.Command{
	Use:   "switch [label]",
	Short: "Switch to a different configuration profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {

		var label string

		if len(args) == 1 {
			label = args[0]
		} else {
			list, err := config.ListConfigs()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return fmt.Errorf("no configs available")
			}

			items := make([]string, 0, len(list))
			cursor := 0
			for i, c := range list {
				item := c.Label
				if c.Active {
					item += "  (active)"
					cursor = i
				}
				items = append(items, item)
			}

			prompt := promptui.Select{
				Label:     "Select config profile",
				Items:     items,
				CursorPos: cursor,
			}

			idx, _, err := prompt.Run()
			if err != nil {
				return fmt.Errorf("selection cancelled")
			}

			label = list[idx].Label
		}

		if err := config.SwitchConfig(label); err != nil {
			return err
		}

		cfg, used, err := config.LoadMerged(config.Options{})
		if err != nil {
			return fmt.Errorf("switched to %s, but it does not load: %w", label, err)
		}

		fmt.Printf("Switched to: %s (%s)\n", label, used)
		cfg.Print()
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSwitchCmd)
}
