package cmd

import (
	"fmt"
	"strings"

	"github.com/brogergvhs/bookharvest/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var flagAddFrom string

var configAddCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Create a new config profile, from defaults or from an existing YAML file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string
		if len(args) == 1 {
			label = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Label for new config",
				Validate: func(in string) error {
					if strings.TrimSpace(in) == "" {
						return fmt.Errorf("label cannot be empty")
					}
					return nil
				},
			}
			in, err := prompt.Run()
			if err != nil {
				return fmt.Errorf("cancelled")
			}
			label = strings.TrimSpace(in)
		}

		if flagAddFrom != "" {
			if err := config.AddConfig(label, flagAddFrom); err != nil {
				return err
			}
			fmt.Printf("Imported %s as config %q\n", flagAddFrom, label)
			return nil
		}

		path, err := config.CreateEmptyConfig(label)
		if err != nil {
			return err
		}

		fmt.Printf("Created new config: %s\n", path)
		return nil
	},
}

func init() {
	configAddCmd.Flags().StringVar(&flagAddFrom, "from", "", "copy settings from this YAML file")
	configCmd.AddCommand(configAddCmd)
}
