package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/yfscreener/filter"
)

// availableCmd represents the available command
var availableCmd = &cobra.Command{
	Use:               "available <sector|industry|region>",
	Short:             "List reference values for a categorical filter",
	Args:              cobra.ExactArgs(1),
	ValidArgs:         []string{"sector", "industry", "region"},
	PersistentPreRunE: skipInit,
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := filter.Available(args[0])
		if err != nil {
			return err
		}
		for _, v := range values {
			fmt.Println(v)
		}
		return nil
	},
}
