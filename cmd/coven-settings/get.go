// ABOUTME: get command printing one setting's value as text
// ABOUTME: Prints the --default value when the setting exists without a value

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	var def string

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a setting value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.registry.ValueAsString(cmd.Context(), args[0], def)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}

	cmd.Flags().StringVar(&def, "default", "", "printed when the setting has no value")
	return cmd
}
