// ABOUTME: remove command deleting a setting
// ABOUTME: Asks for confirmation on stdin unless --force is given

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRemoveCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]
			out := cmd.OutOrStdout()

			exists, err := a.registry.Has(ctx, key)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("setting '%s' does not exist", key)
			}

			if !force && !confirmAction(cmd.InOrStdin(), out,
				fmt.Sprintf("Are you sure you want to remove setting '%s'?", key)) {
				fmt.Fprintln(out, "Operation cancelled.")
				return nil
			}

			if err := a.registry.Remove(ctx, key); err != nil {
				return err
			}
			fmt.Fprintln(out, color.GreenString("Setting '%s' removed successfully.", key))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}

// confirmAction prompts for a yes/no answer, defaulting to no
func confirmAction(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)

	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
