// ABOUTME: list command rendering settings as a table
// ABOUTME: Optional --scope filter; null values, empty scopes and long descriptions are abbreviated

package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/2389/coven-settings/internal/settings"
)

const maxDescription = 50

func newListCmd(a *app) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				list []*settings.Setting
				err  error
			)
			if scope != "" {
				list, err = a.registry.ByScope(cmd.Context(), scope)
			} else {
				list, err = a.registry.All(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No settings found.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Key", "Value", "Type", "Scope", "Editable", "Description"})
			for _, s := range list {
				t.AppendRow(table.Row{
					s.Key,
					displayValue(s),
					string(s.Type),
					orDash(s.Scope),
					yesNo(s.Editable),
					truncate(orDash(s.Description), maxDescription),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "only list settings with this scope")
	return cmd
}

func displayValue(s *settings.Setting) string {
	if s.Value == nil {
		return "null"
	}
	t, err := settings.ParseType(string(s.Type))
	if err != nil {
		return fmt.Sprint(s.Value)
	}
	return t.Format(s.Value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
