// ABOUTME: set command creating or updating a setting from command-line text
// ABOUTME: Casts the value to the declared type; existing keys are validated against their rules

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-settings/internal/settings"
)

func newSetCmd(a *app) *cobra.Command {
	var (
		typ         string
		scope       string
		rules       string
		description string
	)

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Create or update a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key, raw := args[0], args[1]

			t, err := settings.ParseType(typ)
			if err != nil {
				return err
			}

			exists, err := a.registry.Has(ctx, key)
			if err != nil {
				return err
			}

			// Existing keys keep their declared type
			if exists {
				current, err := a.registry.Get(ctx, key)
				if err != nil {
					return err
				}
				stored, err := settings.ParseType(string(current.Type))
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("type") && stored != t {
					return &settings.ConfigurationError{
						Key:    key,
						Reason: fmt.Sprintf("declared as %s, got %s", current.Type, typ),
						Err:    settings.ErrTypeChange,
					}
				}
				t = stored
			}

			value, err := t.Cast(raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if exists {
				if err := a.registry.SetValue(ctx, key, value, true); err != nil {
					return err
				}
				fmt.Fprintln(out, color.GreenString("Setting '%s' updated successfully.", key))
				return nil
			}

			err = a.registry.Set(ctx, key, value, settings.Attributes{
				Type:        typ,
				Scope:       scope,
				Rules:       rules,
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, color.GreenString("Setting '%s' created successfully.", key))
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", string(settings.TypeString), "type: string, integer, boolean, array, regex")
	cmd.Flags().StringVar(&scope, "scope", "", "scope tag")
	cmd.Flags().StringVar(&rules, "rules", "", `validation rules, e.g. "nullable|min:1"`)
	cmd.Flags().StringVar(&description, "description", "", "description")
	return cmd
}
