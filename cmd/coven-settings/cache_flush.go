// ABOUTME: cache:flush command dropping the memoized settings aggregates
// ABOUTME: Clears both cache entries and the local snapshot mirror of the running process

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCacheFlushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cache:flush",
		Short: "Flush the settings cache of this process",
		Long: `Drop the cached settings snapshot and rule map.

The CLI keeps its cache in memory for the life of a single invocation, so this
does not reach caches held by other running processes.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.registry.FlushCache()
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Settings cache flushed successfully."))
			return nil
		},
	}
}
