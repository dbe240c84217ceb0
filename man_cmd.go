package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generate the man page",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return fmt.Errorf("unable to build man page: %w", err)
		}
		page = page.WithSection("Files", "The call list is read from STORE_DIR/KEY.json, a JSON array of\n"+
			"{name, room, timestamp} records, newest first.")

		_, err = fmt.Fprint(cmd.OutOrStdout(), page.Build(roff.NewDocument()))
		return err //nolint:wrapcheck
	},
}
