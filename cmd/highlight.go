package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHighlightCmd(a *app) *cobra.Command {
	var (
		url string
		off bool
	)

	cmd := &cobra.Command{
		Use:   "highlight",
		Short: "Outlines every message the extractor would process",
		Long: `Outlines every visible message of the chat tab using the active profile's
message selector, so the selector can be checked before an extraction.
Use --off to remove the outline again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tab, err := openChat(ctx, a, url)
			if err != nil {
				return err
			}
			defer tab.Close()

			n, err := tab.page.SetHighlight(ctx, !off)
			if err != nil {
				return fmt.Errorf("failed to toggle highlighting: %w", err)
			}
			if off {
				fmt.Fprintln(cmd.OutOrStdout(), "Highlighting removed.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Highlighted %d messages.\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "chat URL to open when no tab matches browser.target_match")
	cmd.Flags().BoolVar(&off, "off", false, "remove the outline instead of adding it")
	return cmd
}
