package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/chatscribe/internal/extract"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		url      string
		aiName   string
		noPrompt bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extracts every visible message of the chat tab and copies the transcript to the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if noPrompt {
				a.cfg.Extract.Prompt = false
			}

			tab, err := openChat(ctx, a, url)
			if err != nil {
				return err
			}
			defer tab.Close()

			labels := labelSource(a, aiName, cmd.InOrStdin(), cmd.ErrOrStderr())
			ex, err := newExtractor(a, tab, labels, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			rep, err := ex.Run(ctx)
			if err != nil {
				if errors.Is(err, extract.ErrNoMessages) {
					a.logger.Warn("Check the message selector of the active profile.", zap.String("profile", a.cfg.Extract.Profile))
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d/%d messages (run %s)", rep.Extracted, rep.Total, rep.RunID)
			if rep.ClipboardMethod != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ", copied via %s", rep.ClipboardMethod)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "chat URL to open when no tab matches browser.target_match")
	cmd.Flags().StringVar(&aiName, "ai-name", "", "assistant character name; skips the prompt")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "never ask for the assistant name")
	return cmd
}

