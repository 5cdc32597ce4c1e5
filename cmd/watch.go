package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/chatscribe/internal/hotkey"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		url    string
		aiName string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keeps the chat tab open and reacts to in-page hotkeys",
		Long: `Installs the configured key combinations in the chat tab. One toggles the
message outline, the other runs a full extraction. Triggers pressed while an
action is running are ignored. Runs until interrupted or the tab is closed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tab, err := openChat(ctx, a, url)
			if err != nil {
				return err
			}
			defer tab.Close()

			// Hotkey runs never block on stdin; the name comes from the flag or
			// the configured label.
			if aiName == "" {
				a.cfg.Extract.Prompt = false
			}
			labels := labelSource(a, aiName, cmd.InOrStdin(), cmd.ErrOrStderr())
			ex, err := newExtractor(a, tab, labels, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			d := hotkey.NewDispatcher(tab.page, ex, a.logger)
			if err := hotkey.Install(ctx, tab.session, a.cfg.Hotkey, d.Submit, a.logger); err != nil {
				return err
			}

			where, err := tab.session.URL(ctx)
			if err != nil {
				where = tab.session.ID()
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s. Press %s to highlight, %s to extract. Ctrl+C to stop.\n",
				where, comboText(a.cfg.Hotkey.Modifiers, a.cfg.Hotkey.HighlightKey),
				comboText(a.cfg.Hotkey.Modifiers, a.cfg.Hotkey.ExtractKey))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return d.Serve(gctx) })
			g.Go(func() error {
				select {
				case <-tab.session.Done():
					a.logger.Info("Chat tab closed.")
					return errTabClosed
				case <-gctx.Done():
					return nil
				}
			})

			err = g.Wait()
			if d.HighlightOn() {
				clearCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				if _, herr := tab.page.SetHighlight(clearCtx, false); herr != nil {
					a.logger.Debug("Could not clear highlight.", zap.Error(herr))
				}
				cancel()
			}
			switch {
			case errors.Is(err, errTabClosed):
				return nil
			case errors.Is(err, context.Canceled) && ctx.Err() != nil:
				a.logger.Info("Stopped watching.", zap.Bool("highlight_on", d.HighlightOn()))
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "chat URL to open when no tab matches browser.target_match")
	cmd.Flags().StringVar(&aiName, "ai-name", "", "assistant character name used for every extraction")
	return cmd
}

var errTabClosed = errors.New("chat tab closed")

// comboText renders a key combination as "Ctrl+Alt+H".
func comboText(mods []string, key string) string {
	parts := make([]string, 0, len(mods)+1)
	for _, m := range append(append([]string{}, mods...), key) {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		parts = append(parts, strings.ToUpper(m[:1])+strings.ToLower(m[1:]))
	}
	return strings.Join(parts, "+")
}
