package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/xkilldash9x/chatscribe/internal/browser"
	"github.com/xkilldash9x/chatscribe/internal/clipboard"
	"github.com/xkilldash9x/chatscribe/internal/config"
	"github.com/xkilldash9x/chatscribe/internal/extract"
	"github.com/xkilldash9x/chatscribe/internal/notify"
	"github.com/xkilldash9x/chatscribe/internal/prompt"
)

const shutdownTimeout = 10 * time.Second

// chatTab is an open chat tab with the page helpers installed.
type chatTab struct {
	manager *browser.Manager
	session *browser.Session
	page    *browser.Page
	profile config.ProfileConfig
	logger  *zap.Logger
}

// openChat connects to the browser and returns the chat tab. url overrides
// browser.start_url when set.
func openChat(ctx context.Context, a *app, url string) (*chatTab, error) {
	profile, err := a.cfg.ActiveProfile()
	if err != nil {
		return nil, err
	}
	startURL := a.cfg.Browser.StartURL
	if url != "" {
		startURL = url
	}

	mgr, err := browser.NewManager(ctx, a.cfg.Browser, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	tab := &chatTab{manager: mgr, profile: profile, logger: a.logger}

	tab.session, err = mgr.OpenChat(ctx, a.cfg.Browser.TargetMatch, startURL)
	if err != nil {
		tab.Close()
		return nil, fmt.Errorf("failed to open chat tab: %w", err)
	}

	tab.page = browser.NewPage(tab.session, profile, a.cfg.Browser.ScriptWait, a.logger)
	if err := tab.page.Install(ctx); err != nil {
		tab.Close()
		return nil, err
	}
	return tab, nil
}

// Close releases the tab and the browser connection.
func (t *chatTab) Close() {
	if t.session != nil {
		_ = t.session.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := t.manager.Shutdown(ctx); err != nil {
		t.logger.Warn("Browser shutdown failed.", zap.Error(err))
	}
}

// newExtractor wires the sequencer to the tab, the clipboard chain and the
// notifiers configured for output.
func newExtractor(a *app, tab *chatTab, labels prompt.Source, out io.Writer) (*extract.Extractor, error) {
	chain, err := clipboard.Build(a.logger, a.cfg.Output.ClipboardMethods, tab.page)
	if err != nil {
		return nil, err
	}

	notifiers := notify.Multi{notify.NewTerminal(out)}
	if a.cfg.Output.PageNotices {
		notifiers = append(notifiers, notify.NewPage(tab.page))
	}

	return extract.New(tab.page, chain, labels, notifiers, extract.Options{
		Timing: tab.profile.Timing,
		Labels: extract.Labels{
			Assistant: a.cfg.Extract.AssistantLabel,
			User:      a.cfg.Extract.UserLabel,
			Unknown:   a.cfg.Extract.UnknownLabel,
		},
		DumpOnFailure: a.cfg.Output.DumpOnFailure,
	}, a.logger), nil
}

// labelSource picks how the assistant name is obtained: a fixed name, an
// interactive prompt, or none.
func labelSource(a *app, fixed string, in io.Reader, out io.Writer) prompt.Source {
	return prompt.Choose(fixed, a.cfg.Extract.Prompt, stdinIsTerminal(in), in, out)
}

func stdinIsTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
