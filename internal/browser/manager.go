// Package browser owns the Chrome instance and the chat tab. It launches or
// attaches to Chrome over the DevTools Protocol, exposes Go bindings and
// persistent scripts to the page, and implements the DOM surface the
// extraction sequencer drives.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/chatscribe/internal/config"
)

const defaultLaunchTimeout = 30 * time.Second

// Manager handles the lifecycle of the browser connection: a locally launched
// Chrome or a remote one reached through its debugger endpoint.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx owns the browser process (or the remote connection).
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// browserCtx is the first chromedp context; tabs are derived from it.
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// wg tracks open sessions for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager starts the allocator and connects to the browser. With
// cfg.RemoteURL set it attaches to a running Chrome, otherwise it launches one.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}

	if cfg.RemoteURL != "" {
		m.logger.Info("Attaching to running browser.", zap.String("remote_url", cfg.RemoteURL))
		m.allocatorCtx, m.allocatorCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		opts, err := AllocatorOptions(cfg)
		if err != nil {
			return nil, err
		}
		m.logger.Info("Launching browser.", zap.Bool("headless", cfg.Headless))
		m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Debugf),
	)

	// Listing targets allocates the browser without opening a tab, which
	// matters when attaching to a user's running Chrome. chromedp ties the
	// process (or the websocket) to the context of this first call, so it
	// runs on browserCtx and only the wait is bounded.
	err := startOn(ctx, m.browserCtx, m.browserCancel, m.launchWait(), func(c context.Context) error {
		_, err := chromedp.Targets(c)
		return err
	})
	if err != nil {
		m.allocatorCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser is responsive.")
	return m, nil
}

func (m *Manager) launchWait() time.Duration {
	if m.cfg.LaunchWait <= 0 {
		return defaultLaunchTimeout
	}
	return m.cfg.LaunchWait
}

// startOn performs the first chromedp call on lifetime, the context whose
// end releases what that call sets up. The call itself is not cancelled by
// ctx or by the wait; on failure lifetime is cancelled and the call drained.
func startOn(ctx, lifetime context.Context, cancel context.CancelFunc, wait time.Duration, first func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- first(lifetime) }()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
		if err == nil {
			return nil
		}
		cancel()
		return err
	case <-timer.C:
		err = fmt.Errorf("no response within %s", wait)
	case <-ctx.Done():
		err = ctx.Err()
	}
	cancel()
	<-done
	return err
}

// AllocatorOptions assembles the options for a locally launched Chrome:
// chromedp's defaults overridden by AllocatorFlags.
func AllocatorOptions(cfg config.BrowserConfig) ([]chromedp.ExecAllocatorOption, error) {
	flags, err := AllocatorFlags(cfg)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}
	return opts, nil
}

// AllocatorFlags returns the command line flags layered over chromedp's
// defaults. A false value removes a default flag.
func AllocatorFlags(cfg config.BrowserConfig) (map[string]interface{}, error) {
	flags := map[string]interface{}{
		// The chat UI runs under a real user profile; hide the automation
		// banner and the navigator.webdriver hint.
		"enable-automation":      false,
		"disable-blink-features": "AutomationControlled",
		"headless":               cfg.Headless,
	}
	if !cfg.Headless {
		flags["hide-scrollbars"] = false
		flags["mute-audio"] = false
	}

	if cfg.UserDataDir != "" {
		dir, err := homedir.Expand(cfg.UserDataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to expand user_data_dir %q: %w", cfg.UserDataDir, err)
		}
		flags["user-data-dir"] = dir
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}

	if runtime.GOOS == "linux" && cfg.Headless {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
	}
	return flags, nil
}

// OpenChat returns a session on the chat tab: the first page target whose URL
// contains match, or else a new tab navigated to startURL. A tab that was
// already open is only detached from when the session closes; tabs opened
// here are closed.
func (m *Manager) OpenChat(ctx context.Context, match, startURL string) (*Session, error) {
	listCtx, cancelList := CombineContext(m.browserCtx, ctx)
	targets, err := chromedp.Targets(listCtx)
	cancelList()
	if err != nil {
		return nil, fmt.Errorf("failed to list browser targets: %w", err)
	}

	if t := pickTarget(targets, match); t != nil {
		m.logger.Info("Attaching to existing tab.", zap.String("url", t.URL), zap.String("title", t.Title))
		tabCtx, cancel := chromedp.NewContext(m.browserCtx, chromedp.WithTargetID(t.TargetID))
		if err := startOn(ctx, tabCtx, cancel, m.launchWait(), runNothing); err != nil {
			return nil, fmt.Errorf("failed to attach to tab %s: %w", t.TargetID, err)
		}
		detachOnly(tabCtx)
		return m.track(tabCtx, cancel, true), nil
	}

	if startURL == "" {
		return nil, fmt.Errorf("no tab matches %q and no start URL is configured", match)
	}
	tabCtx, cancel := chromedp.NewContext(m.browserCtx)
	if err := startOn(ctx, tabCtx, cancel, m.launchWait(), runNothing); err != nil {
		return nil, fmt.Errorf("failed to open a tab: %w", err)
	}
	s := m.track(tabCtx, cancel, false)
	if err := s.Navigate(ctx, startURL); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// runNothing attaches a tab context to its target.
func runNothing(ctx context.Context) error { return chromedp.Run(ctx) }

// detachOnly makes cancelling tabCtx leave the tab open. chromedp closes a
// tab on cancellation by its target ID and only detaches when the ID is
// empty; nothing else reads the ID once attached.
func detachOnly(tabCtx context.Context) {
	if c := chromedp.FromContext(tabCtx); c != nil && c.Target != nil {
		c.Target.TargetID = ""
	}
}

func (m *Manager) track(tabCtx context.Context, cancel context.CancelFunc, attached bool) *Session {
	m.wg.Add(1)
	s := NewSession(tabCtx, cancel, m.logger.Named("session"), m.wg.Done)
	s.attached = attached
	return s
}

// pickTarget returns the first page target whose URL contains match.
func pickTarget(targets []*target.Info, match string) *target.Info {
	if match == "" {
		return nil
	}
	for _, t := range targets {
		if t.Type == "page" && strings.Contains(t.URL, match) {
			return t
		}
	}
	return nil
}

// Shutdown waits for open sessions and then releases the browser. A launched
// Chrome is terminated; a remote one is only disconnected.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated.")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	m.browserCancel()
	m.allocatorCancel()
	<-m.allocatorCtx.Done()
	return nil
}
