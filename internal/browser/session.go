package browser

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one attached browser tab.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	onClose func()
	// attached is set for tabs that were open before the session.
	attached bool

	mu       sync.Mutex
	isClosed bool
}

// NewSession wraps a chromedp tab context. cancel releases the tab; onClose,
// when set, runs once after it.
func NewSession(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger, onClose func()) *Session {
	id := uuid.New().String()
	return &Session{
		id:      id,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With(zap.String("session_id", id)),
		onClose: onClose,
	}
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string { return s.id }

// Attached reports whether the session attached to a tab that was already
// open. Closing such a session leaves the tab in place.
func (s *Session) Attached() bool { return s.attached }

// Context returns the tab's lifetime context.
func (s *Session) Context() context.Context { return s.ctx }

// Done is closed when the tab goes away, either through Close or because the
// browser ended it.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Close releases the tab. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	if s.attached {
		s.logger.Debug("Detaching from browser tab.")
	} else {
		s.logger.Debug("Closing browser tab.")
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

// runActions executes chromedp actions bounded by both the session lifetime
// and ctx.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url in the tab and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating.", zap.String("url", url))
	if err := s.runActions(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// URL returns the tab's current location.
func (s *Session) URL(ctx context.Context) (string, error) {
	var u string
	if err := s.runActions(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

// ExposeFunction registers a runtime binding called name. Each call from the
// page delivers its single string argument to handler on a chromedp listener
// goroutine. handler must not block; panics are recovered and logged.
func (s *Session) ExposeFunction(ctx context.Context, name string, handler func(payload string)) error {
	if err := s.runActions(ctx, cdpruntime.AddBinding(name)); err != nil {
		return fmt.Errorf("failed to add binding '%s': %w", name, err)
	}

	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		called, ok := ev.(*cdpruntime.EventBindingCalled)
		if !ok || called.Name != name {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic during exposed function call.",
					zap.String("name", name),
					zap.Any("panic_reason", r),
					zap.String("stack", string(debug.Stack())))
			}
		}()
		handler(called.Payload)
	})
	return nil
}

// InjectScriptPersistently adds a script that runs on every new document in
// the tab.
func (s *Session) InjectScriptPersistently(ctx context.Context, script string) error {
	var scriptID page.ScriptIdentifier
	err := s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		scriptID, err = page.AddScriptToEvaluateOnNewDocument(script).Do(c)
		return err
	}))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("could not inject persistent script: %w", err)
	}
	s.logger.Debug("Injected persistent script.", zap.String("scriptID", string(scriptID)))
	return nil
}

// ExecuteScript evaluates script in the current document and unmarshals the
// result into res when res is non-nil. Promises are awaited.
func (s *Session) ExecuteScript(ctx context.Context, script string, res interface{}) error {
	return s.runActions(ctx, chromedp.Evaluate(script, res, awaitPromise))
}

func awaitPromise(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
