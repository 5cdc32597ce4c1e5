package hotkey

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/chatscribe/internal/extract"
)

// Highlighter toggles the message outline.
type Highlighter interface {
	SetHighlight(ctx context.Context, on bool) (int, error)
}

// Runner performs one extraction pass.
type Runner interface {
	Run(ctx context.Context) (*extract.Report, error)
}

const defaultQueueSize = 8

// Dispatcher serialises hotkey actions for one tab. It owns the highlight
// state of the page. Events that arrive while an action is running are
// dropped, so at most one edit UI is ever open.
type Dispatcher struct {
	highlighter Highlighter
	runner      Runner
	logger      *zap.Logger

	events chan Event

	// Owned by the Serve goroutine.
	highlightOn  bool
	lastFinished time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(h Highlighter, r Runner, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		highlighter: h,
		runner:      r,
		logger:      logger.Named("dispatcher"),
		events:      make(chan Event, defaultQueueSize),
	}
}

// Submit queues ev without blocking. It is safe to call from the binding
// listener goroutine.
func (d *Dispatcher) Submit(ev Event) {
	if ev.Received.IsZero() {
		ev.Received = time.Now()
	}
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("Hotkey queue full, dropping trigger.", zap.String("action", string(ev.Action)))
	}
}

// Serve handles queued events until ctx ends.
func (d *Dispatcher) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.events:
			if ev.Received.Before(d.lastFinished) {
				d.logger.Info("Dropping trigger received while busy.", zap.String("action", string(ev.Action)))
				continue
			}
			d.handle(ctx, ev)
			d.lastFinished = time.Now()
		}
	}
}

// HighlightOn reports the current highlight state. Only meaningful from the
// Serve goroutine or after Serve returned.
func (d *Dispatcher) HighlightOn() bool { return d.highlightOn }

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	switch ev.Action {
	case ActionHighlight:
		d.toggleHighlight(ctx)
	case ActionExtract:
		d.extract(ctx)
	default:
		d.logger.Warn("Unhandled hotkey action.", zap.String("action", string(ev.Action)))
	}
}

func (d *Dispatcher) toggleHighlight(ctx context.Context) {
	want := !d.highlightOn
	n, err := d.highlighter.SetHighlight(ctx, want)
	if err != nil {
		d.logger.Error("Highlight toggle failed.", zap.Error(err))
		return
	}
	d.highlightOn = want
	if want {
		d.logger.Info("Highlighted messages.", zap.Int("count", n))
	} else {
		d.logger.Info("Highlighting disabled.")
	}
}

func (d *Dispatcher) extract(ctx context.Context) {
	d.logger.Info("Starting extraction.")
	rep, err := d.runner.Run(ctx)
	switch {
	case errors.Is(err, extract.ErrNoMessages):
		d.logger.Warn("Nothing to extract on this page.")
	case err != nil:
		d.logger.Error("Extraction failed.", zap.Error(err))
	default:
		d.logger.Info("Extraction finished.",
			zap.String("run_id", rep.RunID),
			zap.Int("extracted", rep.Extracted),
			zap.Int("failed", rep.Failed),
			zap.String("clipboard", rep.ClipboardMethod))
	}
}
