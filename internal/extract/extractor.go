// Package extract implements the message extraction sequencer. For each
// visible message it reproduces what a person would do to read the raw text:
// select the message, open its editor through the edit pencil, read the
// editor's textarea and cancel.
package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/chatscribe/internal/config"
	"github.com/xkilldash9x/chatscribe/internal/dom"
	"github.com/xkilldash9x/chatscribe/internal/notify"
	"github.com/xkilldash9x/chatscribe/internal/poll"
	"github.com/xkilldash9x/chatscribe/internal/prompt"
)

// Options configures an Extractor.
type Options struct {
	Timing config.TimingConfig
	// Labels holds the defaults; the assistant label is replaced when the
	// label source supplies a name.
	Labels        Labels
	DumpOnFailure bool
}

// Extractor runs extraction passes over a Surface.
type Extractor struct {
	surface   Surface
	clipboard Clipboard
	labels    LabelSource
	notifier  Notifier
	opts      Options
	logger    *zap.Logger
}

// New creates an Extractor.
func New(surface Surface, clip Clipboard, labels LabelSource, notifier Notifier, opts Options, logger *zap.Logger) *Extractor {
	return &Extractor{
		surface:   surface,
		clipboard: clip,
		labels:    labels,
		notifier:  notifier,
		opts:      opts,
		logger:    logger.Named("extractor"),
	}
}

// Run performs one full extraction pass. It returns ErrNoMessages when the
// page shows no messages; per-message failures are counted in the report,
// never returned. A cancelled context stops the run after the current step
// and returns the partial report alongside the context error.
func (e *Extractor) Run(ctx context.Context) (*Report, error) {
	sess := newSession(e.resolveLabels(ctx))
	log := e.logger.With(zap.String("run_id", sess.ID()))
	log.Info("Using labels.",
		zap.String("assistant", sess.labels.Assistant),
		zap.String("user", sess.labels.User))

	msgs, err := e.surface.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	log.Info("Found messages to process.", zap.Int("count", len(msgs)))

	if len(msgs) == 0 {
		log.Warn("No messages found.")
		e.notify(ctx, notify.Notice{Level: notify.LevelWarn, Title: "No messages found to extract!"})
		rep := sess.report(0)
		rep.Finished = time.Now()
		return rep, ErrNoMessages
	}

	for i, msg := range msgs {
		// A message cut short by cancellation is neither extracted nor failed.
		if !e.processMessage(ctx, sess, log, msg, i, len(msgs)) && ctx.Err() == nil {
			sess.fail()
		}
		if ctx.Err() != nil {
			break
		}
	}

	rep := sess.report(len(msgs))
	if err := ctx.Err(); err != nil {
		rep.Finished = time.Now()
		return rep, fmt.Errorf("extraction interrupted after %d/%d messages: %w", rep.Extracted+rep.Failed, rep.Total, err)
	}

	log.Info("Extraction complete.", zap.Int("extracted", rep.Extracted), zap.Int("total", rep.Total))
	if rep.Failed > 0 {
		log.Warn("Some messages could not be extracted.", zap.Int("failed", rep.Failed))
	}

	e.deliver(ctx, log, rep)
	rep.Finished = time.Now()
	return rep, nil
}

// resolveLabels applies the label source's answer to the default labels.
func (e *Extractor) resolveLabels(ctx context.Context) Labels {
	labels := e.opts.Labels
	if e.labels == nil {
		return labels
	}
	if name, ok := e.labels.AssistantName(ctx); ok {
		labels.Assistant = prompt.Label(name)
	}
	return labels
}

// processMessage runs the per-message procedure and reports success. It
// always leaves the between-message settle behind it.
func (e *Extractor) processMessage(ctx context.Context, sess *Session, log *zap.Logger, msg dom.Handle, index, total int) bool {
	t := e.opts.Timing
	log = log.With(zap.Int("index", index+1), zap.Int("total", total))
	log.Debug("Processing message.")
	defer e.settle(ctx, t.BetweenMessageDelay)

	if err := e.surface.ScrollIntoView(ctx, msg); err != nil {
		log.Debug("Could not scroll message into view.", zap.Error(err))
	}
	if e.settle(ctx, t.ClickDelay) != nil {
		return false
	}

	// Read the role before clicking; the attribute walk is cheapest while the
	// message is still in its resting state.
	role, err := e.surface.Role(ctx, msg)
	if err != nil {
		log.Debug("Role detection failed.", zap.Error(err))
		role = dom.RoleUnknown
	}
	log.Debug("Detected message role.", zap.String("role", string(role)))

	e.closeOpenEditor(ctx, log)
	if e.settle(ctx, t.HideSettle) != nil {
		return false
	}

	e.click(ctx, log, msg, "message")
	if content, ok, err := e.surface.ContentArea(ctx, msg); err == nil && ok && content != msg {
		if e.settle(ctx, t.ContentClickGap) != nil {
			return false
		}
		e.click(ctx, log, content, "content area")
	}
	if e.settle(ctx, t.AppearDelay) != nil {
		return false
	}

	trigger := poll.Until(ctx, t.PollInterval, t.EditTriggerTimeout, func(ctx context.Context) (dom.Handle, bool) {
		h, ok, err := e.surface.EditTrigger(ctx, msg)
		if err != nil {
			log.Debug("Edit trigger query failed.", zap.Error(err))
			return "", false
		}
		return h, ok
	})
	if !trigger.Found {
		log.Warn("No edit button found for this message.", zap.Duration("waited", trigger.Elapsed))
		return false
	}

	log.Debug("Clicking edit button.")
	e.click(ctx, log, trigger.Value, "edit button")
	if e.settle(ctx, t.TextareaDelay) != nil {
		return false
	}

	input, ok := e.awaitTextInput(ctx, sess, log)
	if !ok {
		log.Warn("No textarea found after clicking edit.")
		return false
	}
	sess.markProcessed(input.Handle)
	m := sess.record(role, input.Value, index)
	log.Info("Extracted message.",
		zap.String("role", string(m.Role)),
		zap.Int("chars", len(m.Text)),
		zap.String("preview", preview(m.Text, 50)))

	if h, ok, err := e.surface.CancelButton(ctx); err == nil && ok {
		log.Debug("Clicking Cancel to close edit mode.")
		e.click(ctx, log, h, "cancel")
		e.settle(ctx, t.CancelSettle)
	} else {
		log.Warn("No Cancel button found, continuing anyway.", zap.Error(err))
	}
	return true
}

// awaitTextInput polls for a populated, unseen textarea. When the poll times
// out one final scan is made before giving up.
func (e *Extractor) awaitTextInput(ctx context.Context, sess *Session, log *zap.Logger) (dom.TextInput, bool) {
	t := e.opts.Timing
	scan := func(ctx context.Context) (dom.TextInput, bool) {
		in, ok, err := e.surface.TextInput(ctx, sess.processedInputs())
		if err != nil {
			log.Debug("Textarea query failed.", zap.Error(err))
			return dom.TextInput{}, false
		}
		return in, ok
	}

	res := poll.Until(ctx, t.PollInterval, t.TextareaTimeout, scan)
	if res.Found {
		return res.Value, true
	}
	if ctx.Err() != nil {
		return dom.TextInput{}, false
	}

	log.Warn("Timeout waiting for textarea, trying one last scan.", zap.Int("attempts", res.Attempts))
	if in, ok := scan(ctx); ok {
		log.Info("Using fallback textarea.")
		return in, true
	}
	return dom.TextInput{}, false
}

// closeOpenEditor dismisses the selection toolbar and cancels any edit UI
// left open, so only one editor is ever open.
func (e *Extractor) closeOpenEditor(ctx context.Context, log *zap.Logger) {
	if err := e.surface.ClickBody(ctx); err != nil {
		log.Debug("Body click failed.", zap.Error(err))
	}
	h, ok, err := e.surface.CancelButton(ctx)
	if err != nil || !ok {
		return
	}
	log.Info("Closing existing edit mode.")
	e.click(ctx, log, h, "cancel")
	e.settle(ctx, e.opts.Timing.CancelSettle)
}

// click simulates a user click. Failures are logged and otherwise ignored.
func (e *Extractor) click(ctx context.Context, log *zap.Logger, h dom.Handle, what string) {
	if err := e.surface.Click(ctx, h); err != nil {
		log.Error("Click error.", zap.String("target", what), zap.Error(err))
	}
}

func (e *Extractor) settle(ctx context.Context, d time.Duration) error {
	return poll.Settle(ctx, d)
}

// deliver writes the transcript and tells the user how it went.
func (e *Extractor) deliver(ctx context.Context, log *zap.Logger, rep *Report) {
	if rep.Extracted == 0 {
		e.notify(ctx, notify.Notice{
			Level: notify.LevelError,
			Title: "No messages were successfully extracted. Check the log for errors.",
		})
		return
	}

	rep.Transcript = Format(rep.Messages)
	log.Debug("Formatted transcript.", zap.String("preview", preview(rep.Transcript, 500)))

	method, err := e.clipboard.Write(ctx, rep.Transcript)
	if err != nil {
		log.Error("Failed to copy to clipboard.", zap.Error(err))
		if e.opts.DumpOnFailure {
			log.Info("Full extracted text.", zap.String("transcript", rep.Transcript))
		}
		e.notify(ctx, notify.Notice{
			Level: notify.LevelError,
			Title: "Extraction complete but failed to copy to clipboard. Check the log for the text.",
		})
		return
	}
	rep.ClipboardMethod = method

	e.notify(ctx, notify.Notice{
		Level: notify.LevelSuccess,
		Title: fmt.Sprintf("Successfully extracted and copied %d messages to clipboard!", rep.Extracted),
		Lines: []string{
			fmt.Sprintf("%d from %s", rep.CountRole(dom.RoleUser), rep.Labels.User),
			fmt.Sprintf("%d from %s", rep.CountRole(dom.RoleAssistant), rep.Labels.Assistant),
		},
	})
}

func (e *Extractor) notify(ctx context.Context, n notify.Notice) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Warn("Could not deliver notice.", zap.String("title", n.Title), zap.Error(err))
	}
}

// preview truncates s to at most n runes for log lines.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
