// Package clipboard writes the transcript to the system clipboard through a
// preferred-then-fallback chain of mechanisms.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	sysclip "github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	"go.uber.org/zap"
)

// ErrAllFailed is returned when every writer in the chain failed.
var ErrAllFailed = errors.New("all clipboard methods failed")

// ErrUnsupported is returned by writers that cannot work on this host.
var ErrUnsupported = errors.New("clipboard method unsupported")

// Writer is one clipboard mechanism.
type Writer interface {
	Name() string
	Write(ctx context.Context, text string) error
}

// Chain tries its writers in order until one succeeds.
type Chain struct {
	writers []Writer
	logger  *zap.Logger
}

// NewChain creates a chain over writers, tried in the given order.
func NewChain(logger *zap.Logger, writers ...Writer) *Chain {
	return &Chain{writers: writers, logger: logger.Named("clipboard")}
}

// Write copies text using the first writer that succeeds and returns its
// name. When all writers fail the error wraps ErrAllFailed and every
// individual failure.
func (c *Chain) Write(ctx context.Context, text string) (string, error) {
	var errs []error
	for _, w := range c.writers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := w.Write(ctx, text); err != nil {
			c.logger.Warn("Clipboard method failed, trying next.", zap.String("method", w.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", w.Name(), err))
			continue
		}
		c.logger.Info("Copied transcript to clipboard.", zap.String("method", w.Name()), zap.Int("bytes", len(text)))
		return w.Name(), nil
	}
	return "", fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}

// Names lists the writers in chain order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.writers))
	for i, w := range c.writers {
		names[i] = w.Name()
	}
	return names
}

// System writes through the operating system clipboard (pbcopy, xclip,
// xsel, wl-copy or the Windows API).
type System struct {
	write func(string) error
}

// NewSystem creates the OS clipboard writer.
func NewSystem() *System {
	return &System{write: sysclip.WriteAll}
}

func (s *System) Name() string { return "system" }

func (s *System) Write(_ context.Context, text string) error {
	if sysclip.Unsupported {
		return ErrUnsupported
	}
	return s.write(text)
}

// PageClipboard is the in-tab clipboard of the browser.
type PageClipboard interface {
	WriteClipboard(ctx context.Context, text string) error
}

// Page writes through the browser tab's navigator.clipboard, with the hidden
// textarea copy command as the tab's own fallback.
type Page struct {
	page PageClipboard
}

// NewPage creates a writer backed by the browser tab.
func NewPage(p PageClipboard) *Page {
	return &Page{page: p}
}

func (p *Page) Name() string { return "page" }

func (p *Page) Write(ctx context.Context, text string) error {
	return p.page.WriteClipboard(ctx, text)
}

// OSC52 asks the terminal emulator to set the clipboard with an OSC 52
// escape sequence. It works over SSH and inside tmux or screen.
type OSC52 struct {
	out  io.Writer
	term string
}

// NewOSC52 creates an OSC 52 writer emitting to out. term is the value of
// $TERM and selects tmux or screen passthrough.
func NewOSC52(out io.Writer, term string) *OSC52 {
	return &OSC52{out: out, term: term}
}

func (o *OSC52) Name() string { return "osc52" }

func (o *OSC52) Write(_ context.Context, text string) error {
	if o.out == nil {
		return ErrUnsupported
	}
	seq := osc52.New(text)
	switch {
	case strings.HasPrefix(o.term, "tmux"):
		seq = seq.Tmux()
	case strings.HasPrefix(o.term, "screen"):
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(o.out); err != nil {
		return fmt.Errorf("failed to write OSC 52 sequence: %w", err)
	}
	return nil
}

// Build assembles a chain from configured method names. page may be nil, in
// which case the page method is skipped.
func Build(logger *zap.Logger, methods []string, page PageClipboard) (*Chain, error) {
	var writers []Writer
	for _, m := range methods {
		switch strings.ToLower(m) {
		case "system":
			writers = append(writers, NewSystem())
		case "page":
			if page != nil {
				writers = append(writers, NewPage(page))
			}
		case "osc52":
			writers = append(writers, NewOSC52(os.Stderr, os.Getenv("TERM")))
		default:
			return nil, fmt.Errorf("unknown clipboard method %q", m)
		}
	}
	if len(writers) == 0 {
		return nil, fmt.Errorf("no usable clipboard methods in %v", methods)
	}
	return NewChain(logger, writers...), nil
}
