// Package notify surfaces user-visible notices: the end-of-run summary, the
// "no messages" abort and clipboard failures.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"
)

// Level grades a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

// String returns the lower-case level name used by the page toast.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is one message for the user.
type Notice struct {
	Level Level
	Title string
	Lines []string
}

// Text renders the notice as plain text.
func (n Notice) Text() string {
	if len(n.Lines) == 0 {
		return n.Title
	}
	return n.Title + "\n\n" + strings.Join(n.Lines, "\n")
}

// Notifier delivers notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Terminal writes styled notices to a terminal.
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[Level]lipgloss.Style
	body   lipgloss.Style
}

// NewTerminal creates a Terminal notifier bound to w. Colour output follows
// w's capabilities.
func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		w: w,
		styles: map[Level]lipgloss.Style{
			LevelInfo:    r.NewStyle().Foreground(lipgloss.Color("39")),
			LevelSuccess: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
			LevelWarn:    r.NewStyle().Foreground(lipgloss.Color("214")),
			LevelError:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		},
		body: r.NewStyle().Foreground(lipgloss.Color("244")).PaddingLeft(2),
	}
}

// Notify implements Notifier.
func (t *Terminal) Notify(_ context.Context, n Notice) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	b.WriteString(t.styles[n.Level].Render(n.Title))
	b.WriteString("\n")
	for _, line := range n.Lines {
		b.WriteString(t.body.Render(line))
		b.WriteString("\n")
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		return fmt.Errorf("failed to write notice: %w", err)
	}
	return nil
}

// Toaster shows transient text inside the browser tab.
type Toaster interface {
	Toast(ctx context.Context, level, text string) error
}

// Page shows notices as in-page toasts.
type Page struct {
	toaster Toaster
}

// NewPage creates a notifier backed by an in-page toast.
func NewPage(t Toaster) *Page {
	return &Page{toaster: t}
}

// Notify implements Notifier.
func (p *Page) Notify(ctx context.Context, n Notice) error {
	return p.toaster.Toast(ctx, n.Level.String(), n.Text())
}

// Multi fans a notice out to several notifiers concurrently. Every notifier
// is attempted; failures are joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n Notice) error {
	// errgroup reports only the first failure, so each one is kept by index.
	errs := make([]error, len(m))
	var g errgroup.Group
	for i, notifier := range m {
		g.Go(func() error {
			if err := notifier.Notify(ctx, n); err != nil {
				errs[i] = fmt.Errorf("notifier %d: %w", i, err)
				return errs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}
	return errors.Join(errs...)
}
