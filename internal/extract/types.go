package extract

import (
	"context"
	"errors"
	"time"

	"github.com/xkilldash9x/chatscribe/internal/dom"
	"github.com/xkilldash9x/chatscribe/internal/notify"
)

// ErrNoMessages aborts a run that finds nothing to extract.
var ErrNoMessages = errors.New("no messages found to extract")

// Surface is the page the sequencer drives. Every method is a single,
// non-blocking query or action; waiting is the sequencer's job.
type Surface interface {
	// Messages lists the visible message containers in document order.
	Messages(ctx context.Context) ([]dom.Handle, error)
	ScrollIntoView(ctx context.Context, h dom.Handle) error
	Role(ctx context.Context, msg dom.Handle) (dom.Role, error)
	// Click dispatches pointerdown, pointerup and click to h.
	Click(ctx context.Context, h dom.Handle) error
	ClickBody(ctx context.Context) error
	ContentArea(ctx context.Context, msg dom.Handle) (dom.Handle, bool, error)
	// EditTrigger finds the edit button, preferring a toolbar inside msg over
	// one shown elsewhere on the page.
	EditTrigger(ctx context.Context, msg dom.Handle) (dom.Handle, bool, error)
	// TextInput returns a visible, non-empty text input not listed in exclude.
	TextInput(ctx context.Context, exclude []dom.Handle) (dom.TextInput, bool, error)
	CancelButton(ctx context.Context) (dom.Handle, bool, error)
}

// Clipboard receives the formatted transcript and reports the method used.
type Clipboard interface {
	Write(ctx context.Context, text string) (string, error)
}

// LabelSource supplies the assistant character name for a run.
type LabelSource interface {
	AssistantName(ctx context.Context) (string, bool)
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notice) error
}

// Message is one extracted chat message. It is never modified after creation.
type Message struct {
	Role  dom.Role
	Label string
	Text  string
	// Index is the message's position among the visible messages.
	Index int
}

// Labels maps roles to the labels printed above each message.
type Labels struct {
	Assistant string
	User      string
	Unknown   string
}

// For returns the label for role.
func (l Labels) For(role dom.Role) string {
	switch role {
	case dom.RoleAssistant:
		return l.Assistant
	case dom.RoleUser:
		return l.User
	default:
		return l.Unknown
	}
}

// Report summarises a finished run.
type Report struct {
	RunID     string
	Total     int
	Extracted int
	Failed    int
	Messages  []Message
	// Transcript is empty when nothing was extracted.
	Transcript string
	// ClipboardMethod names the clipboard writer that succeeded, if any.
	ClipboardMethod string
	Labels          Labels
	Started         time.Time
	Finished        time.Time
}

// CountRole returns how many extracted messages have role.
func (r *Report) CountRole(role dom.Role) int {
	n := 0
	for _, m := range r.Messages {
		if m.Role == role {
			n++
		}
	}
	return n
}
