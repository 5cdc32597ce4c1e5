package extract

import (
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/chatscribe/internal/dom"
)

// Session is the state of one extraction run. It is created by Run, used by
// a single goroutine and discarded once the report is built.
type Session struct {
	id        string
	labels    Labels
	messages  []Message
	processed map[dom.Handle]struct{}
	order     []dom.Handle
	extracted int
	failed    int
	started   time.Time
}

func newSession(labels Labels) *Session {
	return &Session{
		id:        uuid.New().String(),
		labels:    labels,
		processed: make(map[dom.Handle]struct{}),
		started:   time.Now(),
	}
}

// ID returns the run identifier.
func (s *Session) ID() string { return s.id }

// markProcessed records a text input so later messages never read it again.
func (s *Session) markProcessed(h dom.Handle) {
	if _, ok := s.processed[h]; ok {
		return
	}
	s.processed[h] = struct{}{}
	s.order = append(s.order, h)
}

// processedInputs lists the handled text inputs in the order they were seen.
func (s *Session) processedInputs() []dom.Handle {
	out := make([]dom.Handle, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Session) record(role dom.Role, text string, index int) Message {
	m := Message{Role: role, Label: s.labels.For(role), Text: text, Index: index}
	s.messages = append(s.messages, m)
	s.extracted++
	return m
}

func (s *Session) fail() { s.failed++ }

func (s *Session) report(total int) *Report {
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return &Report{
		RunID:     s.id,
		Total:     total,
		Extracted: s.extracted,
		Failed:    s.failed,
		Messages:  msgs,
		Labels:    s.labels,
		Started:   s.started,
	}
}
