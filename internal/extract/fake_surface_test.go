package extract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xkilldash9x/chatscribe/internal/dom"
	"github.com/xkilldash9x/chatscribe/internal/notify"
)

// fakeMessage describes one chat message on the fake page.
type fakeMessage struct {
	role   dom.Role
	text   string
	noEdit bool // the edit pencil never appears
}

// fakeSurface is an in-memory chat page that reacts to clicks the way the
// real page does: clicking a message shows its toolbar, clicking the pencil
// opens an editor and clicking Cancel closes it.
type fakeSurface struct {
	mu       sync.Mutex
	messages []fakeMessage
	listErr  error

	selected string
	editing  string

	scrolled []dom.Handle
	clicks   []dom.Handle
	excludes [][]dom.Handle

	onScroll func(dom.Handle) // called after a scroll is recorded
}

func newFakeSurface(msgs ...fakeMessage) *fakeSurface {
	return &fakeSurface{messages: msgs}
}

func msgHandle(i int) dom.Handle { return dom.Handle(fmt.Sprintf("m%d", i)) }

func msgIndex(h dom.Handle) int {
	digits := strings.TrimLeftFunc(string(h), func(r rune) bool { return r < '0' || r > '9' })
	i, err := strconv.Atoi(digits)
	if err != nil {
		return -1
	}
	return i
}

func (f *fakeSurface) Messages(ctx context.Context) ([]dom.Handle, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]dom.Handle, len(f.messages))
	for i := range f.messages {
		out[i] = msgHandle(i)
	}
	return out, nil
}

func (f *fakeSurface) ScrollIntoView(ctx context.Context, h dom.Handle) error {
	f.mu.Lock()
	f.scrolled = append(f.scrolled, h)
	hook := f.onScroll
	f.mu.Unlock()
	if hook != nil {
		hook(h)
	}
	return nil
}

func (f *fakeSurface) Role(ctx context.Context, msg dom.Handle) (dom.Role, error) {
	i := msgIndex(msg)
	if i < 0 || i >= len(f.messages) {
		return dom.RoleUnknown, errors.New("stale handle")
	}
	return f.messages[i].role, nil
}

func (f *fakeSurface) Click(ctx context.Context, h dom.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, h)

	s := string(h)
	switch {
	case s == "cancel":
		f.editing = ""
	case strings.HasPrefix(s, "edit-"):
		f.editing = strings.TrimPrefix(s, "edit-")
	case strings.HasPrefix(s, "content-"):
		f.selected = "m" + strings.TrimPrefix(s, "content-")
	case strings.HasPrefix(s, "m"):
		f.selected = s
	}
	return nil
}

func (f *fakeSurface) ClickBody(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = ""
	return nil
}

func (f *fakeSurface) ContentArea(ctx context.Context, msg dom.Handle) (dom.Handle, bool, error) {
	return dom.Handle("content-" + strings.TrimPrefix(string(msg), "m")), true, nil
}

func (f *fakeSurface) EditTrigger(ctx context.Context, msg dom.Handle) (dom.Handle, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selected == "" {
		return "", false, nil
	}
	i := msgIndex(dom.Handle(f.selected))
	if f.messages[i].noEdit {
		return "", false, nil
	}
	return dom.Handle("edit-" + f.selected), true, nil
}

func (f *fakeSurface) TextInput(ctx context.Context, exclude []dom.Handle) (dom.TextInput, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.excludes = append(f.excludes, exclude)
	if f.editing == "" {
		return dom.TextInput{}, false, nil
	}
	h := dom.Handle("ta-" + f.editing)
	for _, x := range exclude {
		if x == h {
			return dom.TextInput{}, false, nil
		}
	}
	i := msgIndex(dom.Handle(f.editing))
	if strings.TrimSpace(f.messages[i].text) == "" {
		return dom.TextInput{}, false, nil
	}
	return dom.TextInput{Handle: h, Value: f.messages[i].text}, true, nil
}

func (f *fakeSurface) CancelButton(ctx context.Context) (dom.Handle, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editing == "" {
		return "", false, nil
	}
	return "cancel", true, nil
}

// fakeClipboard records every write.
type fakeClipboard struct {
	writes []string
	err    error
}

func (c *fakeClipboard) Write(ctx context.Context, text string) (string, error) {
	c.writes = append(c.writes, text)
	if c.err != nil {
		return "", c.err
	}
	return "system", nil
}

// fakeNotifier records notices.
type fakeNotifier struct {
	notices []notify.Notice
}

func (n *fakeNotifier) Notify(ctx context.Context, notice notify.Notice) error {
	n.notices = append(n.notices, notice)
	return nil
}
