package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/chatscribe/internal/clipboard"
	"github.com/xkilldash9x/chatscribe/internal/config"
	"github.com/xkilldash9x/chatscribe/internal/dom"
	"github.com/xkilldash9x/chatscribe/internal/extract"
	"github.com/xkilldash9x/chatscribe/internal/notify"
)

var (
	_ extract.Surface         = (*Page)(nil)
	_ clipboard.PageClipboard = (*Page)(nil)
	_ notify.Toaster          = (*Page)(nil)
)

// Page drives the chat UI in one tab through the injected helper library.
// Elements are referred to by dom.Handle values that the page stores in a
// data attribute on the node itself, so a handle stays valid across queries
// for as long as the node lives.
type Page struct {
	session *Session
	profile jsProfile
	scroll  string
	toast   time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

// NewPage binds a profile to a session. timeout bounds each individual
// script evaluation; zero means no bound beyond the caller's context.
func NewPage(s *Session, profile config.ProfileConfig, timeout time.Duration, logger *zap.Logger) *Page {
	return &Page{
		session: s,
		profile: newJSProfile(profile),
		scroll:  profile.ScrollBehavior,
		toast:   profile.ToastDuration,
		timeout: timeout,
		logger:  logger.Named("page"),
	}
}

// Install injects the helper library into the current document and every
// future one.
func (p *Page) Install(ctx context.Context) error {
	if err := p.session.InjectScriptPersistently(ctx, pageLibrary); err != nil {
		return err
	}
	if err := p.session.ExecuteScript(ctx, pageLibrary+"\ntrue", nil); err != nil {
		return fmt.Errorf("failed to install page helpers: %w", err)
	}
	p.logger.Debug("Page helpers installed.", zap.String("message_selector", p.profile.MessageSelector))
	return nil
}

// call invokes a helper and decodes its result into res.
func (p *Page) call(ctx context.Context, res any, fn string, args ...any) error {
	expr, err := buildCall(fn, args...)
	if err != nil {
		return err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.session.ExecuteScript(ctx, expr, res); err != nil {
		return fmt.Errorf("page helper %s failed: %w", fn, err)
	}
	return nil
}

// Messages lists the visible message containers in document order.
func (p *Page) Messages(ctx context.Context) ([]dom.Handle, error) {
	var refs []string
	if err := p.call(ctx, &refs, "messages", p.profile); err != nil {
		return nil, err
	}
	out := make([]dom.Handle, 0, len(refs))
	for _, r := range refs {
		out = append(out, dom.Handle(r))
	}
	return out, nil
}

// ScrollIntoView centers h in the viewport.
func (p *Page) ScrollIntoView(ctx context.Context, h dom.Handle) error {
	var ok bool
	if err := p.call(ctx, &ok, "scroll", string(h), p.scroll); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("element %s is gone", h)
	}
	return nil
}

// Role detects who wrote msg.
func (p *Page) Role(ctx context.Context, msg dom.Handle) (dom.Role, error) {
	var role string
	if err := p.call(ctx, &role, "role", string(msg), p.profile); err != nil {
		return dom.RoleUnknown, err
	}
	return dom.ParseRole(role), nil
}

// Click dispatches pointerdown, pointerup and click to h.
func (p *Page) Click(ctx context.Context, h dom.Handle) error {
	var msg string
	if err := p.call(ctx, &msg, "click", string(h)); err != nil {
		return err
	}
	return dispatchError(msg)
}

// ClickBody clicks the document body, which dismisses selection toolbars.
func (p *Page) ClickBody(ctx context.Context) error {
	var msg string
	if err := p.call(ctx, &msg, "clickBody"); err != nil {
		return err
	}
	return dispatchError(msg)
}

// ContentArea returns the message's inner content element.
func (p *Page) ContentArea(ctx context.Context, msg dom.Handle) (dom.Handle, bool, error) {
	return p.handle(ctx, "content", string(msg), p.profile)
}

// EditTrigger returns the edit button of a visible toolbar. Toolbars inside
// msg are searched first; layouts that render one toolbar for the whole page
// fall back to it.
func (p *Page) EditTrigger(ctx context.Context, msg dom.Handle) (dom.Handle, bool, error) {
	return p.handle(ctx, "editTrigger", string(msg), p.profile)
}

// TextInput returns a visible, non-empty textarea not listed in exclude.
func (p *Page) TextInput(ctx context.Context, exclude []dom.Handle) (dom.TextInput, bool, error) {
	refs := make([]string, len(exclude))
	for i, h := range exclude {
		refs[i] = string(h)
	}
	var in dom.TextInput
	if err := p.call(ctx, &in, "textInput", refs); err != nil {
		return dom.TextInput{}, false, err
	}
	return in, !in.Handle.IsZero(), nil
}

// CancelButton returns the visible Cancel button, if any.
func (p *Page) CancelButton(ctx context.Context) (dom.Handle, bool, error) {
	return p.handle(ctx, "cancel", p.profile)
}

// SetHighlight outlines every visible message when on is true and clears
// the outline otherwise. It returns the number of highlighted messages.
func (p *Page) SetHighlight(ctx context.Context, on bool) (int, error) {
	var n int
	if err := p.call(ctx, &n, "highlight", on, p.profile); err != nil {
		return 0, err
	}
	return n, nil
}

// WriteClipboard copies text through the page's clipboard API, falling back
// to execCommand inside the tab.
func (p *Page) WriteClipboard(ctx context.Context, text string) error {
	var msg string
	if err := p.call(ctx, &msg, "copy", text); err != nil {
		return err
	}
	if msg != "" {
		return errors.New(msg)
	}
	return nil
}

// Toast shows text in a transient box in the corner of the tab.
func (p *Page) Toast(ctx context.Context, level, text string) error {
	return p.call(ctx, nil, "toast", level, text, p.toast.Milliseconds())
}

func (p *Page) handle(ctx context.Context, fn string, args ...any) (dom.Handle, bool, error) {
	var ref string
	if err := p.call(ctx, &ref, fn, args...); err != nil {
		return "", false, err
	}
	return dom.Handle(ref), ref != "", nil
}

func dispatchError(msg string) error {
	if msg == "" {
		return nil
	}
	return fmt.Errorf("event dispatch failed: %s", msg)
}
