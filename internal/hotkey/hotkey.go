// Package hotkey wires in-page key combinations to Go. A persistent script
// listens for keydown in the chat tab and reports matches through a runtime
// binding; the Dispatcher turns them into highlight toggles and extraction
// runs, one at a time.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/chatscribe/internal/config"
)

// Action is what a key combination asks for.
type Action string

const (
	ActionHighlight Action = "highlight"
	ActionExtract   Action = "extract"
)

// ErrUnknownAction is returned by Decode for payloads naming no known action.
var ErrUnknownAction = errors.New("unknown hotkey action")

// Event is one hotkey press reported by the page.
type Event struct {
	Action Action `json:"action"`
	Key    string `json:"key"`
	URL    string `json:"url"`
	// Received is stamped on the Go side when the binding fires.
	Received time.Time `json:"-"`
}

// Decode parses a binding payload.
func Decode(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("malformed hotkey payload: %w", err)
	}
	switch ev.Action {
	case ActionHighlight, ActionExtract:
		return ev, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownAction, ev.Action)
	}
}

// listenerSettings is handed to the page script as JSON.
type listenerSettings struct {
	Binding   string   `json:"binding"`
	Modifiers []string `json:"modifiers"`
	Highlight string   `json:"highlight"`
	Extract   string   `json:"extract"`
}

const listenerTemplate = `(function () {
  const cfg = %s;
  const flag = '__chatscribeHotkeys_' + cfg.binding;
  if (window[flag]) return;
  window[flag] = true;
  window.addEventListener('keydown', (e) => {
    const held = { ctrl: e.ctrlKey, alt: e.altKey, shift: e.shiftKey, meta: e.metaKey };
    for (const m of cfg.modifiers) { if (!held[m]) return; }
    const key = (e.key || '').toLowerCase();
    let action = '';
    if (key === cfg.highlight) action = 'highlight';
    else if (key === cfg.extract) action = 'extract';
    else return;
    e.preventDefault();
    const fn = window[cfg.binding];
    if (typeof fn === 'function') fn(JSON.stringify({ action: action, key: key, url: location.href }));
  }, true);
})();`

// Script renders the keydown listener for cfg.
func Script(cfg config.HotkeyConfig) (string, error) {
	mods := make([]string, 0, len(cfg.Modifiers))
	for _, m := range cfg.Modifiers {
		mods = append(mods, strings.ToLower(strings.TrimSpace(m)))
	}
	settings, err := json.Marshal(listenerSettings{
		Binding:   cfg.BindingName,
		Modifiers: mods,
		Highlight: strings.ToLower(cfg.HighlightKey),
		Extract:   strings.ToLower(cfg.ExtractKey),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode hotkey settings: %w", err)
	}
	return fmt.Sprintf(listenerTemplate, settings), nil
}

// Binder is the part of a browser session the listener needs.
type Binder interface {
	ExposeFunction(ctx context.Context, name string, handler func(payload string)) error
	InjectScriptPersistently(ctx context.Context, script string) error
	ExecuteScript(ctx context.Context, script string, res interface{}) error
}

// Install exposes the binding, installs the listener in the current
// document and every future one, and forwards decoded events to sink.
func Install(ctx context.Context, b Binder, cfg config.HotkeyConfig, sink func(Event), logger *zap.Logger) error {
	log := logger.Named("hotkey")
	script, err := Script(cfg)
	if err != nil {
		return err
	}

	err = b.ExposeFunction(ctx, cfg.BindingName, func(payload string) {
		ev, err := Decode(payload)
		if err != nil {
			log.Warn("Ignoring hotkey payload.", zap.String("payload", payload), zap.Error(err))
			return
		}
		ev.Received = time.Now()
		log.Debug("Hotkey pressed.", zap.String("action", string(ev.Action)))
		sink(ev)
	})
	if err != nil {
		return fmt.Errorf("failed to expose hotkey binding: %w", err)
	}

	if err := b.InjectScriptPersistently(ctx, script); err != nil {
		return fmt.Errorf("failed to install hotkey listener: %w", err)
	}
	if err := b.ExecuteScript(ctx, script, nil); err != nil {
		return fmt.Errorf("failed to start hotkey listener: %w", err)
	}

	log.Info("Hotkeys installed.",
		zap.Strings("modifiers", cfg.Modifiers),
		zap.String("highlight", cfg.HighlightKey),
		zap.String("extract", cfg.ExtractKey))
	return nil
}
