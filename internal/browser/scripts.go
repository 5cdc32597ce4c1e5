package browser

import (
	_ "embed"
	"fmt"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/chatscribe/internal/config"
)

// pageLibrary installs window.__chatscribe, the DOM helpers every Page call
// goes through. It is idempotent.
//
//go:embed scripts/page.js
var pageLibrary string

// PageLibrary returns the helper script for persistent injection.
func PageLibrary() string { return pageLibrary }

// buildCall renders an expression that makes sure the helper library is
// present and then invokes fn with args. Arguments are JSON encoded, so any
// string a profile or transcript holds survives quoting.
func buildCall(fn string, args ...any) (string, error) {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode arguments for %s: %w", fn, err)
	}
	var b strings.Builder
	b.WriteString("(() => {\n")
	b.WriteString(pageLibrary)
	b.WriteString("\nreturn window.__chatscribe.")
	b.WriteString(fn)
	b.WriteString(".apply(null, ")
	b.Write(encoded)
	b.WriteString(");\n})()")
	return b.String(), nil
}

// jsProfile is the part of a profile the page helpers need.
type jsProfile struct {
	MessageSelector   string   `json:"messageSelector"`
	ToolbarSelectors  []string `json:"toolbarSelectors"`
	BubbleSelector    string   `json:"bubbleSelector"`
	ContentSelector   string   `json:"contentSelector"`
	PencilMarkers     []string `json:"pencilMarkers"`
	CancelText        string   `json:"cancelText"`
	RoleAttribute     string   `json:"roleAttribute"`
	RoleContainer     string   `json:"roleContainer"`
	RoleDepth         int      `json:"roleDepth"`
	UserToolbarMarker string   `json:"userToolbarMarker"`
	AIToolbarMarker   string   `json:"aiToolbarMarker"`
	HighlightClass    string   `json:"highlightClass"`
	HighlightStyle    string   `json:"highlightStyle"`
}

func newJSProfile(p config.ProfileConfig) jsProfile {
	return jsProfile{
		MessageSelector:   p.MessageSelector,
		ToolbarSelectors:  p.ToolbarSelectors,
		BubbleSelector:    p.BubbleSelector,
		ContentSelector:   p.ContentSelector,
		PencilMarkers:     p.PencilMarkers,
		CancelText:        p.CancelText,
		RoleAttribute:     p.RoleAttribute,
		RoleContainer:     p.RoleContainer,
		RoleDepth:         p.RoleDepth,
		UserToolbarMarker: p.UserToolbarMarker,
		AIToolbarMarker:   p.AIToolbarMarker,
		HighlightClass:    p.HighlightClass,
		HighlightStyle:    p.HighlightStyle,
	}
}
