// Package dom holds the small vocabulary shared between the page driver and
// the extraction sequencer: element handles, message roles and text inputs.
package dom

import "strings"

// Handle refers to a DOM element tagged by the page driver. The zero value
// refers to nothing.
type Handle string

// IsZero reports whether h refers to no element.
func (h Handle) IsZero() bool { return h == "" }

// Role is the author of a chat message as detected on the page.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleUnknown   Role = "unknown"
)

// ParseRole maps the page's role attribute onto a Role. Anything other than
// user or assistant is unknown.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser
	case "assistant":
		return RoleAssistant
	default:
		return RoleUnknown
	}
}

// TextInput is a populated editor control found on the page.
type TextInput struct {
	Handle Handle `json:"ref"`
	Value  string `json:"value"`
}
