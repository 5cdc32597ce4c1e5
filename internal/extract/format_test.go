package extract

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/chatscribe/internal/dom"
)

func TestFormat(t *testing.T) {
	msgs := []Message{
		{Role: dom.RoleUser, Label: "[You]", Text: "Hello.\nSecond line."},
		{Role: dom.RoleAssistant, Label: "[Maddie]", Text: "*smiles*"},
	}

	got := Format(msgs)

	rule := strings.Repeat("─", 50)
	closing := strings.Repeat("═", 50)
	want := "\n" + rule + "\n[You]\nHello.\nSecond line.\n" +
		"\n" + rule + "\n[Maddie]\n*smiles*\n" +
		"\n" + closing + "\n" +
		"\nExtracted 2 messages from RP chat\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Format mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_Structure(t *testing.T) {
	for _, k := range []int{0, 1, 7} {
		msgs := make([]Message, k)
		for i := range msgs {
			msgs[i] = Message{Label: "[AI]", Text: "text"}
		}
		out := Format(msgs)

		assert.Equal(t, k, strings.Count(out, strings.Repeat("─", 50)), "one thin rule per message")
		assert.Equal(t, 1, strings.Count(out, strings.Repeat("═", 50)))
		assert.Equal(t, 1, strings.Count(out, "Extracted "))
		assert.True(t, strings.HasSuffix(out, "messages from RP chat\n"))
	}
}

func TestFormat_TextIsVerbatim(t *testing.T) {
	text := "  leading spaces, *asterisks*, and trailing newline\n"
	out := Format([]Message{{Label: "[You]", Text: text}})
	assert.Contains(t, out, "[You]\n"+text+"\n")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "héllo...", preview("héllo wörld", 5))
}
