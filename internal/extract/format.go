package extract

import (
	"fmt"
	"strings"
)

const ruleWidth = 50

var (
	messageRule = strings.Repeat("─", ruleWidth)
	closingRule = strings.Repeat("═", ruleWidth)
)

// Format renders messages as the clipboard transcript: each message is
// preceded by a thin rule and printed as its label line followed by its text;
// a double rule and a one line summary close the block.
func Format(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString("\n")
		b.WriteString(messageRule)
		b.WriteString("\n")
		b.WriteString(m.Label)
		b.WriteString("\n")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(closingRule)
	b.WriteString("\n")
	fmt.Fprintf(&b, "\nExtracted %d messages from RP chat\n", len(messages))
	return b.String()
}
