package notifier

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	msg := StructuredMessage{
		Title: "Daily report rb1",
		Sections: []MessageSection{
			{Title: "Performance", Lines: []string{"Balance BTC: 1.5000", "", "  "}},
			{Title: "General", Lines: []string{"Version: 1.5.2"}},
		},
		Footer:    "operated by me",
		Timestamp: time.Date(2026, 8, 28, 12, 5, 0, 0, time.UTC),
	}
	text := msg.RenderMarkdown()

	assert.True(t, strings.HasPrefix(text, "Daily report rb1"))
	assert.Contains(t, text, "```\nPerformance\nBalance BTC: 1.5000")
	assert.Contains(t, text, "General\nVersion: 1.5.2")
	assert.Contains(t, text, "operated by me")
	assert.Contains(t, text, "Time: 2026-08-28 12:05:00 UTC")
}

func TestRenderMarkdownEmptySections(t *testing.T) {
	msg := StructuredMessage{
		Title:    "Trade report rb1",
		Sections: []MessageSection{{Title: "Empty", Lines: []string{"", " "}}},
	}
	text := msg.RenderMarkdown()
	assert.Equal(t, "Trade report rb1", text)
}

func TestRenderMarkdownEscapesFences(t *testing.T) {
	msg := StructuredMessage{
		Sections: []MessageSection{{Lines: []string{"evil ``` fence"}}},
	}
	assert.NotContains(t, strings.TrimPrefix(msg.RenderMarkdown(), "```\n"), "``` fence")
}

func TestRenderMarkdownTrimsLongBody(t *testing.T) {
	msg := StructuredMessage{
		Sections: []MessageSection{{Lines: []string{strings.Repeat("x", 5000)}}},
	}
	text := msg.RenderMarkdown()
	assert.LessOrEqual(t, len(text), maxStructuredMessageLen+3)
	assert.True(t, strings.HasSuffix(text, "..."))
}
