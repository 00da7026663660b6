package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "== Heading ==\ntext", "== Heading ==\ntext"},
		{"language tag", "```html\n<p>x</p>\n```", "<p>x</p>"},
		{"bare fence", "```\n'''bold'''\n```", "'''bold'''"},
		{"first line is content", "```<p>x</p>\n<p>y</p>```", "<p>x</p>\n<p>y</p>"},
		{"fence only at start", "```html\n<p>x</p>", "```html\n<p>x</p>"},
		{"whitespace trimmed", "  text  \n", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}
