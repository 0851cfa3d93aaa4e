package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxmail/voxmail/internal/format"
)

func TestText(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain paragraphs",
			input:    "<html><body><p>Hello there,</p><p>See you Monday.</p></body></html>",
			expected: "Hello there,\nSee you Monday.",
		},
		{
			name:     "script and style dropped",
			input:    `<html><head><style>.x{color:red}</style></head><body><script>alert(1)</script><div>Quarterly numbers attached.</div></body></html>`,
			expected: "Quarterly numbers attached.",
		},
		{
			name:     "layout table flattened",
			input:    `<table id="main"><tr><td>Line one</td></tr><tr><td>Line two</td></tr></table>`,
			expected: "Line one\nLine two",
		},
		{
			name:     "whitespace collapsed",
			input:    "<p>  spaced \n\t out   words </p>",
			expected: "spaced out words",
		},
		{
			name:     "inline markup kept together",
			input:    "<p>Meet <b>Anna</b> at <a href=\"#\">the office</a>.</p>",
			expected: "Meet Anna at the office.",
		},
	}

	conv := format.Converter{}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, conv.Text([]byte(tc.input)))
		})
	}
}
