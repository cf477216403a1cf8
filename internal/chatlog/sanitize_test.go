package chatlog_test

import (
	"strings"
	"testing"

	"github.com/edgard/chatcsv/internal/chatlog"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   \t\n  ",
			expected: "",
		},
		{
			name:     "plain numeric id",
			input:    "123456789",
			expected: "123456789",
		},
		{
			name:     "word characters preserved",
			input:    "group_name.v2-test",
			expected: "group_name.v2-test",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  42  ",
			expected: "42",
		},
		{
			name:     "forward slashes replaced",
			input:    "a/b/c",
			expected: "a_b_c",
		},
		{
			name:     "backslashes replaced",
			input:    `a\b\c`,
			expected: "a_b_c",
		},
		{
			name:     "path traversal neutralized",
			input:    "../../etc/passwd",
			expected: ".._.._etc_passwd",
		},
		{
			name:     "spaces and punctuation replaced",
			input:    "my group: #1!",
			expected: "my_group___1_",
		},
		{
			name:     "non-ascii replaced",
			input:    "聊天群",
			expected: "___",
		},
		{
			name:     "long input truncated to 100",
			input:    strings.Repeat("a", 250),
			expected: strings.Repeat("a", 100),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := chatlog.Sanitize(tc.input)
			if got != tc.expected {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}
