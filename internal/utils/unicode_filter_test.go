package utils

import (
	"testing"
)

func TestFoldUnicode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain ASCII",
			input:    "Hello World",
			expected: "Hello World",
		},
		{
			name:     "Full-width digits",
			input:    "code \uff14\uff18\uff12\uff19\uff11\uff13",
			expected: "code 482913",
		},
		{
			name:     "No-break space",
			input:    "code\u00a0123456",
			expected: "code 123456",
		},
		{
			name:     "Zero-width joiner inside code",
			input:    "12\u200b34",
			expected: "12 34",
		},
		{
			name:     "Tabs and newlines",
			input:    "a\tb\nc",
			expected: "a b c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FoldUnicode(tt.input)
			if result != tt.expected {
				t.Errorf("FoldUnicode(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := CollapseSpace("  a   b \n c  "); got != "a b c" {
		t.Errorf("CollapseSpace = %q", got)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Table cells stay apart",
			input:    "<table><tr><td>Code</td><td>1234</td></tr></table>",
			expected: "Code 1234",
		},
		{
			name:     "Entities unescaped",
			input:    "<p>Your&nbsp;code&#58; 5678</p>",
			expected: "Your code: 5678",
		},
		{
			name:     "Empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CollapseSpace(StripHTML(tt.input))
			if result != tt.expected {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsHTML(t *testing.T) {
	if !IsHTML("<div>hi</div>") {
		t.Error("expected div to be HTML")
	}
	if IsHTML("Your code is 1234") {
		t.Error("plain text detected as HTML")
	}
}
