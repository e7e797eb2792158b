package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text   string
		want   Command
		wantOK bool
	}{
		{"/get a@x.com", Command{Name: "get", Args: []string{"a@x.com"}}, true},
		{"  /GRANT   42 a@x.com  7 ", Command{Name: "grant", Args: []string{"42", "a@x.com", "7"}}, true},
		{"/start@OtpBot", Command{Name: "start", Args: []string{}}, true},
		{"hello", Command{}, false},
		{"", Command{}, false},
		{"/", Command{}, false},
		{"/@bot", Command{}, false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.text)
		assert.Equal(t, tt.wantOK, ok, tt.text)
		if ok {
			assert.Equal(t, tt.want, got, tt.text)
		}
	}
}
