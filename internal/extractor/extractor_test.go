package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, length int, opts ...Option) *Extractor {
	t.Helper()
	e, err := New(length, opts...)
	require.NoError(t, err)
	return e
}

func TestNewRejectsOutOfRangeLength(t *testing.T) {
	for _, n := range []int{0, 3, 11} {
		_, err := New(n)
		assert.Error(t, err, "length %d", n)
	}
	e := mustNew(t, 8)
	assert.Equal(t, 8, e.Length())
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		subject  string
		body     string
		wantCode string
		wantRule string
		wantOK   bool
	}{
		{
			name:     "keyword phrase",
			length:   6,
			subject:  "Welcome",
			body:     "your one-time code is 482913",
			wantCode: "482913",
			wantRule: RuleKeyword,
			wantOK:   true,
		},
		{
			name:    "copyright year rejected",
			length:  4,
			subject: "Newsletter",
			body:    "© 2024 Service",
			wantOK:  false,
		},
		{
			name:     "spaced digits collapsed",
			length:   4,
			subject:  "",
			body:     "1 8 0 0 is your code",
			wantCode: "1800",
			wantRule: RuleTrailing,
			wantOK:   true,
		},
		{
			name:     "prefixed code after subject keyword",
			length:   6,
			subject:  "Sign-in code",
			body:     "G-482913 is your code",
			wantCode: "482913",
			wantRule: RuleKeyword,
			wantOK:   true,
		},
		{
			name:     "year skipped then next occurrence accepted",
			length:   4,
			subject:  "",
			body:     "Since 2019 we keep you safe. Use 7731 to continue.",
			wantCode: "7731",
			wantRule: RuleBare,
			wantOK:   true,
		},
		{
			name:     "keyword wins over earlier bare number",
			length:   6,
			subject:  "Order 123456 shipped",
			body:     "Your verification code: 654321",
			wantCode: "654321",
			wantRule: RuleKeyword,
			wantOK:   true,
		},
		{
			name:     "sign-in context",
			length:   6,
			subject:  "",
			body:     "Use this to sign in: 112233. Order ref 998877.",
			wantCode: "112233",
			wantRule: RuleSignIn,
			wantOK:   true,
		},
		{
			name:     "html body",
			length:   6,
			subject:  "",
			body:     "<div>Your&nbsp;<b>OTP</b></div><div>&nbsp;557799</div>",
			wantCode: "557799",
			wantRule: RuleKeyword,
			wantOK:   true,
		},
		{
			name:     "full-width digits",
			length:   6,
			subject:  "",
			body:     "passcode １２３４５６",
			wantCode: "123456",
			wantRule: RuleKeyword,
			wantOK:   true,
		},
		{
			name:    "longer digit runs are not codes",
			length:  6,
			subject: "",
			body:    "Call 18005551234 or ref 1234567",
			wantOK:  false,
		},
		{
			name:     "spaced run of the wrong length is left alone",
			length:   6,
			subject:  "",
			body:     "1 2 3 4 then 908070",
			wantCode: "908070",
			wantRule: RuleBare,
			wantOK:   true,
		},
		{
			name:     "year filter only for four digits",
			length:   6,
			subject:  "",
			body:     "code 201955",
			wantCode: "201955",
			wantRule: RuleKeyword,
			wantOK:   true,
		},
		{
			name:    "no digits",
			length:  6,
			subject: "Hello",
			body:    "Nothing to see here",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustNew(t, tt.length)
			m, ok := e.Match(tt.subject, tt.body)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantCode, m.Code)
			assert.Equal(t, tt.wantRule, m.Rule)

			code, ok := e.Extract(tt.subject, tt.body)
			assert.True(t, ok)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestProductNames(t *testing.T) {
	e := mustNew(t, 6, WithProductNames("Acme Cloud", " ", "Z+"))

	m, ok := e.Match("", "Acme Cloud 246810 expires soon")
	require.True(t, ok)
	assert.Equal(t, "246810", m.Code)
	assert.Equal(t, RuleProduct, m.Rule)

	plain := mustNew(t, 6)
	m, ok = plain.Match("", "Acme Cloud 246810 expires soon")
	require.True(t, ok)
	assert.Equal(t, RuleBare, m.Rule)
}
