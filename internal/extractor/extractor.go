// Package extractor pulls a numeric one-time code out of a message's subject
// and body with an ordered list of contextual patterns and a bare fallback.
package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/utils"
)

// Rule names, in the order they are tried.
const (
	RuleKeyword  = "keyword"
	RuleSignIn   = "sign-in"
	RuleProduct  = "product"
	RuleTrailing = "trailing"
	RuleBare     = "bare"
)

const (
	MinCodeLength = 4
	MaxCodeLength = 10
)

var (
	spacedDigits = regexp.MustCompile(`\b\d(?: \d)+\b`)
	digitRuns    = regexp.MustCompile(`\d+`)
	yearShaped   = regexp.MustCompile(`^(?:19|20)\d{2}$`)
)

// Match is an accepted candidate and the rule that produced it.
type Match struct {
	Code string
	Rule string
}

type rule struct {
	name    string
	pattern *regexp.Regexp
}

// Extractor is safe for concurrent use once built.
type Extractor struct {
	length   int
	products []string
	rules    []rule
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithProductNames adds sender product names (e.g. "Netflix") that may
// directly precede a code.
func WithProductNames(names ...string) Option {
	return func(e *Extractor) {
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				e.products = append(e.products, n)
			}
		}
	}
}

// New builds an extractor for codes of exactly length digits.
func New(length int, opts ...Option) (*Extractor, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return nil, fmt.Errorf("code length must be between %d and %d, got %d", MinCodeLength, MaxCodeLength, length)
	}
	e := &Extractor{length: length}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	code := fmt.Sprintf(`(\d{%d})(?:[^0-9]|$)`, length)
	e.rules = []rule{
		{RuleKeyword, regexp.MustCompile(`(?i)\b(?:code|otp|passcode|pin)\b[^0-9]{0,30}?` + code)},
		{RuleSignIn, regexp.MustCompile(`(?i)\b(?:sign[ -]?in|log[ -]?in|verify|verification|confirm|confirmation)\b[^0-9]{0,40}?` + code)},
	}
	if len(e.products) > 0 {
		quoted := make([]string, len(e.products))
		for i, p := range e.products {
			quoted[i] = regexp.QuoteMeta(p)
		}
		e.rules = append(e.rules, rule{RuleProduct,
			regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b[^0-9]{0,30}?` + code)})
	}
	e.rules = append(e.rules, rule{RuleTrailing,
		regexp.MustCompile(fmt.Sprintf(`(?i)(?:^|[^0-9])(\d{%d}) ?(?:is|as) (?:your|the)\b`, length))})
	return e, nil
}

// Length returns the configured code length.
func (e *Extractor) Length() int { return e.length }

// Extract returns the first accepted code in subject and body.
func (e *Extractor) Extract(subject, body string) (string, bool) {
	m, ok := e.Match(subject, body)
	return m.Code, ok
}

// Match is Extract plus the name of the rule that matched.
func (e *Extractor) Match(subject, body string) (Match, bool) {
	text := e.prepare(subject + "\n" + body)
	for _, r := range e.rules {
		for _, sub := range r.pattern.FindAllStringSubmatch(text, -1) {
			if e.accept(sub[1]) {
				return Match{Code: sub[1], Rule: r.name}, true
			}
		}
	}
	for _, run := range digitRuns.FindAllString(text, -1) {
		if len(run) == e.length && e.accept(run) {
			return Match{Code: run, Rule: RuleBare}, true
		}
	}
	return Match{}, false
}

func (e *Extractor) accept(candidate string) bool {
	if len(candidate) != e.length {
		return false
	}
	return e.length != 4 || !yearShaped.MatchString(candidate)
}

// prepare normalises text and joins spaced-out codes ("4 8 2 9") of exactly
// the configured length into one token.
func (e *Extractor) prepare(text string) string {
	text = utils.CollapseSpace(utils.FoldUnicode(utils.StripHTML(text)))
	return spacedDigits.ReplaceAllStringFunc(text, func(run string) string {
		joined := strings.ReplaceAll(run, " ", "")
		if len(joined) != e.length {
			return run
		}
		return joined
	})
}
