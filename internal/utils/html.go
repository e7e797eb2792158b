package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// IsHTML checks if the content appears to be HTML
func IsHTML(content string) bool {
	htmlTags := []string{"<html", "<body", "<p>", "<br", "<div", "<span", "<table", "<td", "<a ", "<strong>", "<b>"}

	contentLower := strings.ToLower(content)
	for _, tag := range htmlTags {
		if strings.Contains(contentLower, tag) {
			return true
		}
	}

	return false
}

// StripHTML removes all tags and unescapes entities. Adjacent elements are
// separated by a space so "<td>Code</td><td>1234</td>" does not fuse.
func StripHTML(input string) string {
	if input == "" {
		return ""
	}
	spaced := strings.ReplaceAll(input, ">", "> ")
	return html.UnescapeString(strictPolicy.Sanitize(spaced))
}
