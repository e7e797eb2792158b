// Package commands turns chat text into store and retrieval operations and
// renders their results as reply text.
package commands

import (
	"strings"
)

// Command is a parsed "/name arg ..." message.
type Command struct {
	Name string
	Args []string
}

// Parse splits chat text into a command. Text that does not start with "/"
// is not a command. A "@botname" suffix on the name is dropped.
func Parse(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(name), Args: fields[1:]}, true
}
