package commands

import "strings"

// DefaultChunkSize keeps each reply below common chat message limits.
const DefaultChunkSize = 3800

// Chunk splits text into segments of at most size runes. A segment ends at
// the last newline inside the window when there is one.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var out []string
	for len(runes) > size {
		cut := size
		for i := size - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		if seg := strings.TrimRight(string(runes[:cut]), "\n"); seg != "" {
			out = append(out, seg)
		}
		runes = runes[cut:]
	}
	if seg := string(runes); strings.TrimLeft(seg, "\n") != "" {
		out = append(out, seg)
	}
	return out
}
