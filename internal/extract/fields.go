package extract

import (
	"regexp"
	"strings"
)

// fieldBoundary matches a line that looks like the start of another labeled
// field: a single word followed by a colon or a spaced hyphen. A colon that
// opens a URL scheme ("https://") does not count.
var fieldBoundary = regexp.MustCompile(`^(?:[A-Za-z][A-Za-z0-9#]*\s*:(?:[^/]|$)|[A-Za-z][A-Za-z0-9]*\s+-\s)`)

// labeledValue returns the value of the first line starting with any prefix.
// The bool is false when no line matched.
func labeledValue(lines []string, prefixes []string) (string, bool) {
	for _, line := range lines {
		if prefix, ok := matchPrefix(line, prefixes); ok {
			return valueAfter(line, prefix), true
		}
	}
	return "", false
}

// blockValue captures a multi-line field: the remainder of the labeled line plus
// following lines up to a blank line, another line with the same label, or a
// line that looks like a different field.
func blockValue(raw []string, prefixes []string) *string {
	start := -1
	var parts []string
	for i, line := range raw {
		line = strings.TrimSpace(line)
		if prefix, ok := matchPrefix(line, prefixes); ok {
			if v := valueAfter(line, prefix); v != "" {
				parts = append(parts, v)
			}
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	for _, line := range raw[start+1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if _, ok := matchPrefix(line, prefixes); ok {
			break
		}
		if fieldBoundary.MatchString(line) {
			break
		}
		parts = append(parts, line)
	}

	joined := strings.Join(parts, " ")
	if joined == "" {
		return nil
	}
	return &joined
}

func matchPrefix(line string, prefixes []string) (string, bool) {
	lowered := strings.ToLower(line)
	for _, prefix := range prefixes {
		if strings.HasPrefix(lowered, prefix) {
			return prefix, true
		}
	}
	return "", false
}

// valueAfter splits a labeled line on whichever separator comes first. A hyphen
// only separates when it is not inside a number, so "Due 2023-09-01" keeps the
// date.
func valueAfter(line, prefix string) string {
	i := strings.Index(line, ":")
	if h := labelHyphen(line); h >= 0 && (i < 0 || h < i) {
		i = h
	}
	if i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return strings.TrimSpace(line[len(prefix):])
}

func labelHyphen(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != '-' {
			continue
		}
		if i > 0 && isDigit(line[i-1]) && i+1 < len(line) && isDigit(line[i+1]) {
			continue
		}
		return i
	}
	return -1
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
