package analysis

import "strings"

// PathOptions controls PathAtOffset.
type PathOptions struct {
	// ExpandRight includes path characters to the right of the offset.
	ExpandRight bool
	// RequireSeparator rejects fragments without a "/". Plain identifiers are
	// left to the declaration walker.
	RequireSeparator bool
}

// PathAtOffset returns the run of path characters touching the byte offset
// in text, or "" and false if the offset is not touching a path.
//
// Path characters are everything except whitespace, parentheses, brackets,
// braces, backslash and comma. Colons are allowed so protocols and ports come
// through for the caller to reject.
func PathAtOffset(text string, offset int, opts PathOptions) (string, bool) {
	offset = min(max(offset, 0), len(text))

	start := offset
	for start > 0 && isPathByte(text[start-1]) {
		start--
	}

	end := offset
	if opts.ExpandRight {
		for end < len(text) && isPathByte(text[end]) {
			end++
		}
	}

	if start == end {
		return "", false
	}

	fragment := text[start:end]
	if opts.RequireSeparator && !strings.Contains(fragment, "/") {
		return "", false
	}

	return fragment, true
}

// All excluded characters are ASCII, so scanning bytes is safe for UTF-8.
func isPathByte(b byte) bool {
	switch b {
	case '(', ')', '{', '}', '[', ']', '\\', ',', ' ', '\t', '\n', '\r':
		return false
	default:
		return true
	}
}

// SplitPath splits a path into keys. A trailing slash only marks a folder
// and does not produce an empty final key; a leading slash produces an empty
// first key naming the filesystem root.
func SplitPath(path string) []string {
	keys := strings.Split(path, "/")
	if len(keys) > 1 && keys[len(keys)-1] == "" {
		keys = keys[:len(keys)-1]
	}

	return keys
}
