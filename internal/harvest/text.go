package harvest

import "strings"

// CollapseWhitespace trims the string and squeezes internal whitespace runs
// down to single spaces, so extracted text is stable across render jitter.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
