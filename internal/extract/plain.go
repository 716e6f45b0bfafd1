package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain passes text through unchanged, substituting the replacement
// character for any invalid UTF-8 sequences.
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if utf8.ValidString(s) {
		return s, nil
	}
	return strings.ToValidUTF8(s, "�"), nil
}
