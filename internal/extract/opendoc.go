package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

var (
	zipMagic  = []byte("PK\x03\x04")
	rtfHeader = []byte(`{\rtf`)
)

// extractOpenDoc extracts text from OpenDocument (.odt) and RTF files. The
// container is validated up front: cat treats unrecognized bytes as plain
// text, which would silently pass binary garbage through as content.
func extractOpenDoc(content []byte, ext string) (string, error) {
	switch ext {
	case ".odt":
		if !bytes.HasPrefix(content, zipMagic) {
			return "", fmt.Errorf("extract odt: not a zip container")
		}
	case ".rtf":
		if !bytes.HasPrefix(content, rtfHeader) {
			return "", fmt.Errorf("extract rtf: missing rtf header")
		}
	}
	txt, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return strings.TrimSpace(txt), nil
}
