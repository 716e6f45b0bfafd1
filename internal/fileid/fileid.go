// Package fileid derives stable document identifiers from filesystem paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// FileDocID hashes the cleaned path into a prefixed hex digest. The same
// path always maps to the same document, so re-ingesting a file updates it
// in place and removal by path needs no lookup.
func FileDocID(absolutePath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return prefix + hex.EncodeToString(sum[:])
}
