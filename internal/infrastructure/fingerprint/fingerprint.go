// Package fingerprint derives stable identifiers for source files and chunk text.
package fingerprint

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

var documentNamespace = uuid.MustParse("6f1d7a52-3c0e-5b8e-9a41-0d2c6e4b7f13")

// DocID is a UUIDv5 of the slash-normalized relative path, so re-ingesting the
// same file always targets the same document row.
func DocID(relativePath string) string {
	return uuid.NewSHA1(documentNamespace, []byte(NormalizePath(relativePath))).String()
}

func NormalizePath(path string) string {
	cleaned := filepath.ToSlash(filepath.Clean(strings.TrimSpace(path)))
	return strings.TrimPrefix(cleaned, "./")
}

// ContentHash is a non-cryptographic fingerprint for change detection only.
func ContentHash(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// Fingerprinter adapts the package functions to ports.Fingerprinter.
type Fingerprinter struct{}

func (Fingerprinter) DocID(relativePath string) string { return DocID(relativePath) }
func (Fingerprinter) ContentHash(text string) string   { return ContentHash(text) }
