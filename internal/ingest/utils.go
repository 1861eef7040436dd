package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
)

// Allowed reports whether path has an extension the scanner reads.
func Allowed(path string) bool {
	return constants.MapExtToFormat(filepath.Ext(path)) != ""
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
