package objectkey

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// DefaultPrefix is the logical folder poster objects live under.
const DefaultPrefix = "movie-posters/"

// DefaultExtension is used when neither the file name nor the content type
// yields an extension.
const DefaultExtension = "jpg"

// Minter derives storage keys for uploaded files
type Minter interface {
	// Mint returns a key unique across the object namespace
	Mint(fileName, contentType string) string
}

// UUIDMinter places objects at {Prefix}{uuid}.{ext}. The key keeps only the
// extension of the original name, so it says nothing about the uploader.
type UUIDMinter struct {
	Prefix string
	NewID  func() string
}

// NewUUIDMinter creates a minter for prefix, normalized to end with "/".
// An empty prefix falls back to DefaultPrefix.
func NewUUIDMinter(prefix string) *UUIDMinter {
	return &UUIDMinter{
		Prefix: NormalizePrefix(prefix),
		NewID:  uuid.NewString,
	}
}

func (m *UUIDMinter) Mint(fileName, contentType string) string {
	newID := m.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return m.Prefix + newID() + "." + Extension(fileName, contentType)
}

// Extension returns the lower-cased extension of fileName, falling back to one
// derived from contentType and finally to DefaultExtension.
func Extension(fileName, contentType string) string {
	ext := strings.TrimPrefix(path.Ext(sanitizeFilename(fileName)), ".")
	if ext != "" && isPlainExtension(ext) {
		return strings.ToLower(ext)
	}
	switch strings.ToLower(contentType) {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/jpeg", "image/jpg":
		return "jpg"
	}
	return DefaultExtension
}

// NormalizePrefix makes sure a non-empty prefix ends with a single "/".
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix + "/"
}

func isPlainExtension(ext string) bool {
	if len(ext) > 10 {
		return false
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"\\", "/",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(filename)
}
