package attachkit

import (
	"path"
	"strings"
)

// Conventional storage keys. Attachments are uploaded to cache storage and
// moved to store storage once the owning record has been durably saved.
const (
	CacheStorage = "cache"
	StoreStorage = "store"
)

// File references one stored object: an id relative to the backend named by
// StorageKey, plus the metadata extracted at upload time. A File is
// immutable once constructed.
//
// Two Files are equal iff their ID and StorageKey match; metadata is
// informational and does not participate in identity.
type File struct {
	ID         string   `json:"id"`
	StorageKey string   `json:"storage_key"`
	Metadata   Metadata `json:"metadata"`
}

// Equal reports whether f and other reference the same stored object.
func (f File) Equal(other File) bool {
	return f.ID == other.ID && f.StorageKey == other.StorageKey
}

// Extension returns the file extension, including the leading dot, derived
// from the original filename when known and from the id otherwise. Names
// without a dot suffix, names ending in a dot and missing filenames all
// yield the empty string.
func (f File) Extension() string {
	if f.Metadata.Filename != nil {
		if ext := Extension(*f.Metadata.Filename); ext != "" {
			return ext
		}
	}
	return Extension(f.ID)
}

// Extension derives a file extension from name, including the leading dot.
// It returns the empty string for names with no dot suffix, names ending in
// a dot and empty names.
func Extension(name string) string {
	base := path.Base(strings.TrimSuffix(name, "/"))
	ext := path.Ext(base)
	if ext == "." || ext == base {
		// trailing dot, or a dotfile such as ".profile"
		return ""
	}
	return ext
}
