package driver

import (
	"context"
	"io"
	"regexp"
	"time"
)

// StorageDriver defines the methods a storage backend must implement to hold
// uploaded attachment content. Backends are flat key/value object stores
// addressed by slash-separated paths; directories, where they exist at all,
// are an implementation detail of the backend.
//
// Paths must match PathRegexp. All blocking operations take a
// context.Context; a timeout or cancellation surfaces as an error and must
// leave the backend unchanged, never partially committed.
type StorageDriver interface {
	// Name returns the human-readable "name" of the driver, useful in error
	// messages and logging.
	Name() string

	// GetContent retrieves the content stored at "path" as a []byte.
	// This should primarily be used for small objects.
	GetContent(ctx context.Context, path string) ([]byte, error)

	// PutContent stores the []byte content at a location designated by
	// "path". This should primarily be used for small objects.
	PutContent(ctx context.Context, path string, content []byte) error

	// Reader retrieves an io.ReadCloser for the content stored at "path"
	// with a given byte offset. The stream reads backing content on demand;
	// it must not buffer the entire object. A missing path yields a
	// PathNotFoundError, distinct from transport failures.
	Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error)

	// WriteStream stores the contents of the provided io.Reader at a
	// location designated by "path", returning the number of bytes written.
	// Existing content at the path is replaced.
	WriteStream(ctx context.Context, path string, reader io.Reader) (int64, error)

	// Stat retrieves the FileInfo for the given path, or a
	// PathNotFoundError if the path does not exist.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Move moves an object stored at sourcePath to destPath, removing the
	// original object. Within one backend this should be an atomic rename
	// wherever the backing store allows it, minimizing the window in which
	// both objects exist.
	Move(ctx context.Context, sourcePath, destPath string) error

	// Delete removes the object stored at "path". Deleting a missing path
	// is not an error; cleanup paths rely on this being idempotent.
	Delete(ctx context.Context, path string) error

	// DeletePrefix removes every object whose path shares the given prefix,
	// used for key-namespace cleanup. Deleting a prefix that matches
	// nothing is not an error.
	DeletePrefix(ctx context.Context, prefix string) error

	// URLFor returns a URL which may be used to access the content stored
	// at the given path. Recognized options include "expires_in" for
	// backends that sign time-limited URLs; unsupported options are ignored
	// rather than rejected. Backends with no URL scheme return
	// UnsupportedMethodError.
	URLFor(ctx context.Context, path string, options map[string]interface{}) (string, error)
}

// PathRegexp is the regular expression which each path must match. A path
// is one or more non-empty segments of alphanumerics and the characters
// '.', '-' and '_', separated by forward slashes.
var PathRegexp = regexp.MustCompile(`^[A-Za-z0-9._-]+(?:/[A-Za-z0-9._-]+)*$`)

// Exists reports whether an object is stored at the given path, converting
// the driver's PathNotFoundError into false.
func Exists(ctx context.Context, driver StorageDriver, path string) (bool, error) {
	_, err := driver.Stat(ctx, path)
	if err != nil {
		if _, ok := err.(PathNotFoundError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FileInfo returns information about a given path. Inspired by os.FileInfo,
// it carries only the fields object stores can answer cheaply.
type FileInfo interface {
	// Path provides the full path of the target of this file info.
	Path() string

	// Size returns the size in bytes of the object.
	Size() int64

	// ModTime returns the modification time for the object, or the zero
	// time for backends that do not track it.
	ModTime() time.Time
}

// FileInfoFields contains the exported fields of a FileInfo.
type FileInfoFields struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FileInfoInternal implements the FileInfo interface. This should only be
// used by storage drivers; users should use the FileInfo interface.
type FileInfoInternal struct {
	FileInfoFields
}

var _ FileInfo = FileInfoInternal{}

// Path provides the full path of the target of this file info.
func (fi FileInfoInternal) Path() string {
	return fi.FileInfoFields.Path
}

// Size returns the size in bytes of the object.
func (fi FileInfoInternal) Size() int64 {
	return fi.FileInfoFields.Size
}

// ModTime returns the modification time for the object.
func (fi FileInfoInternal) ModTime() time.Time {
	return fi.FileInfoFields.ModTime
}
