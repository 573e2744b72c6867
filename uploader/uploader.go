// Package uploader orchestrates one upload: extract metadata, derive a
// storage location and write the bytes, returning the attachkit.File
// reference for the stored object.
package uploader

import (
	"context"
	"io"
	"strings"

	"github.com/attachkit/attachkit"
	"github.com/attachkit/attachkit/analyzer"
	"github.com/attachkit/attachkit/internal/dcontext"
	"github.com/attachkit/attachkit/internal/uuid"
	storagedriver "github.com/attachkit/attachkit/storage/driver"
)

// LocationFunc derives the storage id for a new upload. The default
// implementation produces a random, collision-resistant token suffixed with
// the derived file extension; callers wanting structured paths (for example
// date-partitioned directories) install their own.
type LocationFunc func(uc attachkit.UploadContext, md attachkit.Metadata) string

// Uploader writes content to a storage backend resolved through the
// registry, running its analyzer pipeline first. A zero analyzer list is
// valid and produces empty metadata.
type Uploader struct {
	registry  *attachkit.Registry
	analyzers []analyzer.Analyzer
	location  LocationFunc
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithAnalyzers replaces the default analyzer pipeline.
func WithAnalyzers(analyzers ...analyzer.Analyzer) Option {
	return func(u *Uploader) {
		u.analyzers = analyzers
	}
}

// WithLocation replaces the default location generation step.
func WithLocation(fn LocationFunc) Option {
	return func(u *Uploader) {
		u.location = fn
	}
}

// New constructs an Uploader resolving storage keys through registry. The
// default pipeline records size, filename and a sniffed MIME type.
func New(registry *attachkit.Registry, opts ...Option) *Uploader {
	u := &Uploader{
		registry:  registry,
		analyzers: []analyzer.Analyzer{analyzer.Size(), analyzer.Filename(), analyzer.MIME(analyzer.SniffMIME)},
		location:  defaultLocation,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Registry returns the storage registry the uploader resolves keys through.
func (u *Uploader) Registry() *attachkit.Registry {
	return u.registry
}

// Upload extracts metadata from content, derives a storage id and writes the
// bytes to the backend registered under storageKey. Analyzer rejections
// surface as attachkit.InvalidFileError before anything is written.
func (u *Uploader) Upload(ctx context.Context, content io.Reader, storageKey string, uc attachkit.UploadContext) (*attachkit.File, error) {
	driver, err := u.registry.Driver(storageKey)
	if err != nil {
		return nil, err
	}

	src, cleanup, err := spool(content)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	md, err := analyzer.Run(ctx, u.analyzers, src, uc)
	if err != nil {
		return nil, err
	}

	id := u.location(uc, md)
	if _, err := driver.WriteStream(ctx, id, src); err != nil {
		return nil, err
	}

	dcontext.GetLoggerWithField(ctx, "storage", storageKey).Debugf("uploaded %s", id)

	return &attachkit.File{ID: id, StorageKey: storageKey, Metadata: md}, nil
}

// Move re-homes the object behind f into the backend registered under
// toStorageKey, returning the new reference and removing the source object.
// When both storage keys resolve to the same driver the object is renamed
// atomically; otherwise it is streamed across and the source deleted
// afterwards. Metadata carries over unchanged; the id is always fresh.
func (u *Uploader) Move(ctx context.Context, f *attachkit.File, toStorageKey string) (*attachkit.File, error) {
	source, err := u.registry.Driver(f.StorageKey)
	if err != nil {
		return nil, err
	}
	dest, err := u.registry.Driver(toStorageKey)
	if err != nil {
		return nil, err
	}

	id := u.location(attachkit.UploadContext{Filename: filenameOf(f)}, f.Metadata)

	if source == dest {
		if err := source.Move(ctx, f.ID, id); err != nil {
			return nil, err
		}
	} else {
		rc, err := source.Reader(ctx, f.ID, 0)
		if err != nil {
			return nil, err
		}
		_, werr := dest.WriteStream(ctx, id, rc)
		rc.Close()
		if werr != nil {
			return nil, werr
		}
		if err := source.Delete(ctx, f.ID); err != nil {
			return nil, err
		}
	}

	dcontext.GetLoggerWithField(ctx, "storage", toStorageKey).Debugf("moved %s to %s", f.ID, id)

	return &attachkit.File{ID: id, StorageKey: toStorageKey, Metadata: f.Metadata}, nil
}

// defaultLocation produces "<uuid><ext>" where ext is derived from the
// original filename and sanitized to fit the driver path grammar.
func defaultLocation(uc attachkit.UploadContext, md attachkit.Metadata) string {
	return uuid.NewString() + sanitizeExtension(extensionOf(uc, md))
}

func extensionOf(uc attachkit.UploadContext, md attachkit.Metadata) string {
	if md.Filename != nil {
		if ext := attachkit.Extension(*md.Filename); ext != "" {
			return ext
		}
	}
	return attachkit.Extension(uc.Filename)
}

func filenameOf(f *attachkit.File) string {
	if f.Metadata.Filename != nil {
		return *f.Metadata.Filename
	}
	return f.ID
}

// sanitizeExtension lowercases the extension and drops it entirely if it
// contains characters outside the driver path grammar.
func sanitizeExtension(ext string) string {
	if ext == "" {
		return ""
	}
	ext = strings.ToLower(ext)
	if !storagedriver.PathRegexp.MatchString("x" + ext) {
		return ""
	}
	return ext
}
