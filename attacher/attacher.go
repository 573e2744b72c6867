// Package attacher implements the attachment lifecycle for one field on one
// record: content is attached to cache storage, promoted to store storage
// before the record is saved, and superseded objects are cleaned up only
// after the save has durably succeeded.
//
// An Attacher provides no internal locking. Operations on one instance must
// be invoked sequentially; distinct instances are independent.
package attacher

import (
	"context"
	"encoding/json"
	"io"

	"github.com/attachkit/attachkit"
	"github.com/attachkit/attachkit/internal/dcontext"
	storagedriver "github.com/attachkit/attachkit/storage/driver"
	"github.com/attachkit/attachkit/uploader"
)

// State describes which storage, if any, currently backs an attachment.
type State int

const (
	// Empty means no object is attached.
	Empty State = iota
	// Cached means the attached object lives in cache storage and has not
	// been promoted yet.
	Cached
	// Stored means the attached object lives in store storage.
	Stored
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Cached:
		return "cached"
	case Stored:
		return "stored"
	}
	return "unknown"
}

// Lifecycle is the hook surface a record layer drives, in this order per
// save: BeforeSave, the record's own durable write, AfterSave. AfterDestroy
// runs when the owning record is removed. Both Attacher and Collection
// satisfy it.
type Lifecycle interface {
	BeforeSave(ctx context.Context) error
	AfterSave(ctx context.Context) error
	AfterDestroy(ctx context.Context) error
}

// Option configures an Attacher or Collection.
type Option func(*config)

type config struct {
	cacheKey string
	storeKey string
}

// WithCacheStorage overrides the storage key used for freshly attached
// content.
func WithCacheStorage(key string) Option {
	return func(c *config) {
		c.cacheKey = key
	}
}

// WithStoreStorage overrides the storage key promoted content is moved to.
func WithStoreStorage(key string) Option {
	return func(c *config) {
		c.storeKey = key
	}
}

func newConfig(opts []Option) config {
	c := config{
		cacheKey: attachkit.CacheStorage,
		storeKey: attachkit.StoreStorage,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Attacher tracks one attachment field on one record instance. current is
// the reference the field resolves to; previous holds a reference superseded
// by a not-yet-persisted change, kept alive until Persist so a failed save
// never loses the only remaining copy.
type Attacher struct {
	uploader *uploader.Uploader
	config   config

	current  *attachkit.File
	previous *attachkit.File
	dirty    bool
}

// New constructs an empty Attacher uploading through u.
func New(u *uploader.Uploader, opts ...Option) *Attacher {
	return &Attacher{
		uploader: u,
		config:   newConfig(opts),
	}
}

// Load constructs an Attacher from a persisted reference, as read back from
// the record's column. A nil file yields an empty attacher.
func Load(u *uploader.Uploader, f *attachkit.File, opts ...Option) *Attacher {
	a := New(u, opts...)
	a.current = f
	return a
}

// State reports the lifecycle state derived from the current reference.
func (a *Attacher) State() State {
	switch {
	case a.current == nil:
		return Empty
	case a.current.StorageKey == a.config.cacheKey:
		return Cached
	default:
		return Stored
	}
}

// File returns the current reference, or nil when empty.
func (a *Attacher) File() *attachkit.File {
	return a.current
}

// Dirty reports whether the field changed since the last Persist.
func (a *Attacher) Dirty() bool {
	return a.dirty
}

// Attach uploads content to cache storage and makes it the current
// reference. An existing current moves to previous for deferred cleanup; an
// unpersisted cached current it supersedes is deleted right away since no
// durable row ever pointed at it. Upload failures leave state unchanged.
func (a *Attacher) Attach(ctx context.Context, content io.Reader, uc attachkit.UploadContext) (*attachkit.File, error) {
	f, err := a.uploader.Upload(ctx, content, a.config.cacheKey, uc)
	if err != nil {
		return nil, err
	}
	a.replace(ctx, f)
	return f, nil
}

// Detach clears the current reference, moving it to previous for deferred
// cleanup on the next Persist.
func (a *Attacher) Detach(ctx context.Context) {
	a.replace(ctx, nil)
}

// replace installs f as current, retiring the old current. The first
// superseded reference of a save cycle is kept as previous; later cached
// intermediates are deleted eagerly, best effort.
func (a *Attacher) replace(ctx context.Context, f *attachkit.File) {
	if a.current != nil {
		if a.previous == nil {
			a.previous = a.current
		} else if a.current.StorageKey == a.config.cacheKey {
			if err := a.deleteFile(ctx, a.current); err != nil {
				dcontext.GetLogger(ctx).WithError(err).Warnf("deleting superseded cached object %s", a.current.ID)
			}
		}
	}
	a.current = f
	a.dirty = true
}

// Promote moves a cached current reference into store storage. It is a
// no-op, not an error, in any other state. The caller must invoke it before
// the record's durable write; if that write then fails, the new store object
// leaks and previous stays intact, which beats losing the old copy.
func (a *Attacher) Promote(ctx context.Context) error {
	if a.State() != Cached {
		return nil
	}
	moved, err := a.uploader.Move(ctx, a.current, a.config.storeKey)
	if err != nil {
		return err
	}
	a.current = moved
	return nil
}

// Persist finalizes a save cycle after the owning record has been durably
// written: the superseded previous object is deleted and the field is marked
// clean. Calling it before the record write is durable risks deleting the
// only remaining reference.
func (a *Attacher) Persist(ctx context.Context) error {
	if !a.dirty {
		return nil
	}
	if a.previous != nil {
		if err := a.deleteFile(ctx, a.previous); err != nil {
			return err
		}
		a.previous = nil
	}
	a.dirty = false
	return nil
}

// DestroyAttached deletes the backing object of the current reference.
// Intended for the record-destroyed hook; missing objects are tolerated.
func (a *Attacher) DestroyAttached(ctx context.Context) error {
	if a.current == nil {
		return nil
	}
	return a.deleteFile(ctx, a.current)
}

// BeforeSave promotes cached content ahead of the record write.
func (a *Attacher) BeforeSave(ctx context.Context) error {
	return a.Promote(ctx)
}

// AfterSave persists the field after the record write has succeeded.
func (a *Attacher) AfterSave(ctx context.Context) error {
	return a.Persist(ctx)
}

// AfterDestroy removes the backing object once the record is gone.
func (a *Attacher) AfterDestroy(ctx context.Context) error {
	return a.DestroyAttached(ctx)
}

// Exists reports whether the current reference still has a backing object.
// An empty attacher never does.
func (a *Attacher) Exists(ctx context.Context) (bool, error) {
	if a.current == nil {
		return false, nil
	}
	driver, err := a.uploader.Registry().Driver(a.current.StorageKey)
	if err != nil {
		return false, err
	}
	return storagedriver.Exists(ctx, driver, a.current.ID)
}

// Open returns a lazy reader over the current reference's content.
func (a *Attacher) Open(ctx context.Context) (io.ReadCloser, error) {
	if a.current == nil {
		return nil, attachkit.InvalidFileError{Reason: "no file attached"}
	}
	driver, err := a.uploader.Registry().Driver(a.current.StorageKey)
	if err != nil {
		return nil, err
	}
	return driver.Reader(ctx, a.current.ID, 0)
}

// URL builds an access URL for the current reference. Options pass through
// to the backend; see the driver documentation for recognized keys such as
// "expires_in".
func (a *Attacher) URL(ctx context.Context, options map[string]interface{}) (string, error) {
	if a.current == nil {
		return "", attachkit.InvalidFileError{Reason: "no file attached"}
	}
	driver, err := a.uploader.Registry().Driver(a.current.StorageKey)
	if err != nil {
		return "", err
	}
	return driver.URLFor(ctx, a.current.ID, options)
}

func (a *Attacher) deleteFile(ctx context.Context, f *attachkit.File) error {
	driver, err := a.uploader.Registry().Driver(f.StorageKey)
	if err != nil {
		return err
	}
	return driver.Delete(ctx, f.ID)
}

// MarshalJSON serializes the current reference, or null when empty. This is
// the persisted column representation.
func (a *Attacher) MarshalJSON() ([]byte, error) {
	if a.current == nil {
		return []byte("null"), nil
	}
	return json.Marshal(a.current)
}

// UnmarshalJSON restores a persisted reference. The attacher comes back
// clean, with no pending previous.
func (a *Attacher) UnmarshalJSON(p []byte) error {
	if string(p) == "null" {
		a.current = nil
		a.previous = nil
		a.dirty = false
		return nil
	}
	var f attachkit.File
	if err := json.Unmarshal(p, &f); err != nil {
		return err
	}
	a.current = &f
	a.previous = nil
	a.dirty = false
	return nil
}
