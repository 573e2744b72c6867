package attacher

import (
	"context"
	"encoding/json"
	"io"

	"github.com/attachkit/attachkit"
	"github.com/attachkit/attachkit/uploader"
)

// Collection tracks an ordered sequence of attachments on one field. Add,
// Remove and Clear mutate the sequence directly and mark the whole field
// dirty; Promote, Persist and AfterDestroy apply element-wise.
type Collection struct {
	uploader *uploader.Uploader
	config   config

	files []*attachkit.File
	dirty bool
}

// NewCollection constructs an empty Collection uploading through u.
func NewCollection(u *uploader.Uploader, opts ...Option) *Collection {
	return &Collection{
		uploader: u,
		config:   newConfig(opts),
	}
}

// LoadCollection constructs a Collection from persisted references.
func LoadCollection(u *uploader.Uploader, files []*attachkit.File, opts ...Option) *Collection {
	c := NewCollection(u, opts...)
	c.files = append(c.files, files...)
	return c
}

// Files returns the attached references in order. The returned slice is the
// collection's own backing storage; callers must not mutate it.
func (c *Collection) Files() []*attachkit.File {
	return c.files
}

// Len returns the number of attached files.
func (c *Collection) Len() int {
	return len(c.files)
}

// Dirty reports whether the sequence changed since the last Persist.
func (c *Collection) Dirty() bool {
	return c.dirty
}

// Add uploads content to cache storage and appends it to the sequence.
func (c *Collection) Add(ctx context.Context, content io.Reader, uc attachkit.UploadContext) (*attachkit.File, error) {
	f, err := c.uploader.Upload(ctx, content, c.config.cacheKey, uc)
	if err != nil {
		return nil, err
	}
	c.files = append(c.files, f)
	c.dirty = true
	return f, nil
}

// Remove deletes the element at index i, removing its backing object. The
// index must be in range.
func (c *Collection) Remove(ctx context.Context, i int) error {
	f := c.files[i]
	if err := c.deleteFile(ctx, f); err != nil {
		return err
	}
	c.files = append(c.files[:i], c.files[i+1:]...)
	c.dirty = true
	return nil
}

// Clear empties the sequence, removing every backing object.
func (c *Collection) Clear(ctx context.Context) error {
	for _, f := range c.files {
		if err := c.deleteFile(ctx, f); err != nil {
			return err
		}
	}
	c.files = nil
	c.dirty = true
	return nil
}

// Promote moves every cached element into store storage. Elements already
// stored are left alone.
func (c *Collection) Promote(ctx context.Context) error {
	for i, f := range c.files {
		if f.StorageKey != c.config.cacheKey {
			continue
		}
		moved, err := c.uploader.Move(ctx, f, c.config.storeKey)
		if err != nil {
			return err
		}
		c.files[i] = moved
	}
	return nil
}

// Persist marks the sequence clean after the owning record's durable write.
func (c *Collection) Persist(ctx context.Context) error {
	c.dirty = false
	return nil
}

// DestroyAttached removes the backing object of every element. Intended for
// the record-destroyed hook; the sequence itself is left in place.
func (c *Collection) DestroyAttached(ctx context.Context) error {
	for _, f := range c.files {
		if err := c.deleteFile(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// BeforeSave promotes cached elements ahead of the record write.
func (c *Collection) BeforeSave(ctx context.Context) error {
	return c.Promote(ctx)
}

// AfterSave persists the field after the record write has succeeded.
func (c *Collection) AfterSave(ctx context.Context) error {
	return c.Persist(ctx)
}

// AfterDestroy removes every backing object once the record is gone.
func (c *Collection) AfterDestroy(ctx context.Context) error {
	return c.DestroyAttached(ctx)
}

func (c *Collection) deleteFile(ctx context.Context, f *attachkit.File) error {
	driver, err := c.uploader.Registry().Driver(f.StorageKey)
	if err != nil {
		return err
	}
	return driver.Delete(ctx, f.ID)
}

// MarshalJSON serializes the sequence as a JSON array, [] when empty.
func (c *Collection) MarshalJSON() ([]byte, error) {
	if len(c.files) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(c.files)
}

// UnmarshalJSON restores a persisted sequence. The collection comes back
// clean.
func (c *Collection) UnmarshalJSON(p []byte) error {
	var files []*attachkit.File
	if err := json.Unmarshal(p, &files); err != nil {
		return err
	}
	c.files = files
	c.dirty = false
	return nil
}
