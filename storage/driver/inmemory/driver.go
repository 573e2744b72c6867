// Package inmemory provides a storage driver backed by a local map.
// Intended for tests and examples; contents do not survive the process.
package inmemory

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	storagedriver "github.com/attachkit/attachkit/storage/driver"
	"github.com/attachkit/attachkit/storage/driver/base"
	"github.com/attachkit/attachkit/storage/driver/factory"
)

const driverName = "inmemory"

func init() {
	factory.Register(driverName, &inMemoryDriverFactory{})
}

// inMemoryDriverFactory implements the factory.StorageDriverFactory
// interface.
type inMemoryDriverFactory struct{}

func (f *inMemoryDriverFactory) Create(parameters map[string]interface{}) (storagedriver.StorageDriver, error) {
	return New(), nil
}

type object struct {
	data    []byte
	modTime time.Time
}

type driver struct {
	mutex   sync.RWMutex
	objects map[string]object
}

// baseEmbed allows us to hide the Base embed.
type baseEmbed struct {
	base.Base
}

// Driver is a storagedriver.StorageDriver implementation backed by a local
// map guarded by a read/write mutex.
type Driver struct {
	baseEmbed
}

// New constructs a new Driver.
func New() *Driver {
	return &Driver{
		baseEmbed: baseEmbed{
			Base: base.Base{
				StorageDriver: &driver{
					objects: make(map[string]object),
				},
			},
		},
	}
}

// Implement the storagedriver.StorageDriver interface.

func (d *driver) Name() string {
	return driverName
}

// GetContent retrieves the content stored at "path" as a []byte.
func (d *driver) GetContent(ctx context.Context, path string) ([]byte, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	obj, ok := d.objects[path]
	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
	}

	contents := make([]byte, len(obj.data))
	copy(contents, obj.data)
	return contents, nil
}

// PutContent stores the []byte content at a location designated by "path".
func (d *driver) PutContent(ctx context.Context, path string, contents []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	data := make([]byte, len(contents))
	copy(data, contents)
	d.objects[path] = object{data: data, modTime: time.Now()}
	return nil
}

// Reader retrieves an io.ReadCloser for the content stored at "path" with a
// given byte offset.
func (d *driver) Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	obj, ok := d.objects[path]
	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
	}

	if offset > int64(len(obj.data)) {
		return nil, storagedriver.InvalidOffsetError{Path: path, Offset: offset, DriverName: driverName}
	}

	return io.NopCloser(bytes.NewReader(obj.data[offset:])), nil
}

// WriteStream stores the contents of the provided io.Reader at "path".
func (d *driver) WriteStream(ctx context.Context, path string, reader io.Reader) (int64, error) {
	var buf bytes.Buffer
	nn, err := buf.ReadFrom(reader)
	if err != nil {
		return nn, storagedriver.Error{DriverName: driverName, Detail: err}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.objects[path] = object{data: buf.Bytes(), modTime: time.Now()}
	return nn, nil
}

// Stat returns info about the provided path.
func (d *driver) Stat(ctx context.Context, path string) (storagedriver.FileInfo, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	obj, ok := d.objects[path]
	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
	}

	return storagedriver.FileInfoInternal{FileInfoFields: storagedriver.FileInfoFields{
		Path:    path,
		Size:    int64(len(obj.data)),
		ModTime: obj.modTime,
	}}, nil
}

// Move moves an object stored at sourcePath to destPath, removing the
// original object.
func (d *driver) Move(ctx context.Context, sourcePath, destPath string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	obj, ok := d.objects[sourcePath]
	if !ok {
		return storagedriver.PathNotFoundError{Path: sourcePath, DriverName: driverName}
	}

	d.objects[destPath] = obj
	delete(d.objects, sourcePath)
	return nil
}

// Delete removes the object stored at "path", tolerating a missing path.
func (d *driver) Delete(ctx context.Context, path string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	delete(d.objects, path)
	return nil
}

// DeletePrefix removes every object whose path shares the given prefix.
func (d *driver) DeletePrefix(ctx context.Context, prefix string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for path := range d.objects {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			delete(d.objects, path)
		}
	}
	return nil
}

// URLFor is unsupported: there is no way to address process memory by URL.
func (d *driver) URLFor(ctx context.Context, path string, options map[string]interface{}) (string, error) {
	return "", storagedriver.UnsupportedMethodError{Method: "URLFor", DriverName: driverName}
}
