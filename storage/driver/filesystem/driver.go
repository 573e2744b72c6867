// Package filesystem provides a storage driver backed by a local directory
// tree. All paths are namespaced under a configurable root directory.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	storagedriver "github.com/attachkit/attachkit/storage/driver"
	"github.com/attachkit/attachkit/storage/driver/base"
	"github.com/attachkit/attachkit/storage/driver/factory"
)

const driverName = "filesystem"

const defaultRootDirectory = "/var/lib/attachkit"

func init() {
	factory.Register(driverName, &filesystemDriverFactory{})
}

// filesystemDriverFactory implements the factory.StorageDriverFactory
// interface.
type filesystemDriverFactory struct{}

func (f *filesystemDriverFactory) Create(parameters map[string]interface{}) (storagedriver.StorageDriver, error) {
	return FromParameters(parameters)
}

// DriverParameters holds the configuration of the filesystem driver.
type DriverParameters struct {
	RootDirectory string `mapstructure:"rootdirectory"`
}

type driver struct {
	rootDirectory string
}

type baseEmbed struct {
	base.Base
}

// Driver is a storagedriver.StorageDriver implementation backed by a local
// filesystem. All provided paths are subpaths of the root directory.
type Driver struct {
	baseEmbed
}

// FromParameters constructs a new Driver from a parameter map. Optional
// parameters:
//   - rootdirectory
func FromParameters(parameters map[string]interface{}) (*Driver, error) {
	params := DriverParameters{
		RootDirectory: defaultRootDirectory,
	}
	if parameters != nil {
		if err := mapstructure.Decode(parameters, &params); err != nil {
			return nil, fmt.Errorf("parsing filesystem parameters: %w", err)
		}
	}
	return New(params.RootDirectory), nil
}

// New constructs a new Driver rooted at the given directory.
func New(rootDirectory string) *Driver {
	return &Driver{
		baseEmbed: baseEmbed{
			Base: base.Base{
				StorageDriver: &driver{rootDirectory: rootDirectory},
			},
		},
	}
}

// fullPath returns the absolute path of a key within the driver's storage.
func (d *driver) fullPath(subPath string) string {
	return filepath.Join(d.rootDirectory, filepath.FromSlash(subPath))
}

// Implement the storagedriver.StorageDriver interface.

func (d *driver) Name() string {
	return driverName
}

// GetContent retrieves the content stored at "path" as a []byte.
func (d *driver) GetContent(ctx context.Context, path string) ([]byte, error) {
	rc, err := d.Reader(ctx, path, 0)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// PutContent stores the []byte content at a location designated by "path".
func (d *driver) PutContent(ctx context.Context, subPath string, contents []byte) error {
	writer := func(file *os.File) error {
		_, err := file.Write(contents)
		return err
	}
	return d.commitWrite(subPath, writer)
}

// Reader retrieves an io.ReadCloser for the content stored at "path" with a
// given byte offset.
func (d *driver) Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	file, err := os.Open(d.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
		}
		return nil, storagedriver.Error{DriverName: driverName, Detail: err}
	}

	seekPos, err := file.Seek(offset, io.SeekStart)
	if err != nil {
		file.Close()
		return nil, storagedriver.Error{DriverName: driverName, Detail: err}
	} else if seekPos < offset {
		file.Close()
		return nil, storagedriver.InvalidOffsetError{Path: path, Offset: offset, DriverName: driverName}
	}

	return file, nil
}

// WriteStream stores the contents of the provided io.Reader at "path". The
// content is staged in a temporary file next to the destination and renamed
// into place, so a failed or cancelled write never leaves a partial object.
func (d *driver) WriteStream(ctx context.Context, subPath string, reader io.Reader) (int64, error) {
	var nn int64
	writer := func(file *os.File) error {
		var err error
		nn, err = io.Copy(file, reader)
		return err
	}
	if err := d.commitWrite(subPath, writer); err != nil {
		return 0, err
	}
	return nn, nil
}

// commitWrite writes through a temporary file in the destination directory,
// renaming into place only after the write function succeeds.
func (d *driver) commitWrite(subPath string, write func(*os.File) error) error {
	fullPath := d.fullPath(subPath)
	parentDir := path.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}

	tmp, err := os.CreateTemp(parentDir, ".tmp-*")
	if err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return nil
}

// Stat returns info about the provided path.
func (d *driver) Stat(ctx context.Context, subPath string) (storagedriver.FileInfo, error) {
	fi, err := os.Stat(d.fullPath(subPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storagedriver.PathNotFoundError{Path: subPath, DriverName: driverName}
		}
		return nil, storagedriver.Error{DriverName: driverName, Detail: err}
	}

	return storagedriver.FileInfoInternal{FileInfoFields: storagedriver.FileInfoFields{
		Path:    subPath,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}}, nil
}

// Move moves an object stored at sourcePath to destPath using an atomic
// rename, removing the original object.
func (d *driver) Move(ctx context.Context, sourcePath, destPath string) error {
	source := d.fullPath(sourcePath)
	dest := d.fullPath(destPath)

	if _, err := os.Stat(source); os.IsNotExist(err) {
		return storagedriver.PathNotFoundError{Path: sourcePath, DriverName: driverName}
	}

	if err := os.MkdirAll(path.Dir(dest), 0o755); err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	if err := os.Rename(source, dest); err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return nil
}

// Delete removes the object stored at "path", tolerating a missing path.
func (d *driver) Delete(ctx context.Context, subPath string) error {
	err := os.Remove(d.fullPath(subPath))
	if err != nil && !os.IsNotExist(err) {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return nil
}

// DeletePrefix removes every object under the given prefix, tolerating a
// prefix that matches nothing.
func (d *driver) DeletePrefix(ctx context.Context, prefix string) error {
	if err := os.RemoveAll(d.fullPath(prefix)); err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return nil
}

// URLFor returns a file: URL for the given path. Options are ignored; the
// local filesystem cannot sign URLs.
func (d *driver) URLFor(ctx context.Context, subPath string, options map[string]interface{}) (string, error) {
	fullPath, err := filepath.Abs(d.fullPath(subPath))
	if err != nil {
		return "", storagedriver.Error{DriverName: driverName, Detail: err}
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(fullPath)}
	return u.String(), nil
}
