// Package base provides a base implementation of the storage driver that
// can be used to implement common checks.
//
// The canonical approach is to embed Base in the exported driver struct,
// proxying calls through the validation and logging layer to an internal
// driver type which implements the actual logic:
//
//	type driver struct { ... internal ... }
//
//	type baseEmbed struct {
//		base.Base
//	}
//
//	type Driver struct {
//		baseEmbed
//	}
//
// Because Driver embeds Base it implements StorageDriver. If a driver needs
// to intercept a call before it reaches Base it implements that method
// itself.
package base

import (
	"context"
	"io"
	"time"

	"github.com/attachkit/attachkit/internal/dcontext"
	storagedriver "github.com/attachkit/attachkit/storage/driver"
)

// Base provides a wrapper around a storagedriver implementation that adds
// common path validation and duration logging.
type Base struct {
	storagedriver.StorageDriver
}

// logOperation returns a deferrable which logs the method duration at debug
// level under the driver's name.
func (base *Base) logOperation(ctx context.Context, methodName string) func() {
	startedAt := time.Now()

	return func() {
		dcontext.GetLoggerWithField(ctx, "driver", base.StorageDriver.Name()).
			Debugf("storage.%s took %v", methodName, time.Since(startedAt))
	}
}

// GetContent wraps GetContent of the underlying storage driver.
func (base *Base) GetContent(ctx context.Context, path string) ([]byte, error) {
	if !storagedriver.PathRegexp.MatchString(path) {
		return nil, storagedriver.InvalidPathError{Path: path, DriverName: base.Name()}
	}

	defer base.logOperation(ctx, "GetContent")()

	return base.StorageDriver.GetContent(ctx, path)
}

// PutContent wraps PutContent of the underlying storage driver.
func (base *Base) PutContent(ctx context.Context, path string, content []byte) error {
	if !storagedriver.PathRegexp.MatchString(path) {
		return storagedriver.InvalidPathError{Path: path, DriverName: base.Name()}
	}

	defer base.logOperation(ctx, "PutContent")()

	return base.StorageDriver.PutContent(ctx, path, content)
}

// Reader wraps Reader of the underlying storage driver.
func (base *Base) Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	if offset < 0 {
		return nil, storagedriver.InvalidOffsetError{Path: path, Offset: offset, DriverName: base.Name()}
	}

	if !storagedriver.PathRegexp.MatchString(path) {
		return nil, storagedriver.InvalidPathError{Path: path, DriverName: base.Name()}
	}

	defer base.logOperation(ctx, "Reader")()

	return base.StorageDriver.Reader(ctx, path, offset)
}

// WriteStream wraps WriteStream of the underlying storage driver.
func (base *Base) WriteStream(ctx context.Context, path string, reader io.Reader) (int64, error) {
	if !storagedriver.PathRegexp.MatchString(path) {
		return 0, storagedriver.InvalidPathError{Path: path, DriverName: base.Name()}
	}

	defer base.logOperation(ctx, "WriteStream")()

	return base.StorageDriver.WriteStream(ctx, path, reader)
}

// Stat wraps Stat of the underlying storage driver.
func (base *Base) Stat(ctx context.Context, path string) (storagedriver.FileInfo, error) {
	if !storagedriver.PathRegexp.MatchString(path) {
		return nil, storagedriver.InvalidPathError{Path: path, DriverName: base.Name()}
	}

	defer base.logOperation(ctx, "Stat")()

	return base.StorageDriver.Stat(ctx, path)
}

// Move wraps Move of the underlying storage driver.
func (base *Base) Move(ctx context.Context, sourcePath, destPath string) error {
	if !storagedriver.PathRegexp.MatchString(sourcePath) {
		return storagedriver.InvalidPathError{Path: sourcePath, DriverName: base.Name()}
	} else if !storagedriver.PathRegexp.MatchString(destPath) {
		return storagedriver.InvalidPathError{Path: destPath, DriverName: base.Name()}
	}

	defer base.logOperation(ctx, "Move")()

	return base.StorageDriver.Move(ctx, sourcePath, destPath)
}

// Delete wraps Delete of the underlying storage driver.
func (base *Base) Delete(ctx context.Context, path string) error {
	if !storagedriver.PathRegexp.MatchString(path) {
		return storagedriver.InvalidPathError{Path: path, DriverName: base.Name()}
	}

	defer base.logOperation(ctx, "Delete")()

	return base.StorageDriver.Delete(ctx, path)
}

// DeletePrefix wraps DeletePrefix of the underlying storage driver.
func (base *Base) DeletePrefix(ctx context.Context, prefix string) error {
	if !storagedriver.PathRegexp.MatchString(prefix) {
		return storagedriver.InvalidPathError{Path: prefix, DriverName: base.Name()}
	}

	defer base.logOperation(ctx, "DeletePrefix")()

	return base.StorageDriver.DeletePrefix(ctx, prefix)
}

// URLFor wraps URLFor of the underlying storage driver.
func (base *Base) URLFor(ctx context.Context, path string, options map[string]interface{}) (string, error) {
	if !storagedriver.PathRegexp.MatchString(path) {
		return "", storagedriver.InvalidPathError{Path: path, DriverName: base.Name()}
	}

	defer base.logOperation(ctx, "URLFor")()

	return base.StorageDriver.URLFor(ctx, path, options)
}
