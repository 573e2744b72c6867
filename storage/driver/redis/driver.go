// Package redis provides a storage driver backed by a redis server. Each
// object is a redis hash holding the content bytes and the modification
// time. Useful for small, short-lived cache storage shared between
// processes; not intended for large blobs.
package redis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/mitchellh/mapstructure"

	storagedriver "github.com/attachkit/attachkit/storage/driver"
	"github.com/attachkit/attachkit/storage/driver/base"
	"github.com/attachkit/attachkit/storage/driver/factory"
)

const driverName = "redis"

const defaultKeyPrefix = "attachkit:"

func init() {
	factory.Register(driverName, &redisDriverFactory{})
}

// redisDriverFactory implements the factory.StorageDriverFactory interface.
type redisDriverFactory struct{}

func (f *redisDriverFactory) Create(parameters map[string]interface{}) (storagedriver.StorageDriver, error) {
	return FromParameters(parameters)
}

// DriverParameters holds the configuration of the redis driver.
type DriverParameters struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"keyprefix"`
}

type driver struct {
	pool      *redis.Pool
	keyPrefix string
}

type baseEmbed struct {
	base.Base
}

// Driver is a storagedriver.StorageDriver implementation backed by redis.
type Driver struct {
	baseEmbed
}

// FromParameters constructs a new Driver from a parameter map. Required
// parameters:
//   - address
//
// Optional parameters:
//   - password, db, keyprefix
func FromParameters(parameters map[string]interface{}) (*Driver, error) {
	var params DriverParameters
	if err := mapstructure.Decode(parameters, &params); err != nil {
		return nil, fmt.Errorf("parsing redis parameters: %w", err)
	}
	if params.Address == "" {
		return nil, fmt.Errorf("redis: no address parameter provided")
	}

	pool := &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", params.Address,
				redis.DialPassword(params.Password),
				redis.DialDatabase(params.DB),
			)
		},
	}
	return New(pool, params.KeyPrefix), nil
}

// New constructs a new Driver using the provided connection pool. A new
// connection is fetched from the pool for each operation.
func New(pool *redis.Pool, keyPrefix string) *Driver {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Driver{
		baseEmbed: baseEmbed{
			Base: base.Base{
				StorageDriver: &driver{pool: pool, keyPrefix: keyPrefix},
			},
		},
	}
}

func (d *driver) key(path string) string {
	return d.keyPrefix + path
}

// Implement the storagedriver.StorageDriver interface.

func (d *driver) Name() string {
	return driverName
}

// GetContent retrieves the content stored at "path" as a []byte.
func (d *driver) GetContent(ctx context.Context, path string) ([]byte, error) {
	conn, err := d.pool.GetContext(ctx)
	if err != nil {
		return nil, storagedriver.Error{DriverName: driverName, Detail: err}
	}
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("HGET", d.key(path), "data"))
	if err == redis.ErrNil {
		return nil, storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
	}
	if err != nil {
		return nil, storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return data, nil
}

// PutContent stores the []byte content at a location designated by "path".
func (d *driver) PutContent(ctx context.Context, path string, contents []byte) error {
	conn, err := d.pool.GetContext(ctx)
	if err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	defer conn.Close()

	_, err = conn.Do("HSET", d.key(path), "data", contents, "mtime", time.Now().UnixNano())
	if err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return nil
}

// Reader retrieves an io.ReadCloser for the content stored at "path" with a
// given byte offset. Redis holds values in server memory, so the content is
// fetched in one reply rather than streamed.
func (d *driver) Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	data, err := d.GetContent(ctx, path)
	if err != nil {
		return nil, err
	}
	if offset > int64(len(data)) {
		return nil, storagedriver.InvalidOffsetError{Path: path, Offset: offset, DriverName: driverName}
	}
	return io.NopCloser(bytes.NewReader(data[offset:])), nil
}

// WriteStream stores the contents of the provided io.Reader at "path".
func (d *driver) WriteStream(ctx context.Context, path string, reader io.Reader) (int64, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, storagedriver.Error{DriverName: driverName, Detail: err}
	}
	if err := d.PutContent(ctx, path, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// Stat returns info about the provided path.
func (d *driver) Stat(ctx context.Context, path string) (storagedriver.FileInfo, error) {
	conn, err := d.pool.GetContext(ctx)
	if err != nil {
		return nil, storagedriver.Error{DriverName: driverName, Detail: err}
	}
	defer conn.Close()

	reply, err := redis.Values(conn.Do("HMGET", d.key(path), "data", "mtime"))
	if err != nil {
		return nil, storagedriver.Error{DriverName: driverName, Detail: err}
	}
	if len(reply) < 2 || reply[0] == nil {
		return nil, storagedriver.PathNotFoundError{Path: path, DriverName: driverName}
	}

	var data []byte
	var mtimeNanos int64
	if _, err := redis.Scan(reply, &data, &mtimeNanos); err != nil {
		return nil, storagedriver.Error{DriverName: driverName, Detail: err}
	}

	return storagedriver.FileInfoInternal{FileInfoFields: storagedriver.FileInfoFields{
		Path:    path,
		Size:    int64(len(data)),
		ModTime: time.Unix(0, mtimeNanos),
	}}, nil
}

// Move moves an object stored at sourcePath to destPath using RENAME, which
// is atomic on the server.
func (d *driver) Move(ctx context.Context, sourcePath, destPath string) error {
	conn, err := d.pool.GetContext(ctx)
	if err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	defer conn.Close()

	if _, err := conn.Do("RENAME", d.key(sourcePath), d.key(destPath)); err != nil {
		if strings.Contains(err.Error(), "no such key") {
			return storagedriver.PathNotFoundError{Path: sourcePath, DriverName: driverName}
		}
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return nil
}

// Delete removes the object stored at "path", tolerating a missing path.
func (d *driver) Delete(ctx context.Context, path string) error {
	conn, err := d.pool.GetContext(ctx)
	if err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", d.key(path)); err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	return nil
}

// DeletePrefix removes every object whose path shares the given prefix,
// scanning the keyspace incrementally to avoid blocking the server.
func (d *driver) DeletePrefix(ctx context.Context, prefix string) error {
	conn, err := d.pool.GetContext(ctx)
	if err != nil {
		return storagedriver.Error{DriverName: driverName, Detail: err}
	}
	defer conn.Close()

	pattern := d.key(prefix) + "*"
	cursor := int64(0)
	for {
		reply, err := redis.Values(conn.Do("SCAN", cursor, "MATCH", pattern, "COUNT", 100))
		if err != nil {
			return storagedriver.Error{DriverName: driverName, Detail: err}
		}

		cursor, err = redis.Int64(reply[0], nil)
		if err != nil {
			return storagedriver.Error{DriverName: driverName, Detail: err}
		}
		keys, err := redis.Strings(reply[1], nil)
		if err != nil {
			return storagedriver.Error{DriverName: driverName, Detail: err}
		}

		for _, name := range keys {
			// guard against "a" matching "ab" through the glob
			path := strings.TrimPrefix(name, d.keyPrefix)
			if path != prefix && !strings.HasPrefix(path, prefix+"/") {
				continue
			}
			if _, err := conn.Do("DEL", name); err != nil {
				return storagedriver.Error{DriverName: driverName, Detail: err}
			}
		}

		if cursor == 0 {
			return nil
		}
	}
}

// URLFor is unsupported: redis keys are not URL addressable.
func (d *driver) URLFor(ctx context.Context, path string, options map[string]interface{}) (string, error) {
	return "", storagedriver.UnsupportedMethodError{Method: "URLFor", DriverName: driverName}
}
