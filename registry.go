package attachkit

import (
	"fmt"
	"sort"

	storagedriver "github.com/attachkit/attachkit/storage/driver"
)

// Registry maps storage keys such as "cache" and "store" to the storage
// drivers holding the referenced objects. It is constructed once at startup,
// passed explicitly into the uploader and attacher constructors and treated
// as read-only thereafter; it provides no synchronization for registration
// after that point.
type Registry struct {
	drivers map[string]storagedriver.StorageDriver
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]storagedriver.StorageDriver)}
}

// Register makes driver available under the given storage key. Register is
// intended for configuration time and panics on a duplicate key, an empty
// key or a nil driver.
func (r *Registry) Register(key string, driver storagedriver.StorageDriver) {
	if key == "" {
		panic("attachkit: must not register an empty storage key")
	}
	if driver == nil {
		panic("attachkit: must not register a nil storage driver")
	}
	if _, registered := r.drivers[key]; registered {
		panic(fmt.Sprintf("attachkit: storage key %q already registered", key))
	}
	r.drivers[key] = driver
}

// Driver resolves a storage key to its driver, returning a
// ConfigurationError for keys that were never registered.
func (r *Registry) Driver(key string) (storagedriver.StorageDriver, error) {
	driver, ok := r.drivers[key]
	if !ok {
		return nil, ConfigurationError{StorageKey: key, Detail: "no storage driver registered"}
	}
	return driver, nil
}

// Keys returns the registered storage keys in lexical order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.drivers))
	for key := range r.drivers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
