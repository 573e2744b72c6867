package attachkit

import (
	"reflect"
	"testing"

	"github.com/attachkit/attachkit/storage/driver/inmemory"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	cache := inmemory.New()
	r.Register(CacheStorage, cache)
	r.Register(StoreStorage, inmemory.New())

	driver, err := r.Driver(CacheStorage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if driver != cache {
		t.Error("lookup returned a different driver")
	}

	if got := r.Keys(); !reflect.DeepEqual(got, []string{CacheStorage, StoreStorage}) {
		t.Errorf("keys = %v", got)
	}
}

func TestRegistryUnknownKey(t *testing.T) {
	r := NewRegistry()

	_, err := r.Driver("archive")
	cerr, ok := err.(ConfigurationError)
	if !ok {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cerr.StorageKey != "archive" {
		t.Errorf("storage key = %q, want archive", cerr.StorageKey)
	}
}

func TestRegistryRegisterPanics(t *testing.T) {
	expectPanic := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected a panic", name)
			}
		}()
		fn()
	}

	r := NewRegistry()
	r.Register(CacheStorage, inmemory.New())

	expectPanic("duplicate key", func() { r.Register(CacheStorage, inmemory.New()) })
	expectPanic("empty key", func() { r.Register("", inmemory.New()) })
	expectPanic("nil driver", func() { r.Register(StoreStorage, nil) })
}
