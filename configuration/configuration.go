// Package configuration parses the versioned yaml document describing the
// storage backends attachments resolve through, and builds the runtime
// registry from it.
package configuration

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/attachkit/attachkit"
	"github.com/attachkit/attachkit/storage/driver/factory"
)

// Configuration is a versioned attachment configuration, intended to be
// provided by a yaml file and optionally modified by environment variables.
type Configuration struct {
	// Version is the version which defines the format of the rest of the
	// configuration
	Version Version `yaml:"version"`

	// Loglevel is the level at which storage operations are logged
	Loglevel Loglevel `yaml:"loglevel"`

	// Storages maps each storage key, conventionally "cache" and "store", to
	// the driver configuration backing it
	Storages map[string]Storage `yaml:"storages"`
}

// v0_1Configuration is a Version 0.1 Configuration struct
// This is currently aliased to Configuration, as it is the current version
type v0_1Configuration Configuration

// UnmarshalYAML implements the yaml.Unmarshaler interface
// Unmarshals a string of the form X.Y into a Version, validating that X and Y can represent uints
func (version *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var versionString string
	err := unmarshal(&versionString)
	if err != nil {
		return err
	}

	newVersion := Version(versionString)
	if _, err := newVersion.major(); err != nil {
		return err
	}

	if _, err := newVersion.minor(); err != nil {
		return err
	}

	*version = newVersion
	return nil
}

// CurrentVersion is the most recent Version that can be parsed
var CurrentVersion = MajorMinorVersion(0, 1)

// Loglevel is the level at which operations are logged
// This can be error, warn, info, or debug
type Loglevel string

// UnmarshalYAML implements the yaml.Umarshaler interface
// Unmarshals a string into a Loglevel, lowercasing the string and validating
// that it represents a valid loglevel
func (loglevel *Loglevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var loglevelString string
	err := unmarshal(&loglevelString)
	if err != nil {
		return err
	}

	loglevelString = strings.ToLower(loglevelString)
	switch loglevelString {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid loglevel %s Must be one of [error, warn, info, debug]", loglevelString)
	}

	*loglevel = Loglevel(loglevelString)
	return nil
}

// Parameters defines a key-value parameters mapping
type Parameters map[string]interface{}

// Storage defines the driver configuration behind one storage key
type Storage map[string]Parameters

// Type returns the storage driver type, such as filesystem or s3
func (storage Storage) Type() string {
	// Return only key in this map
	for k := range storage {
		return k
	}
	return ""
}

// Parameters returns the Parameters map for a Storage configuration
func (storage Storage) Parameters() Parameters {
	return storage[storage.Type()]
}

// UnmarshalYAML implements the yaml.Unmarshaler interface
// Unmarshals a single item map into a Storage or a string into a Storage type
// with no parameters
func (storage *Storage) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var storageMap map[string]Parameters
	err := unmarshal(&storageMap)
	if err == nil {
		if len(storageMap) > 1 {
			types := make([]string, 0, len(storageMap))
			for k := range storageMap {
				types = append(types, k)
			}
			return fmt.Errorf("must provide exactly one storage type. Provided: %v", types)
		}
		*storage = storageMap
		return nil
	}

	var storageType string
	err = unmarshal(&storageType)
	if err == nil {
		*storage = Storage{storageType: Parameters{}}
		return nil
	}

	return err
}

// MarshalYAML implements the yaml.Marshaler interface
func (storage Storage) MarshalYAML() (interface{}, error) {
	if storage.Parameters() == nil {
		return storage.Type(), nil
	}
	return map[string]Parameters(storage), nil
}

// Parse parses an input configuration yaml document into a Configuration
// struct.
//
// Environment variables may be used to override configuration parameters
// other than version, following the scheme below:
// Configuration.Abc may be replaced by the value of ATTACHKIT_ABC,
// Configuration.Abc.Xyz may be replaced by the value of ATTACHKIT_ABC_XYZ,
// and so forth
func Parse(rd io.Reader) (*Configuration, error) {
	in, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	p := NewParser("attachkit", []VersionedParseInfo{
		{
			Version: MajorMinorVersion(0, 1),
			ParseAs: reflect.TypeOf(v0_1Configuration{}),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				v0_1, ok := c.(*v0_1Configuration)
				if !ok {
					return nil, fmt.Errorf("expected *v0_1Configuration, received %#v", c)
				}
				if v0_1.Loglevel == Loglevel("") {
					v0_1.Loglevel = Loglevel("info")
				}
				if len(v0_1.Storages) == 0 {
					return nil, fmt.Errorf("no storage configuration provided")
				}
				for key, storage := range v0_1.Storages {
					if storage.Type() == "" {
						return nil, fmt.Errorf("storage %q: no driver type provided", key)
					}
				}
				return (*Configuration)(v0_1), nil
			},
		},
	})

	config := new(Configuration)
	err = p.Parse(in, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

// BuildRegistry constructs a storage driver for every configured storage key
// through the driver factory and returns the populated registry.
func (c *Configuration) BuildRegistry() (*attachkit.Registry, error) {
	registry := attachkit.NewRegistry()

	keys := make([]string, 0, len(c.Storages))
	for key := range c.Storages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		storage := c.Storages[key]
		driver, err := factory.Create(storage.Type(), storage.Parameters())
		if err != nil {
			return nil, attachkit.ConfigurationError{StorageKey: key, Detail: err.Error()}
		}
		registry.Register(key, driver)
	}
	return registry, nil
}
