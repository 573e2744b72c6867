package driver

import (
	"encoding/json"
	"fmt"
)

// PathNotFoundError is returned when operating on a nonexistent path. It is
// distinct from transport failures so callers can tell "never existed or
// already cleaned up" from a transient error.
type PathNotFoundError struct {
	Path       string
	DriverName string
}

func (err PathNotFoundError) Error() string {
	return fmt.Sprintf("%s: path not found: %s", err.DriverName, err.Path)
}

// InvalidPathError is returned when a path does not match PathRegexp.
type InvalidPathError struct {
	Path       string
	DriverName string
}

func (err InvalidPathError) Error() string {
	return fmt.Sprintf("%s: invalid path: %s", err.DriverName, err.Path)
}

// InvalidOffsetError is returned when attempting to read from an invalid
// offset.
type InvalidOffsetError struct {
	Path       string
	Offset     int64
	DriverName string
}

func (err InvalidOffsetError) Error() string {
	return fmt.Sprintf("%s: invalid offset: %d for path: %s", err.DriverName, err.Offset, err.Path)
}

// UnsupportedMethodError is returned when a driver does not implement an
// optional part of the contract, such as URL generation on the in-memory
// backend.
type UnsupportedMethodError struct {
	Method     string
	DriverName string
}

func (err UnsupportedMethodError) Error() string {
	return fmt.Sprintf("%s: unsupported method: %s", err.DriverName, err.Method)
}

// Error is a catch-all wrapper for transport and filesystem failures inside
// a driver. Callers may treat it as retryable; the drivers themselves
// perform no retries.
type Error struct {
	DriverName string
	Detail     error
}

func (err Error) Error() string {
	return fmt.Sprintf("%s: %v", err.DriverName, err.Detail)
}

func (err Error) Unwrap() error {
	return err.Detail
}

// MarshalJSON implements the json.Marshaler interface.
func (err Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DriverName string `json:"driver"`
		Detail     string `json:"detail"`
	}{
		DriverName: err.DriverName,
		Detail:     err.Detail.Error(),
	})
}
