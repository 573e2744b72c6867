package attachkit

import "fmt"

// InvalidFileError is returned by an analyzer to reject an upload outright,
// for example because of a disallowed media type or oversized content. It is
// raised before any bytes are committed to storage and carries a
// human-readable reason suitable for a validation message, distinguishing a
// rejected upload from a transient I/O failure.
type InvalidFileError struct {
	Reason string
}

func (err InvalidFileError) Error() string {
	return fmt.Sprintf("invalid file: %s", err.Reason)
}

// ConfigurationError is returned when the storage registry cannot satisfy a
// lookup, typically because an attachment configuration references a storage
// key that was never registered.
type ConfigurationError struct {
	StorageKey string
	Detail     string
}

func (err ConfigurationError) Error() string {
	if err.StorageKey != "" {
		return fmt.Sprintf("storage %q: %s", err.StorageKey, err.Detail)
	}
	return err.Detail
}
