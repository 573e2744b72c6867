// Package attachkit provides the core types for attaching binary content
// to persistent records without embedding raw bytes in the database.
//
// Content is written to a pluggable storage backend (see storage/driver),
// referenced by a compact File value carrying an id, a storage key and
// extracted Metadata, and promoted from a temporary "cache" backend to a
// permanent "store" backend once the owning record has been durably saved
// (see the attacher package).
//
// The package itself only holds the shared data model: File, Metadata, the
// Registry mapping storage keys to drivers, and the error types shared by
// the uploader and attacher packages.
package attachkit
