// Package uuid generates the collision-resistant identifiers used for
// storage locations.
package uuid

import (
	"github.com/google/uuid"
)

// NewString returns a new V7 UUID string. V7 UUIDs are time-ordered, which
// keeps generated storage ids roughly sorted by upload time. Panics on a
// failed read from the random source.
func NewString() string {
	return uuid.Must(uuid.NewV7()).String()
}
