package store

import (
	"errors"
	"io"
)

// ErrNotFound is returned by Get for a key that has never been set.
var ErrNotFound = errors.New("key not found")

// Store is a small persistent key/value store for host state that must
// survive a crash of the host process.
type Store interface {
	io.Closer

	// Get retrieves the value for a key, or ErrNotFound.
	Get(key string) (string, error)

	// Set stores a key/value pair, creating or overwriting as needed.
	Set(key, value string) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error
}
