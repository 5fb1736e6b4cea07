package port

import "context"

// KeyValueStore is durable key to string storage shared by every store.
// There is no locking between writers: the last Set wins.
type KeyValueStore interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set overwrites the value stored under key
	Set(ctx context.Context, key, value string) error

	// Delete removes key, it is not an error if the key is absent
	Delete(ctx context.Context, key string) error
}
