package session

import "context"

// SnapshotStore persists encoded share snapshots keyed by name. Backends
// may store sessions in memory, on disk, or in external systems like Redis;
// callers depend on this interface so backends stay swappable.
type SnapshotStore interface {
	// Get retrieves the snapshot stored under key. It returns the raw
	// bytes, whether the key existed, and any backend error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key, overwriting any previous snapshot.
	Set(ctx context.Context, key string, data []byte) error

	// Delete removes the snapshot under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error
}
