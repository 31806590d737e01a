// Package blob abstracts byte storage behind a save/read/delete/exists
// contract. Domain code only ever sees opaque keys; where the bytes
// actually live is this package's business.
package blob

import "context"

// Store is the byte blob store contract.
type Store interface {
	// Save writes data under key. Saving an existing key overwrites it.
	Save(ctx context.Context, key string, data []byte) error

	// Read returns the bytes stored under key.
	Read(ctx context.Context, key string) ([]byte, error)

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
