package state

import "context"

// SharedNamespace holds state that is not tied to one shopper.
const SharedNamespace = "shared"

// Repository persists opaque JSON documents keyed by namespace and key.
// Load returns domain.ErrNotFound for a missing key.
type Repository interface {
	Load(ctx context.Context, namespace, key string) ([]byte, error)
	Save(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
}
