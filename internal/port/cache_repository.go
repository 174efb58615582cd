package port

import "context"

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency removes a key so the request may be retried after a
	// failed checkout
	ReleaseIdempotency(ctx context.Context, key string) error
}
