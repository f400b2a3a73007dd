// Package metadata keeps small key/value facts on the device: the offline
// login material and bookkeeping such as the last successful sync.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyUsername   = "username"
	KeySalt       = "salt"
	KeyVerifier   = "verifier"
	KeyToken      = "access_token"
	KeyUserID     = "user_id"
	KeyLastSyncAt = "last_sync_at"
)

// KeyHiddenDefaults holds a JSON array of built-in template ids the user
// deleted locally.
const KeyHiddenDefaults = "hidden_defaults"

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
