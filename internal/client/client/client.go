package client

import (
	"context"
	"encoding/json"
)

// Store is the per-collection CRUD surface of the remote persistence API.
// Records travel as raw JSON objects.
type Store interface {
	ListAll(ctx context.Context, collection string) ([]json.RawMessage, error)
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Create(ctx context.Context, collection string, record any) (json.RawMessage, error)
	// Update sends id plus the fields of partial; the server treats it as
	// an upsert.
	Update(ctx context.Context, collection, id string, partial any) (json.RawMessage, error)
	Delete(ctx context.Context, collection, id string) error
}

type Client interface {
	Store
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Register(ctx context.Context, username string, salt, verifier []byte) error
	Login(ctx context.Context, username string, verifier []byte) (*LoginResult, error)
	PresignPhotoUpload(ctx context.Context, contentType string) (*PresignedURL, error)
	PresignPhotoDownload(ctx context.Context, key string) (*PresignedURL, error)
	Ping(ctx context.Context) error
}

type LoginResult struct {
	UserID      string `json:"userId"`
	AccessToken string `json:"accessToken"`
}

type PresignedURL struct {
	Key string `json:"key,omitempty"`
	URL string `json:"url"`
}
