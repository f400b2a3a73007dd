// Package models holds the rows stored by the persistence server.
package models

import "time"

// User is a registered account. Salt and Verifier come from the client's
// master key derivation; the server never sees the password.
type User struct {
	ID        string
	UserName  string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
