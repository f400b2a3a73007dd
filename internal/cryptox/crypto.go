// Package cryptox derives the key material used for password login.
// The client never sends the password: it derives a master key with
// argon2id and sends a SHA-256 verifier of that key. The same verifier is
// cached locally so the auditor can log in offline.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const SaltSize = 32

func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// VerifierMatches compares two verifiers in constant time.
func VerifierMatches(saved, candidate []byte) bool {
	return len(saved) > 0 && subtle.ConstantTimeCompare(saved, candidate) == 1
}

// GenerateSalt returns size random bytes. It panics if the system RNG fails.
func GenerateSalt(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// Wipe overwrites b with zeros. Use it on passwords and derived keys once
// they are no longer needed.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
