// Package cryptox hashes the view and edit passwords.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/moments/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32
)

// NewSalt returns SaltSize random bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// HashPassword derives an argon2id key from password and salt.
func HashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, KeySize)
}

// VerifyPassword reports whether password hashes to hash under salt.
func VerifyPassword(password string, salt, hash []byte) bool {
	if len(hash) == 0 {
		return false
	}
	got := HashPassword(password, salt)
	defer common.WipeByteArray(got)
	return subtle.ConstantTimeCompare(got, hash) == 1
}
