package cryptox

import (
	"bytes"
	"testing"
)

func TestHashPassword_Deterministic(t *testing.T) {
	salt := []byte("fixed-salt")

	h1 := HashPassword("secret-password", salt)
	h2 := HashPassword("secret-password", salt)

	// одинаковые входы -> одинаковый вывод
	if !bytes.Equal(h1, h2) {
		t.Errorf("expected same result for same inputs, got different")
	}
	if len(h1) != KeySize {
		t.Errorf("expected %d bytes, got %d", KeySize, len(h1))
	}
}

func TestHashPassword_DifferentSalts(t *testing.T) {
	h1 := HashPassword("secret-password", []byte("salt-1"))
	h2 := HashPassword("secret-password", []byte("salt-2"))

	if bytes.Equal(h1, h2) {
		t.Errorf("expected different hashes for different salts")
	}
}

func TestVerifyPassword(t *testing.T) {
	salt := NewSalt()
	hash := HashPassword("view-1234", salt)

	if !VerifyPassword("view-1234", salt, hash) {
		t.Errorf("expected password to verify")
	}
	if VerifyPassword("view-12345", salt, hash) {
		t.Errorf("expected wrong password to fail")
	}
	if VerifyPassword("view-1234", NewSalt(), hash) {
		t.Errorf("expected wrong salt to fail")
	}
	if VerifyPassword("", salt, nil) {
		t.Errorf("expected empty hash to fail")
	}
}

func TestNewSalt(t *testing.T) {
	a, b := NewSalt(), NewSalt()
	if len(a) != SaltSize || bytes.Equal(a, b) {
		t.Errorf("expected two distinct %d byte salts", SaltSize)
	}
}
