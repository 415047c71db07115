package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T) *Gate {
	t.Helper()
	s, err := local.Open(context.Background(), filepath.Join(t.TempDir(), "moments.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewGate(s.Settings(), []byte("test-secret"), time.Hour, nil)
}

func TestValidatePasswords(t *testing.T) {
	tests := []struct {
		name       string
		view, edit string
		wantErr    bool
	}{
		{"ok", "view", "edit", false},
		{"short view", "abc", "edit", true},
		{"short edit", "view", "ed", true},
		{"same", "same1", "same1", true},
		{"multibyte counts runes", "пароль", "ключ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswords(tt.view, tt.edit)
			if tt.wantErr {
				assert.True(t, errors.Is(err, common.ErrorValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGate_FirstRunAndUnlock(t *testing.T) {
	g := newGate(t)
	ctx := context.Background()

	ok, err := g.IsConfigured(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = g.Unlock(ctx, "view-pass", ModeView)
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))

	require.NoError(t, g.SetPasswords(ctx, "view-pass", "edit-pass"))
	ok, err = g.IsConfigured(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	err = g.SetPasswords(ctx, "other", "again")
	assert.True(t, errors.Is(err, common.ErrorValidation), "second setup is rejected")

	viewTok, err := g.Unlock(ctx, "view-pass", ModeView)
	require.NoError(t, err)
	assert.False(t, g.CanEdit(viewTok))

	_, err = g.Unlock(ctx, "view-pass", ModeEdit)
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))

	editTok, err := g.Unlock(ctx, "edit-pass", ModeEdit)
	require.NoError(t, err)
	assert.True(t, g.CanEdit(editTok))

	assert.False(t, g.CanEdit(""))
	assert.False(t, g.CanEdit("garbage"))

	_, err = g.Unlock(ctx, "edit-pass", "root")
	assert.True(t, errors.Is(err, common.ErrorValidation))
}

func TestGate_ChangePasswords(t *testing.T) {
	g := newGate(t)
	ctx := context.Background()

	err := g.ChangePasswords(ctx, "whatever", "view-pass", "edit-pass")
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))

	require.NoError(t, g.SetPasswords(ctx, "view-pass", "edit-pass"))

	err = g.ChangePasswords(ctx, "view-pass", "new-view", "new-edit")
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))

	err = g.ChangePasswords(ctx, "edit-pass", "same", "same")
	assert.True(t, errors.Is(err, common.ErrorValidation))

	require.NoError(t, g.ChangePasswords(ctx, "edit-pass", "new-view", "new-edit"))

	_, err = g.Unlock(ctx, "edit-pass", ModeEdit)
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))
	_, err = g.Unlock(ctx, "new-edit", ModeEdit)
	assert.NoError(t, err)
}

func TestGate_SessionExpires(t *testing.T) {
	g := newGate(t)
	ctx := context.Background()
	require.NoError(t, g.SetPasswords(ctx, "view-pass", "edit-pass"))

	g.validity = -time.Second
	tok, err := g.Unlock(ctx, "edit-pass", ModeEdit)
	require.NoError(t, err)

	_, err = g.Mode(tok)
	assert.True(t, errors.Is(err, common.ErrTokenExpired))
	assert.False(t, g.CanEdit(tok))
}
