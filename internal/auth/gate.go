// Package auth is the view/edit password gate.
//
// The gate is a convenience for a single owner sharing one device: it keeps
// casual viewers from editing. It is not a security control. Hashes live in
// the same local database as the data they guard, and anyone with access to
// that file can read or replace both.
package auth

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/cryptox"
	"github.com/dmitrijs2005/moments/internal/local/repositories/settings"
	"github.com/dmitrijs2005/moments/internal/logging"
	"github.com/dmitrijs2005/moments/internal/models"
	"github.com/dmitrijs2005/moments/internal/timex"
)

type Mode string

const (
	ModeView Mode = "view"
	ModeEdit Mode = "edit"
)

func (m Mode) valid() bool {
	return m == ModeView || m == ModeEdit
}

const MinPasswordLength = 4

type Gate struct {
	settings settings.Repository
	secret   []byte
	validity time.Duration
	logger   logging.Logger
}

func NewGate(repo settings.Repository, secret []byte, validity time.Duration, logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Gate{settings: repo, secret: secret, validity: validity, logger: logger}
}

func (g *Gate) load(ctx context.Context) (*models.PasswordConfig, error) {
	var cfg models.PasswordConfig
	ok, err := settings.Load(ctx, g.settings, models.SettingPasswordConfig, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

// IsConfigured reports whether passwords have been set.
func (g *Gate) IsConfigured(ctx context.Context) (bool, error) {
	cfg, err := g.load(ctx)
	return cfg != nil, err
}

// ValidatePasswords applies the password policy.
func ValidatePasswords(view, edit string) error {
	if utf8.RuneCountInString(view) < MinPasswordLength || utf8.RuneCountInString(edit) < MinPasswordLength {
		return fmt.Errorf("%w: passwords must be at least %d characters", common.ErrorValidation, MinPasswordLength)
	}
	if view == edit {
		return fmt.Errorf("%w: view and edit passwords must differ", common.ErrorValidation)
	}
	return nil
}

// SetPasswords stores the first pair of passwords.
func (g *Gate) SetPasswords(ctx context.Context, view, edit string) error {
	cfg, err := g.load(ctx)
	if err != nil {
		return err
	}
	if cfg != nil {
		return fmt.Errorf("%w: passwords are already set", common.ErrorValidation)
	}
	return g.store(ctx, view, edit)
}

// ChangePasswords replaces both passwords after checking the current edit
// password.
func (g *Gate) ChangePasswords(ctx context.Context, currentEdit, view, edit string) error {
	cfg, err := g.load(ctx)
	if err != nil {
		return err
	}
	if cfg == nil || !cryptox.VerifyPassword(currentEdit, cfg.Salt, cfg.EditHash) {
		return common.ErrorUnauthorized
	}
	return g.store(ctx, view, edit)
}

func (g *Gate) store(ctx context.Context, view, edit string) error {
	if err := ValidatePasswords(view, edit); err != nil {
		return err
	}
	salt := cryptox.NewSalt()
	cfg := models.PasswordConfig{
		ViewHash:  cryptox.HashPassword(view, salt),
		EditHash:  cryptox.HashPassword(edit, salt),
		Salt:      salt,
		UpdatedAt: timex.NowMillis(),
	}
	if err := settings.Store(ctx, g.settings, models.SettingPasswordConfig, cfg); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	g.logger.Info(ctx, "passwords updated")
	return nil
}

// Unlock checks password against the hash for mode and returns a session
// token carrying that mode.
func (g *Gate) Unlock(ctx context.Context, password string, mode Mode) (string, error) {
	if !mode.valid() {
		return "", fmt.Errorf("%w: unknown mode %q", common.ErrorValidation, mode)
	}
	cfg, err := g.load(ctx)
	if err != nil {
		return "", err
	}
	if cfg == nil {
		return "", fmt.Errorf("%w: passwords are not set", common.ErrorUnauthorized)
	}

	hash := cfg.ViewHash
	if mode == ModeEdit {
		hash = cfg.EditHash
	}
	if !cryptox.VerifyPassword(password, cfg.Salt, hash) {
		g.logger.Warn(ctx, "unlock rejected", "mode", mode)
		return "", common.ErrorUnauthorized
	}

	token, err := GenerateToken(mode, g.secret, g.validity)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return token, nil
}

// Mode returns the mode of a live session token.
func (g *Gate) Mode(token string) (Mode, error) {
	return GetModeFromToken(token, g.secret)
}

// CanEdit reports whether token is a live edit session.
func (g *Gate) CanEdit(token string) bool {
	mode, err := g.Mode(token)
	return err == nil && mode == ModeEdit
}
