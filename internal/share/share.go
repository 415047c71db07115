// Package share decides which memories a viewer sees.
package share

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/local/repositories/settings"
	"github.com/dmitrijs2005/moments/internal/logging"
	"github.com/dmitrijs2005/moments/internal/models"
	"github.com/dmitrijs2005/moments/internal/timex"
)

// Default is used until a config has been stored.
var Default = models.ShareConfig{Mode: models.ShareUnlimited}

// Filter returns the memories cfg exposes, keeping their order. Range bounds
// are inclusive.
func Filter(cfg models.ShareConfig, ms []models.Memory) []models.Memory {
	if cfg.Mode != models.ShareRange {
		return ms
	}
	out := make([]models.Memory, 0, len(ms))
	for _, m := range ms {
		if inRange(cfg, m.Date) {
			out = append(out, m)
		}
	}
	return out
}

// dates are YYYY-MM-DD, so string order is calendar order
func inRange(cfg models.ShareConfig, date string) bool {
	return date >= cfg.StartDate && date <= cfg.EndDate
}

// Validate checks cfg against the current collection. A range needs both
// dates, start not after end, end not after today and at least one memory
// inside it.
func Validate(cfg models.ShareConfig, ms []models.Memory, today time.Time) error {
	switch cfg.Mode {
	case models.ShareUnlimited:
		return nil
	case models.ShareRange:
	default:
		return fmt.Errorf("%w: unknown share mode %q", common.ErrorValidation, cfg.Mode)
	}

	if cfg.StartDate == "" || cfg.EndDate == "" {
		return fmt.Errorf("%w: start and end date are required", common.ErrorValidation)
	}
	start, err := models.ParseDate(cfg.StartDate)
	if err != nil {
		return err
	}
	end, err := models.ParseDate(cfg.EndDate)
	if err != nil {
		return err
	}
	if start.After(end) {
		return fmt.Errorf("%w: start date is after end date", common.ErrorValidation)
	}
	if end.After(today) {
		return fmt.Errorf("%w: end date is in the future", common.ErrorValidation)
	}
	if len(Filter(cfg, ms)) == 0 {
		return fmt.Errorf("%w: no memories between %s and %s", common.ErrorValidation, cfg.StartDate, cfg.EndDate)
	}
	return nil
}

// Service keeps the share config in the settings collection.
type Service struct {
	settings settings.Repository
	logger   logging.Logger
	now      func() time.Time
}

func NewService(repo settings.Repository, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{settings: repo, logger: logger, now: time.Now}
}

// Get returns the stored config or Default.
func (s *Service) Get(ctx context.Context) (models.ShareConfig, error) {
	var cfg models.ShareConfig
	ok, err := settings.Load(ctx, s.settings, models.SettingShareConfig, &cfg)
	if err != nil {
		return models.ShareConfig{}, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	if !ok {
		return Default, nil
	}
	return cfg, nil
}

// Set validates cfg against ms and stores it. A rejected config leaves the
// stored one unchanged.
func (s *Service) Set(ctx context.Context, cfg models.ShareConfig, ms []models.Memory) (models.ShareConfig, error) {
	if err := Validate(cfg, ms, s.today()); err != nil {
		return models.ShareConfig{}, err
	}
	if cfg.Mode == models.ShareUnlimited {
		cfg.StartDate, cfg.EndDate = "", ""
	}
	cfg.UpdatedAt = timex.NowMillis()

	if err := settings.Store(ctx, s.settings, models.SettingShareConfig, cfg); err != nil {
		return models.ShareConfig{}, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	s.logger.Info(ctx, "share config saved", "mode", cfg.Mode, "start", cfg.StartDate, "end", cfg.EndDate)
	return cfg, nil
}

// Visible applies the stored config to ms.
func (s *Service) Visible(ctx context.Context, ms []models.Memory) ([]models.Memory, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(cfg, ms), nil
}

func (s *Service) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}
