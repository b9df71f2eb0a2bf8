package seed

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mvill/rosterbase/internal/app/models"
	"github.com/mvill/rosterbase/internal/app/repositories"
	"github.com/mvill/rosterbase/internal/config"
	"github.com/mvill/rosterbase/internal/pkg/apperrors"
	"github.com/mvill/rosterbase/internal/pkg/auth"
)

// CreateDefaultAdmin creates the initial super administrator account if no
// account with the configured username exists. Without it a fresh deployment
// has no way to log in.
func CreateDefaultAdmin(ctx context.Context, dbPool *pgxpool.Pool, cfg *config.Config, lgr zerolog.Logger) error {
	if cfg.Seed.AdminPassword == "" {
		lgr.Debug().Msg("No seed admin password configured, skipping default admin creation")
		return nil
	}

	userRepo := repositories.NewUserRepository(dbPool)

	_, err := userRepo.GetByUsername(ctx, cfg.Seed.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return err
	}

	hashed, err := auth.HashPassword(cfg.Seed.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: cfg.Seed.AdminUsername,
		Password: hashed,
		Name:     "Administrator",
		Role:     models.RoleSuperAdmin,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return err
	}

	lgr.Info().Str("username", admin.Username).Msg("Default super administrator created")
	return nil
}
