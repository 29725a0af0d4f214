// Package seed loads reference data and the initial super admin after migrations.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	appModels "github.com/yigit/ekklesia/internal/app/models"
	appRepos "github.com/yigit/ekklesia/internal/app/repositories"
	"github.com/yigit/ekklesia/internal/config"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/auth"
)

//go:embed locations.yaml
var locationsYAML []byte

// LocationData is the province → canton → district tree
type LocationData struct {
	Provinces []struct {
		Code    int    `yaml:"code"`
		Name    string `yaml:"name"`
		Cantons []struct {
			Name      string   `yaml:"name"`
			Districts []string `yaml:"districts"`
		} `yaml:"cantons"`
	} `yaml:"provinces"`
}

// LoadLocations parses the embedded location tree
func LoadLocations() (*LocationData, error) {
	var data LocationData
	if err := yaml.Unmarshal(locationsYAML, &data); err != nil {
		return nil, fmt.Errorf("failed to parse location data: %w", err)
	}
	return &data, nil
}

// LocationWriter is the part of the location repository the seed needs
type LocationWriter interface {
	UpsertProvince(ctx context.Context, code int, name string) (int64, error)
	UpsertCanton(ctx context.Context, provinceID int64, code int, name string) (int64, error)
	UpsertDistrict(ctx context.Context, cantonID int64, code int, name string) (int64, error)
}

// SeedLocations upserts every province, canton and district. Running it twice is harmless.
func SeedLocations(ctx context.Context, repo LocationWriter, data *LocationData) (int, error) {
	n := 0
	for _, p := range data.Provinces {
		provinceID, err := repo.UpsertProvince(ctx, p.Code, p.Name)
		if err != nil {
			return n, fmt.Errorf("province %s: %w", p.Name, err)
		}
		n++
		for ci, c := range p.Cantons {
			cantonID, err := repo.UpsertCanton(ctx, provinceID, ci+1, c.Name)
			if err != nil {
				return n, fmt.Errorf("canton %s/%s: %w", p.Name, c.Name, err)
			}
			n++
			for di, d := range c.Districts {
				if _, err := repo.UpsertDistrict(ctx, cantonID, di+1, d); err != nil {
					return n, fmt.Errorf("district %s/%s/%s: %w", p.Name, c.Name, d, err)
				}
				n++
			}
		}
	}
	return n, nil
}

// CreateDefaultData seeds the location hierarchy and, when configured, the super admin profile.
func CreateDefaultData(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	var finalErr error

	data, err := LoadLocations()
	if err != nil {
		return err
	}
	n, err := SeedLocations(ctx, appRepos.NewLocationRepository(dbPool), data)
	if err != nil {
		lgr.Error().Err(err).Msg("Error seeding locations")
		finalErr = errors.Join(finalErr, err)
	} else {
		lgr.Info().Int("rows", n).Msg("Location reference data is up to date")
	}

	if cfg.Seed.SuperAdminEmail == "" {
		return finalErr
	}

	profiles := appRepos.NewProfileRepository(dbPool)
	if _, err := profiles.GetByEmail(ctx, cfg.Seed.SuperAdminEmail); err == nil {
		return finalErr
	} else if !errors.Is(err, apperrors.ErrResourceNotFound) {
		lgr.Error().Err(err).Msg("Error checking if super admin exists")
		return errors.Join(finalErr, err)
	}

	if cfg.Seed.SuperAdminPassword == "" {
		lgr.Warn().Msg("SEED_SUPER_ADMIN_PASSWORD is empty, super admin not created")
		return finalErr
	}
	hash, err := auth.HashPassword(cfg.Seed.SuperAdminPassword)
	if err != nil {
		return errors.Join(finalErr, err)
	}

	admin := &appModels.Profile{
		Email:        cfg.Seed.SuperAdminEmail,
		PasswordHash: hash,
		FirstName:    "Super",
		LastName:     "Admin",
		Role:         appModels.RoleAdmin,
		SuperAdmin:   true,
	}
	if err := profiles.Create(ctx, admin); err != nil {
		lgr.Error().Err(err).Msg("Error creating super admin")
		return errors.Join(finalErr, err)
	}
	lgr.Info().Str("email", admin.Email).Msg("Super admin created")
	return finalErr
}
