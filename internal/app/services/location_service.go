package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
	"github.com/yigit/ekklesia/internal/pkg/cache"
)

// LocationStore reads the province → canton → district hierarchy
type LocationStore interface {
	ListProvinces(ctx context.Context) ([]models.Province, error)
	ListCantons(ctx context.Context, provinceID int64) ([]models.Canton, error)
	ListDistricts(ctx context.Context, cantonID int64) ([]models.District, error)
}

// LocationService serves the location hierarchy through a cache
type LocationService struct {
	store  LocationStore
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewLocationService creates a new LocationService
func NewLocationService(store LocationStore, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *LocationService {
	return &LocationService{store: store, cache: c, ttl: ttl, logger: logger}
}

// cached loads key from the cache or fills it with load
func cached[T any](ctx context.Context, s *LocationService, key string, load func() (T, error)) (T, error) {
	var value T
	hit, err := s.cache.GetJSON(ctx, key, &value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Location cache read failed")
	}
	if hit && err == nil {
		return value, nil
	}

	value, err = load()
	if err != nil {
		return value, err
	}
	if err := s.cache.SetJSON(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Location cache write failed")
	}
	return value, nil
}

// ListProvinces returns every province ordered by code
func (s *LocationService) ListProvinces(ctx context.Context) ([]models.Province, error) {
	return cached(ctx, s, "locations:provinces", func() ([]models.Province, error) {
		return s.store.ListProvinces(ctx)
	})
}

// ListCantons returns the cantons of a province
func (s *LocationService) ListCantons(ctx context.Context, provinceID int64) ([]models.Canton, error) {
	return cached(ctx, s, fmt.Sprintf("locations:cantons:%d", provinceID), func() ([]models.Canton, error) {
		return s.store.ListCantons(ctx, provinceID)
	})
}

// ListDistricts returns the districts of a canton
func (s *LocationService) ListDistricts(ctx context.Context, cantonID int64) ([]models.District, error) {
	return cached(ctx, s, fmt.Sprintf("locations:districts:%d", cantonID), func() ([]models.District, error) {
		return s.store.ListDistricts(ctx, cantonID)
	})
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ResolveAddress maps location names to ids, case-insensitively. Canton and district are
// optional but a district needs a canton.
func (s *LocationService) ResolveAddress(ctx context.Context, province, canton, district string) (models.Selection, error) {
	var sel models.Selection

	provinces, err := s.ListProvinces(ctx)
	if err != nil {
		return sel, err
	}
	for _, p := range provinces {
		if sameName(p.Name, province) {
			sel = sel.WithProvince(p.ID)
			break
		}
	}
	if sel.ProvinceID == nil {
		return sel, apperrors.NewResourceNotFoundError(fmt.Sprintf("province %q not found", province))
	}

	if strings.TrimSpace(canton) == "" {
		if strings.TrimSpace(district) != "" {
			return sel, apperrors.NewBadRequestError("a district needs a canton")
		}
		return sel, nil
	}
	cantons, err := s.ListCantons(ctx, *sel.ProvinceID)
	if err != nil {
		return sel, err
	}
	for _, c := range cantons {
		if sameName(c.Name, canton) {
			sel = sel.WithCanton(c.ID)
			break
		}
	}
	if sel.CantonID == nil {
		return sel, apperrors.NewResourceNotFoundError(fmt.Sprintf("canton %q not found in %s", canton, province))
	}

	if strings.TrimSpace(district) == "" {
		return sel, nil
	}
	districts, err := s.ListDistricts(ctx, *sel.CantonID)
	if err != nil {
		return sel, err
	}
	for _, d := range districts {
		if sameName(d.Name, district) {
			return sel.WithDistrict(d.ID), nil
		}
	}
	return sel, apperrors.NewResourceNotFoundError(fmt.Sprintf("district %q not found in %s", district, canton))
}

// Apply moves current through the cascade: a new province clears canton and district,
// a new canton clears the district. The result is validated against the hierarchy.
func (s *LocationService) Apply(ctx context.Context, current models.Selection, provinceID, cantonID, districtID *int64) (models.Selection, error) {
	sel := current
	if provinceID != nil {
		sel = sel.WithProvince(*provinceID)
	}
	if cantonID != nil {
		sel = sel.WithCanton(*cantonID)
	}
	if districtID != nil {
		sel = sel.WithDistrict(*districtID)
	}
	if err := s.Validate(ctx, sel); err != nil {
		return current, err
	}
	return sel, nil
}

// Validate checks that every level of sel exists and belongs to the level above it
func (s *LocationService) Validate(ctx context.Context, sel models.Selection) error {
	if sel.ProvinceID == nil {
		if sel.CantonID != nil || sel.DistrictID != nil {
			return apperrors.NewBadRequestError("a canton needs a province")
		}
		return nil
	}

	provinces, err := s.ListProvinces(ctx)
	if err != nil {
		return err
	}
	if !containsID(provinces, *sel.ProvinceID, func(p models.Province) int64 { return p.ID }) {
		return apperrors.NewBadRequestError("unknown province")
	}

	if sel.CantonID == nil {
		if sel.DistrictID != nil {
			return apperrors.NewBadRequestError("a district needs a canton")
		}
		return nil
	}
	cantons, err := s.ListCantons(ctx, *sel.ProvinceID)
	if err != nil {
		return err
	}
	if !containsID(cantons, *sel.CantonID, func(c models.Canton) int64 { return c.ID }) {
		return apperrors.NewBadRequestError("canton does not belong to the selected province")
	}

	if sel.DistrictID == nil {
		return nil
	}
	districts, err := s.ListDistricts(ctx, *sel.CantonID)
	if err != nil {
		return err
	}
	if !containsID(districts, *sel.DistrictID, func(d models.District) int64 { return d.ID }) {
		return apperrors.NewBadRequestError("district does not belong to the selected canton")
	}
	return nil
}

func containsID[T any](items []T, id int64, idOf func(T) int64) bool {
	for _, item := range items {
		if idOf(item) == id {
			return true
		}
	}
	return false
}
