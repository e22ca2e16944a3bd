// Package registry loads the authoritative local data files: the region
// registry and the meetup list. Both are read once at startup and held
// immutable in memory.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
)

// RegionFile is a ports.RegionRegistry backed by a JSON file.
type RegionFile struct {
	regions []domain.Region
	bySlug  map[string]*domain.Region
	deflt   *domain.Region
}

// NewRegionFile reads and validates the registry file. The file is a
// JSON array of regions; exactly one entry may be marked default, and
// when none is, the first entry is used.
func NewRegionFile(path string) (*RegionFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region registry: %w", err)
	}

	var regions []domain.Region
	if err := json.Unmarshal(raw, &regions); err != nil {
		return nil, fmt.Errorf("parse region registry %s: %w", path, err)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("region registry %s is empty", path)
	}

	r := &RegionFile{
		regions: regions,
		bySlug:  make(map[string]*domain.Region, len(regions)),
	}
	for i := range regions {
		reg := &r.regions[i]
		if err := validateRegion(reg); err != nil {
			return nil, fmt.Errorf("region registry %s: %w", path, err)
		}
		if _, dup := r.bySlug[reg.Slug]; dup {
			return nil, fmt.Errorf("region registry %s: duplicate slug %q", path, reg.Slug)
		}
		r.bySlug[reg.Slug] = reg
		if reg.Default {
			if r.deflt != nil {
				return nil, fmt.Errorf("region registry %s: both %q and %q marked default", path, r.deflt.Slug, reg.Slug)
			}
			r.deflt = reg
		}
	}
	if r.deflt == nil {
		r.deflt = &r.regions[0]
	}
	return r, nil
}

func validateRegion(reg *domain.Region) error {
	var errs []string
	if reg.Code == "" || len(reg.Code) != 2 || strings.ToUpper(reg.Code) != reg.Code {
		errs = append(errs, fmt.Sprintf("code must be a two-letter uppercase code, got %q", reg.Code))
	}
	if reg.Slug == "" {
		errs = append(errs, "slug is required")
	}
	if reg.Name == "" {
		errs = append(errs, "name is required")
	}
	if reg.BoundaryURL == "" {
		errs = append(errs, "boundary_url is required")
	}
	for i, c := range reg.Circles {
		if c.RadiusKm <= 0 {
			errs = append(errs, fmt.Sprintf("circles[%d]: radius must be positive", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("region %q: %s", reg.Slug, strings.Join(errs, "; "))
	}
	return nil
}

// List returns every registry entry in file order.
func (r *RegionFile) List(_ context.Context) ([]domain.Region, error) {
	out := make([]domain.Region, len(r.regions))
	copy(out, r.regions)
	return out, nil
}

// GetBySlug resolves one region.
func (r *RegionFile) GetBySlug(_ context.Context, slug string) (*domain.Region, error) {
	reg, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("region %q: %w", slug, domain.ErrNotFound)
	}
	return reg, nil
}

// Default returns the region the site renders when none is requested.
func (r *RegionFile) Default(_ context.Context) (*domain.Region, error) {
	return r.deflt, nil
}
