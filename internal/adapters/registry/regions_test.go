package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const regionsDoc = `[
	{
		"code": "IN", "slug": "indiana", "name": "Indiana", "default": true,
		"boundary_url": "https://example.com/indiana.geojson",
		"circles": [{"center": {"lat": 39.8, "lon": -86.2}, "radius_km": 150}]
	},
	{
		"code": "KY", "slug": "kentucky", "name": "Kentucky",
		"boundary_url": "https://example.com/kentucky.geojson",
		"circles": [{"center": {"lat": 37.8, "lon": -85.0}, "radius_km": 200}]
	}
]`

func TestNewRegionFile_LoadsAndResolves(t *testing.T) {
	reg, err := NewRegionFile(writeFile(t, "regions.json", regionsDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	regions, err := reg.List(ctx)
	if err != nil || len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d (err %v)", len(regions), err)
	}
	if regions[0].Slug != "indiana" {
		t.Errorf("file order not preserved, first is %q", regions[0].Slug)
	}

	ky, err := reg.GetBySlug(ctx, "kentucky")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ky.Code != "KY" || len(ky.Circles) != 1 || ky.Circles[0].RadiusKm != 200 {
		t.Errorf("kentucky parsed wrong: %+v", ky)
	}

	def, err := reg.Default(ctx)
	if err != nil || def.Slug != "indiana" {
		t.Errorf("expected indiana as default, got %v (err %v)", def, err)
	}
}

func TestNewRegionFile_UnknownSlug(t *testing.T) {
	reg, err := NewRegionFile(writeFile(t, "regions.json", regionsDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.GetBySlug(context.Background(), "ohio"); err == nil {
		t.Fatal("expected an error for an unknown slug")
	}
}

func TestNewRegionFile_FirstEntryIsFallbackDefault(t *testing.T) {
	doc := strings.ReplaceAll(regionsDoc, `"default": true,`, "")
	reg, err := NewRegionFile(writeFile(t, "regions.json", doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def, err := reg.Default(context.Background())
	if err != nil || def.Slug != "indiana" {
		t.Errorf("expected first entry as fallback default, got %v (err %v)", def, err)
	}
}

func TestNewRegionFile_RejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"lowercase code": `[{"code": "in", "slug": "indiana", "name": "Indiana", "boundary_url": "u"}]`,
		"missing slug":   `[{"code": "IN", "name": "Indiana", "boundary_url": "u"}]`,
		"duplicate slug": `[
			{"code": "IN", "slug": "indiana", "name": "Indiana", "boundary_url": "u"},
			{"code": "IL", "slug": "indiana", "name": "Illinois", "boundary_url": "u"}
		]`,
		"two defaults": `[
			{"code": "IN", "slug": "indiana", "name": "Indiana", "boundary_url": "u", "default": true},
			{"code": "IL", "slug": "illinois", "name": "Illinois", "boundary_url": "u", "default": true}
		]`,
		"zero radius": `[{"code": "IN", "slug": "indiana", "name": "Indiana", "boundary_url": "u",
			"circles": [{"center": {"lat": 0, "lon": 0}, "radius_km": 0}]}]`,
		"empty file": `[]`,
	}
	for name, doc := range cases {
		if _, err := NewRegionFile(writeFile(t, "regions.json", doc)); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
}
