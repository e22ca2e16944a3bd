package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/RelativelyIrrelevant/btcmapd/internal/adapters/http"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/usecases"
	"github.com/RelativelyIrrelevant/btcmapd/internal/sitemap"
)

// ---- Mock repositories ----

type mockRegistry struct {
	listFn      func(ctx context.Context) ([]domain.Region, error)
	getBySlugFn func(ctx context.Context, slug string) (*domain.Region, error)
	defaultFn   func(ctx context.Context) (*domain.Region, error)
}

func (m *mockRegistry) List(ctx context.Context) ([]domain.Region, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockRegistry) GetBySlug(ctx context.Context, slug string) (*domain.Region, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, fmt.Errorf("region %q: %w", slug, domain.ErrNotFound)
}
func (m *mockRegistry) Default(ctx context.Context) (*domain.Region, error) {
	if m.defaultFn != nil {
		return m.defaultFn(ctx)
	}
	return nil, fmt.Errorf("no default region: %w", domain.ErrNotFound)
}

type mockBoundaries struct {
	fetchFn func(ctx context.Context, url string) ([]byte, error)
}

func (m *mockBoundaries) FetchBoundary(ctx context.Context, url string) ([]byte, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, url)
	}
	return nil, fmt.Errorf("no boundary for %s", url)
}

type mockSource struct {
	fetchFn func(ctx context.Context, circle domain.CoverageCircle) ([]domain.Place, error)
}

func (m *mockSource) FetchCircle(ctx context.Context, circle domain.CoverageCircle) ([]domain.Place, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, circle)
	}
	return nil, nil
}

type mockMeetupRepo struct {
	listFn        func(ctx context.Context) ([]domain.Meetup, error)
	listByStateFn func(ctx context.Context, state string) ([]domain.Meetup, error)
	getByIDFn     func(ctx context.Context, id string) (*domain.Meetup, error)
}

func (m *mockMeetupRepo) List(ctx context.Context) ([]domain.Meetup, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockMeetupRepo) ListByState(ctx context.Context, state string) ([]domain.Meetup, error) {
	if m.listByStateFn != nil {
		return m.listByStateFn(ctx, state)
	}
	return nil, nil
}
func (m *mockMeetupRepo) GetByID(ctx context.Context, id string) (*domain.Meetup, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("meetup %q: %w", id, domain.ErrNotFound)
}

type mockIndex struct {
	places []domain.Place
}

func (m *mockIndex) Replace(places []domain.Place) { m.places = places }
func (m *mockIndex) SearchRadius(lat, lon, radiusKm float64) []domain.Place {
	return m.places
}
func (m *mockIndex) Nearest(lat, lon float64, n int) []domain.Place {
	if n > len(m.places) {
		n = len(m.places)
	}
	return m.places[:n]
}
func (m *mockIndex) Size() int { return len(m.places) }

// ---- Test helpers ----

// squareBoundary is a GeoJSON square from (0,0) to (10,10).
const squareBoundary = `{
	"type": "Feature",
	"geometry": {
		"type": "Polygon",
		"coordinates": [[[0, 0], [10, 0], [10, 10], [0, 10], [0, 0]]]
	}
}`

func testRegion() *domain.Region {
	return &domain.Region{
		Code:        "IN",
		Slug:        "indiana",
		Name:        "Indiana",
		BoundaryURL: "https://example.com/indiana.geojson",
		Circles: []domain.CoverageCircle{
			{Center: domain.GeoPoint{Lat: 5, Lon: 5}, RadiusKm: 100},
		},
		Default: true,
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	regions := usecases.NewRegionService(&mockRegistry{}, &mockBoundaries{}, &mockSource{}, nil, nil)
	d := &handler.Dependencies{
		Regions: regions,
		Meetups: usecases.NewMeetupService(&mockMeetupRepo{}),
		Places:  usecases.NewPlaceService(regions, &mockIndex{}),
		Sitemap: sitemap.NewBuilder("https://bitcoindiana.org"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// regionDeps wires a full happy-path pipeline: one region, a square
// boundary, and a source returning the given places for every circle.
func regionDeps(places []domain.Place) *handler.Dependencies {
	return makeDeps(func(d *handler.Dependencies) {
		d.Regions = usecases.NewRegionService(
			&mockRegistry{
				listFn: func(ctx context.Context) ([]domain.Region, error) {
					return []domain.Region{*testRegion()}, nil
				},
				getBySlugFn: func(ctx context.Context, slug string) (*domain.Region, error) {
					if slug == "indiana" {
						return testRegion(), nil
					}
					return nil, fmt.Errorf("region %q: %w", slug, domain.ErrNotFound)
				},
				defaultFn: func(ctx context.Context) (*domain.Region, error) {
					return testRegion(), nil
				},
			},
			&mockBoundaries{
				fetchFn: func(ctx context.Context, url string) ([]byte, error) {
					return []byte(squareBoundary), nil
				},
			},
			&mockSource{
				fetchFn: func(ctx context.Context, circle domain.CoverageCircle) ([]domain.Place, error) {
					return places, nil
				},
			},
			nil, nil,
		)
	})
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

// ---- Region handler tests ----

func TestListRegions_Success(t *testing.T) {
	app := setupApp(regionDeps(nil))

	req := httptest.NewRequest("GET", "/v1/regions", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Regions []domain.Region `json:"regions"`
		Count   int             `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 1 || len(result.Regions) != 1 {
		t.Fatalf("expected 1 region, got %d", result.Count)
	}
	if result.Regions[0].Slug != "indiana" {
		t.Errorf("unexpected region %q", result.Regions[0].Slug)
	}
}

func TestGetRegion_NotFound(t *testing.T) {
	app := setupApp(regionDeps(nil))

	req := httptest.NewRequest("GET", "/v1/regions/ohio", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "not_found" {
		t.Errorf("expected not_found error, got %s", apiErr.Code)
	}
}

func TestRegionPlaces_FiltersByBoundary(t *testing.T) {
	app := setupApp(regionDeps([]domain.Place{
		{ID: 1, Name: "Inside", Icon: "cafe", Location: domain.GeoPoint{Lat: 5, Lon: 5}},
		{ID: 2, Name: "Outside", Icon: "bar", Location: domain.GeoPoint{Lat: 50, Lon: 50}},
	}))

	req := httptest.NewRequest("GET", "/v1/regions/indiana/places", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		Region string         `json:"region"`
		Places []domain.Place `json:"places"`
		Stats  struct {
			Candidates int `json:"candidates"`
			Inside     int `json:"inside"`
		} `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Places) != 1 || result.Places[0].ID != 1 {
		t.Fatalf("expected only the inside place, got %+v", result.Places)
	}
	if result.Stats.Candidates != 2 || result.Stats.Inside != 1 {
		t.Errorf("unexpected stats: %+v", result.Stats)
	}
}

func TestRegionPlaces_ExcludeCategories(t *testing.T) {
	app := setupApp(regionDeps([]domain.Place{
		{ID: 1, Icon: "cafe", Location: domain.GeoPoint{Lat: 5, Lon: 5}},
		{ID: 2, Icon: "bar", Location: domain.GeoPoint{Lat: 6, Lon: 6}},
	}))

	req := httptest.NewRequest("GET", "/v1/regions/indiana/places?exclude=bar", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Places []domain.Place `json:"places"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Places) != 1 || result.Places[0].Icon != "cafe" {
		t.Errorf("expected bar excluded, got %+v", result.Places)
	}
}

func TestRegionPlaces_Pagination(t *testing.T) {
	var places []domain.Place
	for i := 0; i < 5; i++ {
		places = append(places, domain.Place{
			ID:       int64(i + 1),
			Location: domain.GeoPoint{Lat: 5, Lon: float64(i) + 1},
		})
	}
	app := setupApp(regionDeps(places))

	req := httptest.NewRequest("GET", "/v1/regions/indiana/places?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Places     []domain.Place `json:"places"`
		Pagination struct {
			Offset int `json:"offset"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 || result.Pagination.Offset != 2 {
		t.Errorf("unexpected pagination: %+v", result.Pagination)
	}
	if len(result.Places) != 2 || result.Places[0].ID != 3 {
		t.Errorf("unexpected page: %+v", result.Places)
	}
}

func TestRegionPlaces_UpstreamFailure(t *testing.T) {
	deps := regionDeps(nil)
	deps.Regions = usecases.NewRegionService(
		&mockRegistry{
			getBySlugFn: func(ctx context.Context, slug string) (*domain.Region, error) {
				return testRegion(), nil
			},
		},
		&mockBoundaries{
			fetchFn: func(ctx context.Context, url string) ([]byte, error) {
				return []byte(squareBoundary), nil
			},
		},
		&mockSource{
			fetchFn: func(ctx context.Context, circle domain.CoverageCircle) ([]domain.Place, error) {
				return nil, fmt.Errorf("upstream returned 503")
			},
		},
		nil, nil,
	)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/regions/indiana/places", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "bad_gateway" {
		t.Errorf("expected bad_gateway error, got %s", apiErr.Code)
	}
}

func TestRefreshRegion_Success(t *testing.T) {
	app := setupApp(regionDeps([]domain.Place{
		{ID: 1, Location: domain.GeoPoint{Lat: 5, Lon: 5}},
	}))

	req := httptest.NewRequest("POST", "/v1/regions/indiana/refresh", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		Region     string `json:"region"`
		Generation uint64 `json:"generation"`
		Places     int    `json:"places"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Region != "indiana" || result.Places != 1 {
		t.Errorf("unexpected refresh response: %+v", result)
	}
	if result.Generation == 0 {
		t.Error("generation should start at 1")
	}
}

func TestRefreshRegion_UnknownRegion(t *testing.T) {
	app := setupApp(regionDeps(nil))

	req := httptest.NewRequest("POST", "/v1/regions/atlantis/refresh", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Nearby places tests ----

func TestNearbyPlaces_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Places = usecases.NewPlaceService(d.Regions, &mockIndex{
			places: []domain.Place{
				{ID: 7, Name: "Coffee", Location: domain.GeoPoint{Lat: 39.8, Lon: -86.1}},
			},
		})
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/places/nearby?lat=39.8&lon=-86.1&radius_km=25", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		Places []domain.Place `json:"places"`
		Count  int            `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 1 || result.Places[0].ID != 7 {
		t.Errorf("unexpected nearby result: %+v", result)
	}
}

func TestNearbyPlaces_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/places/nearby", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyPlaces_BadRadius(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/places/nearby?lat=39.8&lon=-86.1&radius_km=9000", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Meetup handler tests ----

func meetupDeps() *handler.Dependencies {
	indy := domain.Meetup{ID: "indy-btc", Name: "Indy Bitcoin", State: "IN", Schedule: "2nd Tuesday"}
	louisville := domain.Meetup{ID: "louisville-btc", Name: "Louisville Bitcoin", State: "KY",
		Schedule: "1st Thursday", CoverageStates: []string{"IN"}}

	return makeDeps(func(d *handler.Dependencies) {
		d.Meetups = usecases.NewMeetupService(&mockMeetupRepo{
			listFn: func(ctx context.Context) ([]domain.Meetup, error) {
				return []domain.Meetup{indy, louisville}, nil
			},
			listByStateFn: func(ctx context.Context, state string) ([]domain.Meetup, error) {
				if state == "KY" {
					return []domain.Meetup{louisville}, nil
				}
				return []domain.Meetup{indy, louisville}, nil
			},
			getByIDFn: func(ctx context.Context, id string) (*domain.Meetup, error) {
				if id == "indy-btc" {
					return &indy, nil
				}
				return nil, fmt.Errorf("meetup %q: %w", id, domain.ErrNotFound)
			},
		})
	})
}

func TestListMeetups_All(t *testing.T) {
	app := setupApp(meetupDeps())

	req := httptest.NewRequest("GET", "/v1/meetups", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Count int `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 2 {
		t.Errorf("expected 2 meetups, got %d", result.Count)
	}
}

func TestListMeetups_ByState(t *testing.T) {
	app := setupApp(meetupDeps())

	req := httptest.NewRequest("GET", "/v1/meetups?state=ky", nil)
	resp, _ := app.Test(req, -1)

	var result struct {
		Meetups []domain.Meetup `json:"meetups"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Meetups) != 1 || result.Meetups[0].ID != "louisville-btc" {
		t.Errorf("unexpected KY meetups: %+v", result.Meetups)
	}
}

func TestMeetupStates(t *testing.T) {
	app := setupApp(meetupDeps())

	req := httptest.NewRequest("GET", "/v1/meetups/states", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		States []string `json:"states"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.States) != 2 || result.States[0] != "IN" || result.States[1] != "KY" {
		t.Errorf("expected [IN KY], got %v", result.States)
	}
}

func TestGetMeetup_NotFound(t *testing.T) {
	app := setupApp(meetupDeps())

	req := httptest.NewRequest("GET", "/v1/meetups/nope", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Sitemap tests ----

func TestSitemap(t *testing.T) {
	deps := meetupDeps()
	deps.Regions = regionDeps(nil).Regions
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/sitemap.xml", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "xml") {
		t.Errorf("expected XML content type, got %q", ct)
	}

	body := string(readBody(t, resp.Body))
	for _, want := range []string{
		"https://bitcoindiana.org/indiana/",
		"https://bitcoindiana.org/meetups/in/",
		"https://bitcoindiana.org/meetups/ky/",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("sitemap missing %s", want)
		}
	}
}

// ---- Health tests ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReady_NoOptionalDeps(t *testing.T) {
	app := setupApp(makeDeps())

	// With neither NATS nor cache configured, readiness still passes.
	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
