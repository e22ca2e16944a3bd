package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Region is one registry entry: a US state (or similar area) with a
// boundary file and the coverage circles used to query the place API.
type Region struct {
	Code        string           `json:"code"` // two-letter state code, e.g. "IN"
	Slug        string           `json:"slug"`
	Name        string           `json:"name"`
	BoundaryURL string           `json:"boundary_url"`
	Circles     []CoverageCircle `json:"circles"`
	Default     bool             `json:"default,omitempty"`
}

// Place is a Bitcoin-accepting merchant fetched from the upstream API.
type Place struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name,omitempty"`
	Icon       string     `json:"icon,omitempty"` // category tag
	Address    string     `json:"address,omitempty"`
	Website    string     `json:"website,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	OSMURL     string     `json:"osm_url,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	Location   GeoPoint   `json:"location"`
}

// HasValidLocation reports whether the place carries finite coordinates.
// Places failing this check are dropped during aggregation rather than
// failing the whole batch.
func (p Place) HasValidLocation() bool {
	return !math.IsNaN(p.Location.Lat) && !math.IsInf(p.Location.Lat, 0) &&
		!math.IsNaN(p.Location.Lon) && !math.IsInf(p.Location.Lon, 0)
}

// MeetupLink is a labelled URL attached to a meetup record.
type MeetupLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Meetup is a recurring Bitcoin meetup. Meetup data is authoritative
// local JSON; it is rendered like places but never polygon-filtered.
type Meetup struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Schedule       string       `json:"schedule"` // e.g. "2nd Tuesday"
	Time           string       `json:"time,omitempty"`
	Address        string       `json:"address,omitempty"`
	City           string       `json:"city,omitempty"`
	County         string       `json:"county,omitempty"`
	Zip            string       `json:"zip,omitempty"`
	State          string       `json:"state"`
	CoverageStates []string     `json:"coverage_states,omitempty"`
	CoverageCities []string     `json:"coverage_cities,omitempty"`
	Location       *GeoPoint    `json:"location,omitempty"`
	Links          []MeetupLink `json:"links,omitempty"`
	Notes          string       `json:"notes,omitempty"`
}

// Validate checks the fields the meetup data file must carry. It returns
// every problem found, not just the first.
func (m Meetup) Validate() error {
	var errs []string
	if m.ID == "" {
		errs = append(errs, "id is required")
	}
	if m.Name == "" {
		errs = append(errs, "name is required")
	}
	if m.State == "" {
		errs = append(errs, "state is required")
	} else if len(m.State) != 2 || strings.ToUpper(m.State) != m.State {
		errs = append(errs, fmt.Sprintf("state must be a two-letter uppercase code, got %q", m.State))
	}
	if m.Schedule == "" {
		errs = append(errs, "schedule is required")
	}
	if m.Location != nil {
		if m.Location.Lat < -90 || m.Location.Lat > 90 {
			errs = append(errs, fmt.Sprintf("latitude out of range: %v", m.Location.Lat))
		}
		if m.Location.Lon < -180 || m.Location.Lon > 180 {
			errs = append(errs, fmt.Sprintf("longitude out of range: %v", m.Location.Lon))
		}
	}
	for i, l := range m.Links {
		if l.URL == "" {
			errs = append(errs, fmt.Sprintf("links[%d]: url is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("meetup %q: %s", m.ID, strings.Join(errs, "; "))
	}
	return nil
}

// FilterStats records how candidates moved through the containment filter.
type FilterStats struct {
	Candidates  int `json:"candidates"`
	BoxRejected int `json:"box_rejected"`
	RayCasted   int `json:"ray_casted"`
	Inside      int `json:"inside"`
}

// RegionSnapshot is the per-load session object: the filtered place set
// for a region together with how it was produced. Each load builds a
// fresh snapshot; snapshots are never mutated after publication.
type RegionSnapshot struct {
	Region      string      `json:"region"`
	Places      []Place     `json:"places"`
	Stats       FilterStats `json:"stats"`
	Generation  uint64      `json:"generation"`
	RefreshedAt time.Time   `json:"refreshed_at"`
}
