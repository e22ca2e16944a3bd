package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/usecases"
)

// ListRegionsHandler returns all registry entries.
func ListRegionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		regions, err := deps.Regions.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{
			"regions": regions,
			"count":   len(regions),
		})
	}
}

// GetRegionHandler returns a single region by slug.
func GetRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "region slug is required")
		}
		region, err := deps.Regions.GetBySlug(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "region not found")
		}
		return c.JSON(region)
	}
}

// RegionPlacesHandler returns the filtered place set for a region.
// ?exclude=bar,cafe drops places by category tag; ?offset/?limit page
// through the list. The response carries the snapshot's filter stats
// and refresh time alongside the page.
func RegionPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "region slug is required")
		}

		snap, err := deps.Regions.Snapshot(c.Context(), slug)
		if err != nil {
			return snapshotError(c, err)
		}

		places := snap.Places
		if raw := c.Query("exclude"); raw != "" {
			places = usecases.ExcludeCategories(places, strings.Split(raw, ","))
		}

		page, pg := paginate(c, places, 100, 500)
		SetLinkHeaders(c, pg)
		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(fiber.Map{
			"region":       snap.Region,
			"places":       page,
			"pagination":   pg,
			"stats":        snap.Stats,
			"refreshed_at": snap.RefreshedAt,
		})
	}
}

// RefreshRegionHandler forces a full refresh of a region's snapshot.
func RefreshRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "region slug is required")
		}

		started := time.Now()
		snap, err := deps.Regions.Refresh(c.Context(), slug)
		if err != nil {
			return snapshotError(c, err)
		}
		return c.JSON(fiber.Map{
			"region":       snap.Region,
			"generation":   snap.Generation,
			"places":       len(snap.Places),
			"stats":        snap.Stats,
			"refreshed_at": snap.RefreshedAt,
			"took":         time.Since(started).String(),
		})
	}
}

// NearbyPlacesHandler returns places within a radius of a point,
// closest first.
func NearbyPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius_km", 25)
		limit := c.QueryInt("limit", 50)

		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return errBadRequest(c, "lat/lon out of range")
		}
		if radius <= 0 || radius > 500 {
			return errBadRequest(c, "radius_km must be between 0 and 500")
		}

		places, err := deps.Places.FindNearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return snapshotError(c, err)
		}
		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(fiber.Map{
			"places": places,
			"count":  len(places),
		})
	}
}

// ListMeetupsHandler returns meetups, optionally filtered by state.
func ListMeetupsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		meetups, err := deps.Meetups.List(c.Context(), c.Query("state"))
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{
			"meetups": meetups,
			"count":   len(meetups),
		})
	}
}

// MeetupStatesHandler returns the states that have at least one meetup.
func MeetupStatesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		states, err := deps.Meetups.States(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{"states": states})
	}
}

// GetMeetupHandler returns a single meetup by ID.
func GetMeetupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "meetup id is required")
		}
		meetup, err := deps.Meetups.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "meetup not found")
		}
		return c.JSON(meetup)
	}
}

// SitemapHandler renders sitemap.xml from the registry and the meetup
// states.
func SitemapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		regions, err := deps.Regions.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		states, err := deps.Meetups.States(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		slugs := make([]string, len(regions))
		for i, r := range regions {
			slugs[i] = r.Slug
		}

		c.Set("Content-Type", "application/xml; charset=utf-8")
		c.Set("Cache-Control", "public, max-age=3600")
		return c.Send(deps.Sitemap.Build(slugs, states, time.Now()))
	}
}

// snapshotError maps pipeline failures: unknown regions are 404s,
// everything else failed while talking upstream and is a 502.
func snapshotError(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return errNotFound(c, "region not found")
	}
	return errBadGateway(c, err.Error())
}
