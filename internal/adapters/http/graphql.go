package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	circleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CoverageCircle",
		Fields: graphql.Fields{
			"center":    &graphql.Field{Type: geoPointType},
			"radius_km": &graphql.Field{Type: graphql.Float},
		},
	})

	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Region",
		Fields: graphql.Fields{
			"code":         &graphql.Field{Type: graphql.String},
			"slug":         &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"boundary_url": &graphql.Field{Type: graphql.String},
			"circles":      &graphql.Field{Type: graphql.NewList(circleType)},
			"default":      &graphql.Field{Type: graphql.Boolean},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"name":        &graphql.Field{Type: graphql.String},
			"icon":        &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: graphql.String},
			"website":     &graphql.Field{Type: graphql.String},
			"phone":       &graphql.Field{Type: graphql.String},
			"osm_url":     &graphql.Field{Type: graphql.String},
			"verified_at": &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
		},
	})

	linkType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MeetupLink",
		Fields: graphql.Fields{
			"label": &graphql.Field{Type: graphql.String},
			"url":   &graphql.Field{Type: graphql.String},
		},
	})

	meetupType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Meetup",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"name":            &graphql.Field{Type: graphql.String},
			"schedule":        &graphql.Field{Type: graphql.String},
			"time":            &graphql.Field{Type: graphql.String},
			"address":         &graphql.Field{Type: graphql.String},
			"city":            &graphql.Field{Type: graphql.String},
			"county":          &graphql.Field{Type: graphql.String},
			"zip":             &graphql.Field{Type: graphql.String},
			"state":           &graphql.Field{Type: graphql.String},
			"coverage_states": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"coverage_cities": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"location":        &graphql.Field{Type: geoPointType},
			"links":           &graphql.Field{Type: graphql.NewList(linkType)},
			"notes":           &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"regions": &graphql.Field{
				Type:        graphql.NewList(regionType),
				Description: "List all registry regions",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.List(p.Context)
				},
			},
			"region": &graphql.Field{
				Type:        regionType,
				Description: "Get a region by slug",
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.GetBySlug(p.Context, p.Args["slug"].(string))
				},
			},
			"places": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Filtered places for a region's current snapshot",
				Args: graphql.FieldConfigArgument{
					"region":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"exclude": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					snap, err := deps.Regions.Snapshot(p.Context, p.Args["region"].(string))
					if err != nil {
						return nil, err
					}
					places := snap.Places
					if raw := p.Args["exclude"].(string); raw != "" {
						places = usecases.ExcludeCategories(places, strings.Split(raw, ","))
					}
					return places, nil
				},
			},
			"placesNearby": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Places within a radius of a point, closest first",
				Args: graphql.FieldConfigArgument{
					"lat":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius_km": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 25.0},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Places.FindNearby(p.Context,
						p.Args["lat"].(float64),
						p.Args["lon"].(float64),
						p.Args["radius_km"].(float64),
						p.Args["limit"].(int),
					)
				},
			},
			"meetups": &graphql.Field{
				Type:        graphql.NewList(meetupType),
				Description: "List meetups, optionally filtered by state",
				Args: graphql.FieldConfigArgument{
					"state": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Meetups.List(p.Context, p.Args["state"].(string))
				},
			},
			"meetup": &graphql.Field{
				Type:        meetupType,
				Description: "Get a meetup by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Meetups.GetByID(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
