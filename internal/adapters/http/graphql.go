package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
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

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"code":             &graphql.Field{Type: graphql.String},
			"name":             &graphql.Field{Type: graphql.String},
			"color":            &graphql.Field{Type: graphql.String},
			"duration_minutes": &graphql.Field{Type: graphql.Int},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"route_id": &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
			"locality": &graphql.Field{Type: graphql.String},
			"distance": &graphql.Field{Type: graphql.Float},
		},
	})

	vehicleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Vehicle",
		Fields: graphql.Fields{
			"vehicle_id": &graphql.Field{Type: graphql.String},
			"device_id":  &graphql.Field{Type: graphql.String},
			"route_id":   &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"speed":      &graphql.Field{Type: graphql.Float},
			"heading":    &graphql.Field{Type: graphql.Float},
			"online":     &graphql.Field{Type: graphql.Boolean},
			"stale":      &graphql.Field{Type: graphql.Boolean},
		},
	})

	arrivalType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Arrival",
		Fields: graphql.Fields{
			"minutes_to_arrival": &graphql.Field{Type: graphql.Int},
			"departure_time":     &graphql.Field{Type: graphql.String},
			"bus_id":             &graphql.Field{Type: graphql.String},
			"status":             &graphql.Field{Type: graphql.String},
			"eta_text":           &graphql.Field{Type: graphql.String},
			"message":            &graphql.Field{Type: graphql.String},
			"next_bus_arrival":   &graphql.Field{Type: graphql.String},
		},
	})

	fareType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Fare",
		Fields: graphql.Fields{
			"from":           &graphql.Field{Type: graphql.String},
			"to":             &graphql.Field{Type: graphql.String},
			"amount":         &graphql.Field{Type: graphql.Float},
			"currency":       &graphql.Field{Type: graphql.String},
			"payment_method": &graphql.Field{Type: graphql.String},
			"effective":      &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "Both directions of the line",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.List(p.Context)
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a route by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"routeStops": &graphql.Field{
				Type:        graphql.NewList(stopType),
				Description: "Ordered stop sequence of a route",
				Args: graphql.FieldConfigArgument{
					"route_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.Stops(p.Context, p.Args["route_id"].(string))
				},
			},
			"stop": &graphql.Field{
				Type:        stopType,
				Description: "Get a stop by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stops.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"stopsNearby": &graphql.Field{
				Type:        graphql.NewList(stopType),
				Description: "Find stops near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Stops.FindNearby(p.Context, lat, lon, radius, limit)
				},
			},
			"nextBus": &graphql.Field{
				Type:        arrivalType,
				Description: "Next arrival estimate at a stop",
				Args: graphql.FieldConfigArgument{
					"route_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"stop_id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					arrival, err := deps.Arrivals.NextArrival(p.Context, p.Args["route_id"].(string), p.Args["stop_id"].(string))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"minutes_to_arrival": arrival.MinutesToArrival,
						"departure_time":     arrival.DepartureTime,
						"bus_id":             arrival.BusID,
						"status":             string(arrival.Status),
						"eta_text":           FormatMinutes(arrival.MinutesToArrival),
						"message":            StatusMessage(arrival.Status, arrival.MinutesToArrival),
						"next_bus_arrival":   arrival.NextBusArrival.Format(time.RFC3339),
					}, nil
				},
			},
			"vehicles": &graphql.Field{
				Type:        graphql.NewList(vehicleType),
				Description: "Latest fleet positions",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Vehicles.FleetSnapshot(p.Context)
				},
			},
			"fare": &graphql.Field{
				Type:        fareType,
				Description: "Fare between two localities",
				Args: graphql.FieldConfigArgument{
					"from": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"to":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Fares.Lookup(p.Context, p.Args["from"].(string), p.Args["to"].(string))
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
