package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/core/usecases"
	"github.com/monteverasrl/montevera/internal/pkg/metrics"
)

// ListRoutesHandler returns both directions of the line.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routes, err := deps.Routes.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(routes)
	}
}

// GetRouteHandler returns a route by ID.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		route, err := deps.Routes.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "route not found")
		}
		return c.JSON(route)
	}
}

// RouteStopsHandler returns the ordered stop sequence of a route.
func RouteStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}
		stops, err := deps.Routes.Stops(c.Context(), id)
		if err != nil {
			return errNotFound(c, "route not found")
		}

		// Apply offset/limit pagination on the full list
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		total := len(stops)
		if offset >= total {
			stops = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			stops = stops[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(PaginatedResponse{Data: stopListResponse(stops), Pagination: pg})
	}
}

// stopListResponse exposes the published offset alongside each stop.
func stopListResponse(stops []domain.Stop) []fiber.Map {
	out := make([]fiber.Map, 0, len(stops))
	for i := range stops {
		s := &stops[i]
		out = append(out, fiber.Map{
			"id":       s.ID,
			"route_id": s.RouteID,
			"name":     s.Name,
			"location": s.Location,
			"offset":   s.OffsetString(),
			"locality": s.Locality,
		})
	}
	return out
}

// RouteTimetableHandler returns the departure list a route runs on a date.
// GET /v1/routes/:id/timetable?date=2025-07-09 (defaults to today).
func RouteTimetableHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "route id is required")
		}

		date := time.Now().In(deps.Location)
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", raw, deps.Location)
			if err != nil {
				return errBadRequest(c, "date must be YYYY-MM-DD")
			}
			date = parsed
		}

		tt, err := deps.Routes.TimetableFor(c.Context(), id, date)
		if err != nil {
			return errNotFound(c, "route not found")
		}

		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(fiber.Map{
			"route_id":   tt.RouteID,
			"date":       date.Format("2006-01-02"),
			"day_type":   tt.DayType,
			"departures": tt.Departures,
			"first":      tt.First(),
			"last":       tt.Last(),
		})
	}
}

// NextBusHandler computes the next arrival at a stop.
// GET /v1/routes/:id/stops/:stopId/next-bus
func NextBusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routeID := c.Params("id")
		stopID := c.Params("stopId")
		if routeID == "" || stopID == "" {
			return errBadRequest(c, "route id and stop id are required")
		}

		arrival, err := deps.Arrivals.NextArrival(c.Context(), routeID, stopID)
		if err != nil {
			if errors.Is(err, domain.ErrRouteNotFound) || errors.Is(err, domain.ErrStopNotFound) {
				return errNotFound(c, err.Error())
			}
			return errInternal(c, err.Error())
		}

		// Estimates go stale by the minute
		c.Set("Cache-Control", "public, max-age=15")
		return c.JSON(arrivalResponse(arrival))
	}
}

// GetStopHandler returns a single stop by ID.
func GetStopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "stop id is required")
		}
		stop, err := deps.Stops.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "stop not found")
		}
		return c.JSON(stop)
	}
}

// NearbyStopsHandler returns stops within a radius of a point.
func NearbyStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 50)

		if lat == 0 || lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000 meters")
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		stops, err := deps.Stops.FindNearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(stops)
	}
}

// FaresHandler returns the full published fare matrix.
func FaresHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		table, err := deps.Fares.Table(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(table)
	}
}

// FareLookupHandler resolves the fare between two localities.
// GET /v1/fares/lookup?from=Santa%20Fe&to=Monte%20Vera
func FareLookupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from := c.Query("from")
		to := c.Query("to")
		if from == "" || to == "" {
			return errBadRequest(c, "from and to are required")
		}

		quote, err := deps.Fares.Lookup(c.Context(), from, to)
		if err != nil {
			if errors.Is(err, domain.ErrFareNotFound) {
				return errNotFound(c, "no fare between those localities")
			}
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(quote)
	}
}

// VehiclesHandler returns the latest fleet snapshot for the live map.
func VehiclesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		positions, err := deps.Vehicles.FleetSnapshot(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=10")
		return c.JSON(positions)
	}
}

// ContactHandler accepts a contact-form submission and dispatches it by mail.
// POST /v1/contact
func ContactHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var msg domain.ContactMessage
		if err := c.BodyParser(&msg); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if err := deps.Contact.Send(c.Context(), &msg); err != nil {
			var verr *usecases.ValidationError
			if errors.As(err, &verr) {
				metrics.ContactMailsSent.WithLabelValues("rejected").Inc()
				return errBadRequest(c, "nombre, email y mensaje son obligatorios")
			}
			metrics.ContactMailsSent.WithLabelValues("error").Inc()
			// Never leak provider details to the website
			return errBadGateway(c, "no se pudo enviar el mensaje, intente nuevamente")
		}

		metrics.ContactMailsSent.WithLabelValues("sent").Inc()
		return c.JSON(fiber.Map{"success": true})
	}
}
