package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/core/ports"
	"github.com/monteverasrl/montevera/internal/pkg/geospatial"
)

// TrackerService processes one polling cycle of the GPS feed: read the
// fleet, tag each bus with its likely direction, store the snapshot for the
// API, and publish each position for websocket clients.
type TrackerService struct {
	feed        ports.VehicleFeed
	cache       ports.CacheService
	publisher   ports.EventPublisher
	schedule    ports.ScheduleRepository
	snapshotTTL int // seconds
}

// NewTrackerService creates a new TrackerService. snapshotTTL bounds how
// long a stale snapshot survives a tracker outage.
func NewTrackerService(feed ports.VehicleFeed, cache ports.CacheService, publisher ports.EventPublisher, schedule ports.ScheduleRepository, snapshotTTL int) *TrackerService {
	if snapshotTTL <= 0 {
		snapshotTTL = 120
	}
	return &TrackerService{
		feed:        feed,
		cache:       cache,
		publisher:   publisher,
		schedule:    schedule,
		snapshotTTL: snapshotTTL,
	}
}

// Poll runs one cycle. Feed errors abort the cycle; per-position publish
// errors are logged and skipped so one bad reading never loses the rest.
func (s *TrackerService) Poll(ctx context.Context) error {
	positions, err := s.feed.FleetPositions(ctx)
	if err != nil {
		return fmt.Errorf("fleet positions: %w", err)
	}

	routes, err := s.schedule.Routes(ctx)
	if err != nil {
		return fmt.Errorf("routes: %w", err)
	}

	for i := range positions {
		positions[i].RouteID = inferDirection(positions[i].Location, routes)
	}

	if s.cache != nil {
		data, err := json.Marshal(positions)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		if err := s.cache.Set(ctx, FleetSnapshotKey, data, s.snapshotTTL); err != nil {
			slog.Warn("fleet snapshot write failed", "error", err)
		}
	}

	if s.publisher != nil {
		for i := range positions {
			if err := s.publisher.PublishVehiclePosition(ctx, &positions[i]); err != nil {
				slog.Warn("publish position failed", "vehicle", positions[i].VehicleID, "error", err)
			}
		}
	}

	return nil
}

// inferDirection guesses which direction a bus is running by comparing its
// distance to the two route origins: a bus near the Santa Fe terminal is
// assumed to be heading out to Monte Vera, and vice versa.
func inferDirection(loc domain.GeoPoint, routes []domain.Route) string {
	bestID := ""
	bestDist := -1.0
	for _, r := range routes {
		origin := r.Origin()
		d := geospatial.HaversineMeters(loc.Lat, loc.Lon, origin.Lat, origin.Lon)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			bestID = r.ID
		}
	}
	return bestID
}
