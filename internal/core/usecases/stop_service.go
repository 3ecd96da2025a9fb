package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/core/ports"
	"github.com/monteverasrl/montevera/internal/pkg/geospatial"
)

// StopService handles stop-related business logic.
type StopService struct {
	schedule ports.ScheduleRepository
	cache    ports.CacheService
}

// NewStopService creates a new StopService.
func NewStopService(schedule ports.ScheduleRepository, cache ports.CacheService) *StopService {
	return &StopService{schedule: schedule, cache: cache}
}

// GetByID returns a single stop.
func (s *StopService) GetByID(ctx context.Context, id string) (*domain.Stop, error) {
	return s.schedule.StopByID(ctx, id)
}

// FindNearby returns stops within radiusMeters of the given point, closest
// first. Results are cached since the stop list never changes at runtime.
func (s *StopService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Stop, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	cacheKey := fmt.Sprintf("stops:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var stops []domain.Stop
			if err := json.Unmarshal(data, &stops); err == nil {
				return stops, nil
			}
		}
	}

	all, err := s.schedule.AllStops(ctx)
	if err != nil {
		return nil, err
	}

	var stops []domain.Stop
	for _, stop := range all {
		d := geospatial.HaversineMeters(lat, lon, stop.Location.Lat, stop.Location.Lon)
		if d <= radiusMeters {
			dist := d
			stop.Distance = &dist
			stops = append(stops, stop)
		}
	}
	sort.Slice(stops, func(i, j int) bool { return *stops[i].Distance < *stops[j].Distance })
	if len(stops) > limit {
		stops = stops[:limit]
	}

	if s.cache != nil {
		if data, err := json.Marshal(stops); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return stops, nil
}
