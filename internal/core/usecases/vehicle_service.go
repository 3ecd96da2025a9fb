package usecases

import (
	"context"
	"encoding/json"

	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/core/ports"
)

// FleetSnapshotKey is the cache key holding the latest fleet positions,
// written by the tracker and read by the API.
const FleetSnapshotKey = "fleet:positions"

// VehicleService serves the latest fleet snapshot to the website map.
type VehicleService struct {
	cache ports.CacheService
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(cache ports.CacheService) *VehicleService {
	return &VehicleService{cache: cache}
}

// FleetSnapshot returns the most recent positions for all buses. An absent
// or expired snapshot yields an empty list, never an error: the map simply
// shows no vehicles until the tracker writes again.
func (s *VehicleService) FleetSnapshot(ctx context.Context) ([]domain.VehiclePosition, error) {
	if s.cache == nil {
		return []domain.VehiclePosition{}, nil
	}

	data, err := s.cache.Get(ctx, FleetSnapshotKey)
	if err != nil {
		return []domain.VehiclePosition{}, nil
	}

	var positions []domain.VehiclePosition
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}
