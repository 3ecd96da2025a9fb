package usecases

import (
	"context"
	"time"

	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/core/ports"
)

// RouteService handles route-related business logic.
type RouteService struct {
	schedule ports.ScheduleRepository
}

// NewRouteService creates a new RouteService.
func NewRouteService(schedule ports.ScheduleRepository) *RouteService {
	return &RouteService{schedule: schedule}
}

// List returns both directions of the line.
func (s *RouteService) List(ctx context.Context) ([]domain.Route, error) {
	return s.schedule.Routes(ctx)
}

// GetByID returns a route by its identifier.
func (s *RouteService) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	return s.schedule.RouteByID(ctx, id)
}

// Stops returns the ordered stop sequence of a route.
func (s *RouteService) Stops(ctx context.Context, routeID string) ([]domain.Stop, error) {
	return s.schedule.StopsByRoute(ctx, routeID)
}

// TimetableFor returns the departure list a route runs on the given date.
func (s *RouteService) TimetableFor(ctx context.Context, routeID string, date time.Time) (*domain.Timetable, error) {
	holidays, err := s.schedule.Holidays(ctx)
	if err != nil {
		return nil, err
	}

	day := domain.ClassifyDay(date, holidays)
	departures, err := s.schedule.Departures(ctx, routeID, day)
	if err != nil {
		return nil, err
	}

	return &domain.Timetable{RouteID: routeID, DayType: day, Departures: departures}, nil
}
