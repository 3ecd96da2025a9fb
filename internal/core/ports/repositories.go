package ports

import (
	"context"

	"github.com/monteverasrl/montevera/internal/core/domain"
)

// ScheduleRepository serves the published timetable: routes, stops,
// departure lists per day type, and the holiday calendar.
type ScheduleRepository interface {
	Routes(ctx context.Context) ([]domain.Route, error)
	RouteByID(ctx context.Context, id string) (*domain.Route, error)
	StopsByRoute(ctx context.Context, routeID string) ([]domain.Stop, error)
	StopByID(ctx context.Context, stopID string) (*domain.Stop, error)
	AllStops(ctx context.Context) ([]domain.Stop, error)
	Departures(ctx context.Context, routeID string, day domain.DayType) ([]string, error)
	Holidays(ctx context.Context) (domain.HolidayCalendar, error)
}

// FareRepository serves the published fare matrix.
type FareRepository interface {
	Table(ctx context.Context) (*domain.FareTable, error)
}
