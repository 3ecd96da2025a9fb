package usecases

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/core/ports"
)

// ArrivalService estimates when the next bus reaches a stop.
//
// Estimates are purely schedule-driven: every departure of today's list is
// projected onto the stop using its published offset from the route origin,
// and the first strictly-future projection wins. The clock is injectable so
// the computation is deterministic under test.
type ArrivalService struct {
	schedule ports.ScheduleRepository
	loc      *time.Location
	now      func() time.Time
}

// NewArrivalService creates a new ArrivalService using the given operational
// timezone and the wall clock.
func NewArrivalService(schedule ports.ScheduleRepository, loc *time.Location) *ArrivalService {
	return &ArrivalService{schedule: schedule, loc: loc, now: time.Now}
}

// WithClock replaces the time source. Used by tests to freeze the clock.
func (s *ArrivalService) WithClock(now func() time.Time) *ArrivalService {
	s.now = now
	return s
}

type stopCandidate struct {
	departure string // HH:MM at the origin
	arrival   time.Time
}

// NextArrival computes the next and following bus for a stop on a route.
// When no departure of the current service day can still reach the stop,
// the result carries StatusNoService with zeroed fields.
func (s *ArrivalService) NextArrival(ctx context.Context, routeID, stopID string) (*domain.BusArrival, error) {
	now := s.now().In(s.loc)

	route, err := s.schedule.RouteByID(ctx, routeID)
	if err != nil {
		return nil, err
	}

	stop, err := s.schedule.StopByID(ctx, stopID)
	if err != nil {
		return nil, err
	}
	if stop.RouteID != routeID {
		return nil, fmt.Errorf("stop %s on route %s: %w", stopID, routeID, domain.ErrStopNotFound)
	}

	holidays, err := s.schedule.Holidays(ctx)
	if err != nil {
		return nil, err
	}

	day := domain.ClassifyDay(now, holidays)
	departures, err := s.schedule.Departures(ctx, routeID, day)
	if err != nil {
		return nil, err
	}

	candidates := projectDepartures(departures, stop.Offset, now)
	if len(candidates) == 0 {
		return &domain.BusArrival{
			NextBusArrival:   now,
			MinutesToArrival: 0,
			CurrentTime:      now,
			DepartureTime:    "",
			BusID:            "",
			Status:           domain.StatusNoService,
		}, nil
	}

	next := candidates[0]
	minutes := roundedMinutes(next.arrival.Sub(now))

	result := &domain.BusArrival{
		NextBusArrival:   next.arrival,
		MinutesToArrival: max(0, minutes),
		CurrentTime:      now,
		DepartureTime:    next.departure,
		BusID:            busID(route.Code, next.departure),
		Status:           domain.StatusUpcoming,
	}
	if minutes <= 5 {
		result.Status = domain.StatusApproaching
	}

	if len(candidates) > 1 {
		following := candidates[1]
		result.FollowingBus = &domain.FollowingBus{
			ArrivalTime:      following.arrival,
			MinutesToArrival: roundedMinutes(following.arrival.Sub(now)),
			DepartureTime:    following.departure,
		}
	}

	return result, nil
}

// projectDepartures maps each origin departure onto the stop for now's
// calendar date and keeps the ones that have not yet arrived, ascending.
func projectDepartures(departures []string, offset time.Duration, now time.Time) []stopCandidate {
	var out []stopCandidate
	for _, dep := range departures {
		h, m, ok := parseHHMM(dep)
		if !ok {
			continue
		}
		origin := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
		arrival := origin.Add(offset)
		if arrival.After(now) {
			out = append(out, stopCandidate{departure: dep, arrival: arrival})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].arrival.Before(out[j].arrival) })
	return out
}

// roundedMinutes converts a duration to whole minutes, rounding half up.
func roundedMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// busID identifies a concrete service as route code + departure time digits,
// e.g. SFMV0805 for the 08:05 from Santa Fe.
func busID(routeCode, departure string) string {
	return routeCode + strings.ReplaceAll(departure, ":", "")
}

func parseHHMM(s string) (hour, minute int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}
