// Package timetable serves the published schedule from data files embedded
// at build time. The data is immutable: it is parsed and validated once at
// startup and every read afterwards is a pure in-memory lookup.
package timetable

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/monteverasrl/montevera/internal/core/domain"
)

//go:embed data/*.yaml
var dataFS embed.FS

var (
	hhmmRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Repository implements ports.ScheduleRepository and ports.FareRepository
// over the embedded data files.
type Repository struct {
	routes     []domain.Route
	routeByID  map[string]*domain.Route
	stopByID   map[string]*domain.Stop
	departures map[string]map[domain.DayType][]string
	holidays   domain.HolidayCalendar
	fares      *domain.FareTable
}

type routesFile struct {
	Routes []routeYAML `yaml:"routes"`
}

type routeYAML struct {
	ID              string              `yaml:"id"`
	Code            string              `yaml:"code"`
	Name            string              `yaml:"name"`
	Color           string              `yaml:"color"`
	DurationMinutes int                 `yaml:"duration_minutes"`
	Departures      map[string][]string `yaml:"departures"`
	Stops           []stopYAML          `yaml:"stops"`
}

type stopYAML struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
	Offset   string  `yaml:"offset"`
	Locality string  `yaml:"locality"`
}

type faresFile struct {
	Effective     string                        `yaml:"effective"`
	Currency      string                        `yaml:"currency"`
	PaymentMethod string                        `yaml:"payment_method"`
	Matrix        map[string]map[string]float64 `yaml:"matrix"`
}

type holidaysFile struct {
	Holidays []string `yaml:"holidays"`
}

// Load parses and validates the embedded data. Any integrity problem is an
// error: bad data must stop the process at startup, not surface at query time.
func Load() (*Repository, error) {
	var rf routesFile
	if err := unmarshalFile("data/routes.yaml", &rf); err != nil {
		return nil, err
	}
	var ff faresFile
	if err := unmarshalFile("data/fares.yaml", &ff); err != nil {
		return nil, err
	}
	var hf holidaysFile
	if err := unmarshalFile("data/holidays.yaml", &hf); err != nil {
		return nil, err
	}

	repo := &Repository{
		routes:     make([]domain.Route, 0, len(rf.Routes)),
		routeByID:  make(map[string]*domain.Route),
		stopByID:   make(map[string]*domain.Stop),
		departures: make(map[string]map[domain.DayType][]string),
		holidays:   make(domain.HolidayCalendar, len(hf.Holidays)),
	}

	for _, ry := range rf.Routes {
		route, deps, err := buildRoute(ry)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", ry.ID, err)
		}
		if _, dup := repo.routeByID[route.ID]; dup {
			return nil, fmt.Errorf("duplicate route id %s", route.ID)
		}
		repo.routes = append(repo.routes, *route)
		repo.routeByID[route.ID] = &repo.routes[len(repo.routes)-1]
		repo.departures[route.ID] = deps

		for i := range repo.routes[len(repo.routes)-1].Stops {
			stop := &repo.routes[len(repo.routes)-1].Stops[i]
			if _, dup := repo.stopByID[stop.ID]; dup {
				return nil, fmt.Errorf("duplicate stop id %s", stop.ID)
			}
			repo.stopByID[stop.ID] = stop
		}
	}
	if len(repo.routes) == 0 {
		return nil, fmt.Errorf("no routes in data/routes.yaml")
	}

	for _, h := range hf.Holidays {
		if !dateRe.MatchString(h) {
			return nil, fmt.Errorf("holiday %q is not YYYY-MM-DD", h)
		}
		repo.holidays[h] = struct{}{}
	}

	fares, err := buildFares(ff)
	if err != nil {
		return nil, err
	}
	repo.fares = fares
	warnAsymmetricFares(fares)

	return repo, nil
}

func unmarshalFile(name string, out any) error {
	data, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func buildRoute(ry routeYAML) (*domain.Route, map[domain.DayType][]string, error) {
	if ry.ID == "" || ry.Code == "" || ry.Name == "" {
		return nil, nil, fmt.Errorf("id, code and name are required")
	}
	if ry.DurationMinutes <= 0 {
		return nil, nil, fmt.Errorf("duration_minutes must be positive")
	}
	if len(ry.Stops) == 0 {
		return nil, nil, fmt.Errorf("route has no stops")
	}

	route := &domain.Route{
		ID:              ry.ID,
		Code:            ry.Code,
		Name:            ry.Name,
		Color:           ry.Color,
		DurationMinutes: ry.DurationMinutes,
	}

	prev := time.Duration(-1)
	for _, sy := range ry.Stops {
		offset, err := parseOffset(sy.Offset)
		if err != nil {
			return nil, nil, fmt.Errorf("stop %s: %w", sy.ID, err)
		}
		// Offsets must not decrease along the route: a bus cannot reach a
		// later stop before an earlier one.
		if offset < prev {
			return nil, nil, fmt.Errorf("stop %s: offset %s decreases along the route", sy.ID, sy.Offset)
		}
		prev = offset

		route.Stops = append(route.Stops, domain.Stop{
			ID:       sy.ID,
			RouteID:  ry.ID,
			Name:     sy.Name,
			Location: domain.GeoPoint{Lat: sy.Lat, Lon: sy.Lon},
			Offset:   offset,
			Locality: sy.Locality,
		})
	}

	deps := make(map[domain.DayType][]string, len(ry.Departures))
	for key, list := range ry.Departures {
		day, ok := domain.ParseDayType(key)
		if !ok {
			return nil, nil, fmt.Errorf("unknown departures key %q", key)
		}
		if len(list) == 0 {
			return nil, nil, fmt.Errorf("departures %s: empty list", key)
		}
		for i, dep := range list {
			if !hhmmRe.MatchString(dep) {
				return nil, nil, fmt.Errorf("departures %s: %q is not HH:MM", key, dep)
			}
			if i > 0 && dep < list[i-1] {
				return nil, nil, fmt.Errorf("departures %s: %q breaks ascending order", key, dep)
			}
		}
		deps[day] = list
	}
	for _, day := range []domain.DayType{domain.Weekday, domain.Saturday, domain.SundayOrHoliday} {
		if _, ok := deps[day]; !ok {
			return nil, nil, fmt.Errorf("departures missing for %s", day)
		}
	}

	return route, deps, nil
}

func parseOffset(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("offset %q is not HH:MM:SS", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || len(p) != 2 {
			return 0, fmt.Errorf("offset %q is not HH:MM:SS", s)
		}
		nums[i] = n
	}
	if nums[1] > 59 || nums[2] > 59 {
		return 0, fmt.Errorf("offset %q is not HH:MM:SS", s)
	}
	return time.Duration(nums[0])*time.Hour +
		time.Duration(nums[1])*time.Minute +
		time.Duration(nums[2])*time.Second, nil
}

func buildFares(ff faresFile) (*domain.FareTable, error) {
	if !dateRe.MatchString(ff.Effective) {
		return nil, fmt.Errorf("fares effective %q is not YYYY-MM-DD", ff.Effective)
	}
	if ff.Currency == "" {
		return nil, fmt.Errorf("fares currency is required")
	}
	for from, row := range ff.Matrix {
		for to, amount := range row {
			if amount <= 0 {
				return nil, fmt.Errorf("fare %s -> %s must be positive, got %v", from, to, amount)
			}
		}
	}
	return &domain.FareTable{
		Effective:     ff.Effective,
		Currency:      ff.Currency,
		PaymentMethod: ff.PaymentMethod,
		Matrix:        ff.Matrix,
	}, nil
}

// warnAsymmetricFares flags pairs only resolvable through the reverse entry
// so gaps in the published matrix stay visible in the logs.
func warnAsymmetricFares(t *domain.FareTable) {
	var missing []string
	for from, row := range t.Matrix {
		for to := range row {
			if _, ok := t.Matrix[to][from]; !ok {
				missing = append(missing, to+" -> "+from)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		slog.Warn("fare matrix relies on reverse-direction fallback", "pairs", strings.Join(missing, ", "))
	}
}

// --- ports.ScheduleRepository ---

// Routes returns all routes with their stop sequences.
func (r *Repository) Routes(ctx context.Context) ([]domain.Route, error) {
	return r.routes, nil
}

// RouteByID returns one route or domain.ErrRouteNotFound.
func (r *Repository) RouteByID(ctx context.Context, id string) (*domain.Route, error) {
	route, ok := r.routeByID[id]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", id, domain.ErrRouteNotFound)
	}
	return route, nil
}

// StopsByRoute returns the ordered stop sequence of a route.
func (r *Repository) StopsByRoute(ctx context.Context, routeID string) ([]domain.Stop, error) {
	route, ok := r.routeByID[routeID]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", routeID, domain.ErrRouteNotFound)
	}
	return route.Stops, nil
}

// StopByID returns one stop or domain.ErrStopNotFound.
func (r *Repository) StopByID(ctx context.Context, stopID string) (*domain.Stop, error) {
	stop, ok := r.stopByID[stopID]
	if !ok {
		return nil, fmt.Errorf("stop %s: %w", stopID, domain.ErrStopNotFound)
	}
	return stop, nil
}

// AllStops returns every stop across both directions.
func (r *Repository) AllStops(ctx context.Context) ([]domain.Stop, error) {
	stops := make([]domain.Stop, 0, len(r.stopByID))
	for _, route := range r.routes {
		stops = append(stops, route.Stops...)
	}
	return stops, nil
}

// Departures returns the departure list for a route on a day type.
func (r *Repository) Departures(ctx context.Context, routeID string, day domain.DayType) ([]string, error) {
	deps, ok := r.departures[routeID]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", routeID, domain.ErrRouteNotFound)
	}
	return deps[day], nil
}

// Holidays returns the national holiday calendar.
func (r *Repository) Holidays(ctx context.Context) (domain.HolidayCalendar, error) {
	return r.holidays, nil
}

// --- ports.FareRepository ---

// Table returns the published fare matrix.
func (r *Repository) Table(ctx context.Context) (*domain.FareTable, error) {
	return r.fares, nil
}
