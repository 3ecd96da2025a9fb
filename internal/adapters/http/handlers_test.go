package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/monteverasrl/montevera/internal/adapters/http"
	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/core/usecases"
)

// ---- Mock repositories ----

type mockScheduleRepo struct {
	routesFn       func(ctx context.Context) ([]domain.Route, error)
	routeByIDFn    func(ctx context.Context, id string) (*domain.Route, error)
	stopsByRouteFn func(ctx context.Context, routeID string) ([]domain.Stop, error)
	stopByIDFn     func(ctx context.Context, stopID string) (*domain.Stop, error)
	allStopsFn     func(ctx context.Context) ([]domain.Stop, error)
	departuresFn   func(ctx context.Context, routeID string, day domain.DayType) ([]string, error)
	holidaysFn     func(ctx context.Context) (domain.HolidayCalendar, error)
}

func (m *mockScheduleRepo) Routes(ctx context.Context) ([]domain.Route, error) {
	if m.routesFn != nil {
		return m.routesFn(ctx)
	}
	return nil, nil
}

func (m *mockScheduleRepo) RouteByID(ctx context.Context, id string) (*domain.Route, error) {
	if m.routeByIDFn != nil {
		return m.routeByIDFn(ctx, id)
	}
	return nil, domain.ErrRouteNotFound
}

func (m *mockScheduleRepo) StopsByRoute(ctx context.Context, routeID string) ([]domain.Stop, error) {
	if m.stopsByRouteFn != nil {
		return m.stopsByRouteFn(ctx, routeID)
	}
	return nil, nil
}

func (m *mockScheduleRepo) StopByID(ctx context.Context, stopID string) (*domain.Stop, error) {
	if m.stopByIDFn != nil {
		return m.stopByIDFn(ctx, stopID)
	}
	return nil, domain.ErrStopNotFound
}

func (m *mockScheduleRepo) AllStops(ctx context.Context) ([]domain.Stop, error) {
	if m.allStopsFn != nil {
		return m.allStopsFn(ctx)
	}
	return nil, nil
}

func (m *mockScheduleRepo) Departures(ctx context.Context, routeID string, day domain.DayType) ([]string, error) {
	if m.departuresFn != nil {
		return m.departuresFn(ctx, routeID, day)
	}
	return nil, nil
}

func (m *mockScheduleRepo) Holidays(ctx context.Context) (domain.HolidayCalendar, error) {
	if m.holidaysFn != nil {
		return m.holidaysFn(ctx)
	}
	return domain.HolidayCalendar{}, nil
}

type mockFareRepo struct {
	tableFn func(ctx context.Context) (*domain.FareTable, error)
}

func (m *mockFareRepo) Table(ctx context.Context) (*domain.FareTable, error) {
	if m.tableFn != nil {
		return m.tableFn(ctx)
	}
	return &domain.FareTable{Matrix: map[string]map[string]float64{}}, nil
}

type mockCache struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error { return nil }

type mockMail struct {
	sendFn func(ctx context.Context, msg *domain.ContactMessage) error
}

func (m *mockMail) Send(ctx context.Context, msg *domain.ContactMessage) error {
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	schedule := &mockScheduleRepo{}
	d := &handler.Dependencies{
		Routes:   usecases.NewRouteService(schedule),
		Stops:    usecases.NewStopService(schedule, nil),
		Arrivals: usecases.NewArrivalService(schedule, time.UTC),
		Fares:    usecases.NewFareService(&mockFareRepo{}),
		Vehicles: usecases.NewVehicleService(nil),
		Contact:  usecases.NewContactService(&mockMail{}),
		Location: time.UTC,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// arrivalFixture backs the next-bus endpoint with a frozen clock at a
// weekday 07:50 and an 08:05 departure reaching the stop at 08:20.
func arrivalFixture() *mockScheduleRepo {
	return &mockScheduleRepo{
		routeByIDFn: func(ctx context.Context, id string) (*domain.Route, error) {
			if id != "santafe_montevera" {
				return nil, domain.ErrRouteNotFound
			}
			return &domain.Route{ID: id, Code: "SFMV"}, nil
		},
		stopByIDFn: func(ctx context.Context, stopID string) (*domain.Stop, error) {
			if stopID != "MV07" {
				return nil, domain.ErrStopNotFound
			}
			return &domain.Stop{ID: "MV07", RouteID: "santafe_montevera", Offset: 15 * time.Minute}, nil
		},
		departuresFn: func(ctx context.Context, routeID string, day domain.DayType) ([]string, error) {
			return []string{"06:00", "08:05", "12:30"}, nil
		},
	}
}

// ---- Route handler tests ----

func TestListRoutes_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(&mockScheduleRepo{
			routesFn: func(ctx context.Context) ([]domain.Route, error) {
				return []domain.Route{
					{ID: "santafe_montevera", Code: "SFMV"},
					{ID: "montevera_santafe", Code: "MVSF"},
				}, nil
			},
		})
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/routes", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var routes []domain.Route
	json.NewDecoder(resp.Body).Decode(&routes)
	if len(routes) != 2 {
		t.Errorf("expected 2 routes, got %d", len(routes))
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("unexpected Cache-Control: %q", cc)
	}
}

func TestGetRoute_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/routes/bad-id", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %s", apiErr.Code)
	}
}

func TestRouteStops_PaginationAndOffsets(t *testing.T) {
	stops := []domain.Stop{
		{ID: "MV00", RouteID: "santafe_montevera", Name: "TERMINAL SANTA FE"},
		{ID: "MV01", RouteID: "santafe_montevera", Name: "LA RIOJA Y RIVADAVIA", Offset: 3 * time.Minute},
		{ID: "MV02", RouteID: "santafe_montevera", Name: "RIVADAVIA Y H. YRIGOYEN", Offset: 4 * time.Minute},
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(&mockScheduleRepo{
			stopsByRouteFn: func(ctx context.Context, routeID string) ([]domain.Stop, error) {
				return stops, nil
			},
		})
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/routes/santafe_montevera/stops?offset=1&limit=1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []map[string]any `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 3 || result.Pagination.Offset != 1 {
		t.Errorf("unexpected pagination: %+v", result.Pagination)
	}
	if len(result.Data) != 1 {
		t.Fatalf("expected 1 stop in page, got %d", len(result.Data))
	}
	if result.Data[0]["offset"] != "00:03:00" {
		t.Errorf("expected offset 00:03:00, got %v", result.Data[0]["offset"])
	}

	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="next"`) || !strings.Contains(link, `rel="prev"`) {
		t.Errorf("expected next and prev links, got %s", link)
	}
}

func TestRouteTimetable_DaySelection(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(&mockScheduleRepo{
			departuresFn: func(ctx context.Context, routeID string, day domain.DayType) ([]string, error) {
				if day == domain.Saturday {
					return []string{"06:00", "22:30"}, nil
				}
				return []string{"05:40", "23:10"}, nil
			},
		})
	})
	app := setupApp(deps)

	// 2025-07-19 is a Saturday.
	req := httptest.NewRequest("GET", "/v1/routes/santafe_montevera/timetable?date=2025-07-19", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		DayType    string   `json:"day_type"`
		Departures []string `json:"departures"`
		First      string   `json:"first"`
		Last       string   `json:"last"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.DayType != "saturday" {
		t.Errorf("expected saturday, got %s", result.DayType)
	}
	if result.First != "06:00" || result.Last != "22:30" {
		t.Errorf("unexpected first/last: %s / %s", result.First, result.Last)
	}
}

func TestRouteTimetable_BadDate(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/routes/santafe_montevera/timetable?date=19-07-2025", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Next-bus handler tests ----

func TestNextBus_Success(t *testing.T) {
	now := time.Date(2025, time.July, 16, 7, 50, 0, 0, time.UTC)
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Arrivals = usecases.NewArrivalService(arrivalFixture(), time.UTC).
			WithClock(func() time.Time { return now })
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/routes/santafe_montevera/stops/MV07/next-bus", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		MinutesToArrival int    `json:"minutes_to_arrival"`
		DepartureTime    string `json:"departure_time"`
		BusID            string `json:"bus_id"`
		Status           string `json:"status"`
		EtaText          string `json:"eta_text"`
		Color            string `json:"color"`
		Message          string `json:"message"`
		FollowingBus     *struct {
			DepartureTime string `json:"departure_time"`
		} `json:"following_bus"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	if result.MinutesToArrival != 30 {
		t.Errorf("expected 30 minutes, got %d", result.MinutesToArrival)
	}
	if result.DepartureTime != "08:05" || result.BusID != "SFMV0805" {
		t.Errorf("unexpected departure/bus: %s / %s", result.DepartureTime, result.BusID)
	}
	if result.Status != "upcoming" {
		t.Errorf("expected upcoming, got %s", result.Status)
	}
	if result.EtaText != "30 minutos" {
		t.Errorf("expected '30 minutos', got %q", result.EtaText)
	}
	if result.Color != "distant" {
		t.Errorf("expected distant, got %s", result.Color)
	}
	if result.Message != "Programado" {
		t.Errorf("expected 'Programado', got %q", result.Message)
	}
	if result.FollowingBus == nil || result.FollowingBus.DepartureTime != "12:30" {
		t.Errorf("unexpected following bus: %+v", result.FollowingBus)
	}

	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=15" {
		t.Errorf("unexpected Cache-Control: %q", cc)
	}
}

func TestNextBus_NoService(t *testing.T) {
	now := time.Date(2025, time.July, 16, 23, 30, 0, 0, time.UTC)
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Arrivals = usecases.NewArrivalService(arrivalFixture(), time.UTC).
			WithClock(func() time.Time { return now })
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/routes/santafe_montevera/stops/MV07/next-bus", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		EtaText string `json:"eta_text"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Status != "no_service" {
		t.Errorf("expected no_service, got %s", result.Status)
	}
	if result.Message != "No hay más servicios hoy" {
		t.Errorf("unexpected message: %q", result.Message)
	}
}

func TestNextBus_UnknownStop(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Arrivals = usecases.NewArrivalService(arrivalFixture(), time.UTC)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/routes/santafe_montevera/stops/nope/next-bus", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Stop handler tests ----

func TestGetStop_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Stops = usecases.NewStopService(&mockScheduleRepo{
			stopByIDFn: func(ctx context.Context, id string) (*domain.Stop, error) {
				return &domain.Stop{ID: id, Name: "TERMINAL SANTA FE"}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/stops/MV00", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stop domain.Stop
	json.NewDecoder(resp.Body).Decode(&stop)
	if stop.Name != "TERMINAL SANTA FE" {
		t.Errorf("unexpected stop name: %s", stop.Name)
	}
}

func TestGetStop_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/stops/nope", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestNearbyStops_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/stops/nearby", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyStops_BadRadius(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/stops/nearby?lat=-31.64&lon=-60.70&radius=50000", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyStops_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Stops = usecases.NewStopService(&mockScheduleRepo{
			allStopsFn: func(ctx context.Context) ([]domain.Stop, error) {
				return []domain.Stop{
					{ID: "MV00", Location: domain.GeoPoint{Lat: -31.6442, Lon: -60.7006}},
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/stops/nearby?lat=-31.6442&lon=-60.7006&radius=500", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stops []domain.Stop
	json.NewDecoder(resp.Body).Decode(&stops)
	if len(stops) != 1 {
		t.Errorf("expected 1 stop, got %d", len(stops))
	}
}

// ---- Fare handler tests ----

func TestFareLookup_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Fares = usecases.NewFareService(&mockFareRepo{
			tableFn: func(ctx context.Context) (*domain.FareTable, error) {
				return &domain.FareTable{
					Currency: "ARS",
					Matrix:   map[string]map[string]float64{"Santa Fe": {"Monte Vera": 2765}},
				}, nil
			},
		})
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/fares/lookup?from=Santa+Fe&to=Monte+Vera", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var quote domain.FareQuote
	json.NewDecoder(resp.Body).Decode(&quote)
	if quote.Amount != 2765 {
		t.Errorf("expected 2765, got %v", quote.Amount)
	}
}

func TestFareLookup_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/fares/lookup?from=Santa+Fe&to=Rosario", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestFareLookup_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/fares/lookup?from=Santa+Fe", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Vehicles handler tests ----

func TestVehicles_EmptyWithoutTracker(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/vehicles", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var positions []domain.VehiclePosition
	json.NewDecoder(resp.Body).Decode(&positions)
	if len(positions) != 0 {
		t.Errorf("expected an empty fleet, got %d", len(positions))
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=10" {
		t.Errorf("unexpected Cache-Control: %q", cc)
	}
}

// ---- Contact handler tests ----

func TestContact_Success(t *testing.T) {
	var sent *domain.ContactMessage
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Contact = usecases.NewContactService(&mockMail{
			sendFn: func(ctx context.Context, msg *domain.ContactMessage) error {
				sent = msg
				return nil
			},
		})
	})
	app := setupApp(deps)

	body := strings.NewReader(`{"nombre":"Juan","email":"juan@example.com","mensaje":"Hola"}`)
	req := httptest.NewRequest("POST", "/v1/contact", body)
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]bool
	json.NewDecoder(resp.Body).Decode(&result)
	if !result["success"] {
		t.Error("expected success true")
	}
	if sent == nil || sent.Name != "Juan" {
		t.Errorf("expected the message dispatched, got %+v", sent)
	}
}

func TestContact_ValidationFailure(t *testing.T) {
	app := setupApp(makeDeps())

	body := strings.NewReader(`{"nombre":"","email":"juan@example.com","mensaje":"Hola"}`)
	req := httptest.NewRequest("POST", "/v1/contact", body)
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Message != "nombre, email y mensaje son obligatorios" {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
}

func TestContact_ProviderDown(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Contact = usecases.NewContactService(&mockMail{
			sendFn: func(ctx context.Context, msg *domain.ContactMessage) error {
				return errors.New("resend HTTP 500")
			},
		})
	})
	app := setupApp(deps)

	body := strings.NewReader(`{"nombre":"Juan","email":"juan@example.com","mensaje":"Hola"}`)
	req := httptest.NewRequest("POST", "/v1/contact", body)
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Message != "no se pudo enviar el mensaje, intente nuevamente" {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
}

// ---- Health & middleware tests ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]any
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", result["status"])
	}
}

func TestReady_NothingConfigured(t *testing.T) {
	// NATS and cache are optional: an API without them is degraded but ready.
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Checks["nats"] != "not configured" || result.Checks["cache"] != "not configured" {
		t.Errorf("unexpected checks: %v", result.Checks)
	}
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}
