package domain

import (
	"fmt"
	"time"
)

// Route is a directed line between the two terminals. The company runs one
// route per direction, each with its own stop sequence and schedule.
type Route struct {
	ID              string `json:"id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	Color           string `json:"color"`
	DurationMinutes int    `json:"duration_minutes"`
	Stops           []Stop `json:"stops,omitempty"`
}

// Origin returns the location of the first stop on the route.
func (r *Route) Origin() GeoPoint {
	if len(r.Stops) == 0 {
		return GeoPoint{}
	}
	return r.Stops[0].Location
}

// Stop is a boarding point along a route. Offset is the scheduled travel
// time from the route origin to this stop.
type Stop struct {
	ID       string        `json:"id"`
	RouteID  string        `json:"route_id"`
	Name     string        `json:"name"`
	Location GeoPoint      `json:"location"`
	Offset   time.Duration `json:"-"`
	Locality string        `json:"locality"`
	Distance *float64      `json:"distance,omitempty"` // computed field
}

// OffsetString renders the offset as HH:MM:SS, the form it is published in.
func (s *Stop) OffsetString() string {
	total := int(s.Offset.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// Timetable is the departure list a route runs on a given day type.
type Timetable struct {
	RouteID    string   `json:"route_id"`
	DayType    DayType  `json:"day_type"`
	Departures []string `json:"departures"` // HH:MM, ascending
}

// First returns the earliest departure, or "" when the list is empty.
func (t *Timetable) First() string {
	if len(t.Departures) == 0 {
		return ""
	}
	return t.Departures[0]
}

// Last returns the latest departure, or "" when the list is empty.
func (t *Timetable) Last() string {
	if len(t.Departures) == 0 {
		return ""
	}
	return t.Departures[len(t.Departures)-1]
}

// VehiclePosition is a normalized GPS reading for one bus.
type VehiclePosition struct {
	Time      time.Time `json:"time"`
	VehicleID string    `json:"vehicle_id"` // fleet number painted on the bus
	DeviceID  string    `json:"device_id"`  // GPS unit identifier
	RouteID   string    `json:"route_id,omitempty"`
	Location  GeoPoint  `json:"location"`
	Speed     float64   `json:"speed"`   // km/h as reported by the tracker
	Heading   float64   `json:"heading"` // degrees, 0 = north
	Online    bool      `json:"online"`
	Stale     bool      `json:"stale"` // reading older than the freshness cutoff
}

// FareTable is the published price matrix between localities.
type FareTable struct {
	Effective     string                        `json:"effective"` // YYYY-MM-DD
	Currency      string                        `json:"currency"`
	PaymentMethod string                        `json:"payment_method"`
	Matrix        map[string]map[string]float64 `json:"matrix"`
}

// FareQuote is the resolved price for one origin/destination pair.
type FareQuote struct {
	From          string  `json:"from"`
	To            string  `json:"to"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	Effective     string  `json:"effective"`
}

// ContactMessage is a submission from the website contact form.
type ContactMessage struct {
	Name    string `json:"nombre" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"telefono" validate:"max=50"`
	Subject string `json:"asunto" validate:"max=300"`
	Body    string `json:"mensaje" validate:"required,max=5000"`
}
