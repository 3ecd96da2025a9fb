package domain

import "time"

// ArrivalStatus describes the state of the next-bus estimate.
type ArrivalStatus string

const (
	StatusUpcoming    ArrivalStatus = "upcoming"
	StatusApproaching ArrivalStatus = "approaching"
	StatusNoService   ArrivalStatus = "no_service"
)

// BusArrival is the estimated next arrival of a bus at one stop.
//
// MinutesToArrival is clamped to zero for display. FollowingBus keeps the
// raw rounded value so a just-passed reading can go slightly negative.
type BusArrival struct {
	NextBusArrival   time.Time     `json:"next_bus_arrival"`
	MinutesToArrival int           `json:"minutes_to_arrival"`
	CurrentTime      time.Time     `json:"current_time"`
	DepartureTime    string        `json:"departure_time"` // HH:MM at the route origin
	BusID            string        `json:"bus_id"`
	Status           ArrivalStatus `json:"status"`
	FollowingBus     *FollowingBus `json:"following_bus,omitempty"`
}

// FollowingBus is the service after the next one, when it exists.
type FollowingBus struct {
	ArrivalTime      time.Time `json:"arrival_time"`
	MinutesToArrival int       `json:"minutes_to_arrival"`
	DepartureTime    string    `json:"departure_time"`
}
