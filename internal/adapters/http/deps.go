package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/monteverasrl/montevera/internal/adapters/valkey"
	"github.com/monteverasrl/montevera/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Routes   *usecases.RouteService
	Stops    *usecases.StopService
	Arrivals *usecases.ArrivalService
	Fares    *usecases.FareService
	Vehicles *usecases.VehicleService
	Contact  *usecases.ContactService
	NATS     *nats.Conn
	Cache    *valkey.Cache
	Location *time.Location
}
