package domain

import "errors"

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrStopNotFound  = errors.New("stop not found")
	ErrFareNotFound  = errors.New("fare not found")
)
