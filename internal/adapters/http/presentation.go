package http

import (
	"fmt"

	"github.com/monteverasrl/montevera/internal/core/domain"
)

// Presentation helpers for the website. All user-facing text is Spanish,
// matching the copy on montevera.com.ar.

// ColorCategory buckets an ETA for the website's traffic-light styling.
type ColorCategory string

const (
	ColorArrived  ColorCategory = "arrived"
	ColorImminent ColorCategory = "imminent"
	ColorSoon     ColorCategory = "soon"
	ColorDistant  ColorCategory = "distant"
)

// FormatMinutes renders a minutes-to-arrival value as human text.
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "Ya llegó"
	}
	if minutes == 1 {
		return "1 minuto"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d minutos", minutes)
	}

	hours := minutes / 60
	rem := minutes % 60

	switch {
	case hours == 1 && rem == 0:
		return "1 hora"
	case hours == 1:
		return fmt.Sprintf("1 hora %d minutos", rem)
	case rem == 0:
		return fmt.Sprintf("%d horas", hours)
	default:
		return fmt.Sprintf("%d horas %d minutos", hours, rem)
	}
}

// StatusColor buckets the ETA into a display category.
func StatusColor(minutes int) ColorCategory {
	switch {
	case minutes <= 0:
		return ColorArrived
	case minutes <= 5:
		return ColorImminent
	case minutes <= 15:
		return ColorSoon
	default:
		return ColorDistant
	}
}

// StatusMessage renders the arrival status as user-facing text.
func StatusMessage(status domain.ArrivalStatus, minutes int) string {
	switch status {
	case domain.StatusApproaching:
		return "Próximo a llegar"
	case domain.StatusUpcoming:
		if minutes <= 15 {
			return "Viene en camino"
		}
		return "Programado"
	case domain.StatusNoService:
		return "No hay más servicios hoy"
	default:
		return "Calculando..."
	}
}

// arrivalResponse decorates the computed arrival with presentation fields.
func arrivalResponse(a *domain.BusArrival) map[string]any {
	resp := map[string]any{
		"next_bus_arrival":   a.NextBusArrival,
		"minutes_to_arrival": a.MinutesToArrival,
		"current_time":       a.CurrentTime,
		"departure_time":     a.DepartureTime,
		"bus_id":             a.BusID,
		"status":             a.Status,
		"eta_text":           FormatMinutes(a.MinutesToArrival),
		"color":              StatusColor(a.MinutesToArrival),
		"message":            StatusMessage(a.Status, a.MinutesToArrival),
	}
	if a.FollowingBus != nil {
		resp["following_bus"] = map[string]any{
			"arrival_time":       a.FollowingBus.ArrivalTime,
			"minutes_to_arrival": a.FollowingBus.MinutesToArrival,
			"departure_time":     a.FollowingBus.DepartureTime,
			"eta_text":           FormatMinutes(a.FollowingBus.MinutesToArrival),
		}
	}
	return resp
}
