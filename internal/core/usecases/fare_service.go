package usecases

import (
	"context"
	"fmt"

	"github.com/monteverasrl/montevera/internal/core/domain"
	"github.com/monteverasrl/montevera/internal/core/ports"
)

// FareService resolves ticket prices between localities.
type FareService struct {
	fares ports.FareRepository
}

// NewFareService creates a new FareService.
func NewFareService(fares ports.FareRepository) *FareService {
	return &FareService{fares: fares}
}

// Table returns the full published fare matrix.
func (s *FareService) Table(ctx context.Context) (*domain.FareTable, error) {
	return s.fares.Table(ctx)
}

// Lookup resolves the fare between two localities. The published matrix only
// lists each pair once, so the reverse direction is used as a fallback.
func (s *FareService) Lookup(ctx context.Context, from, to string) (*domain.FareQuote, error) {
	table, err := s.fares.Table(ctx)
	if err != nil {
		return nil, err
	}

	amount, ok := table.Matrix[from][to]
	if !ok {
		amount, ok = table.Matrix[to][from]
	}
	if !ok {
		return nil, fmt.Errorf("fare %s -> %s: %w", from, to, domain.ErrFareNotFound)
	}

	return &domain.FareQuote{
		From:          from,
		To:            to,
		Amount:        amount,
		Currency:      table.Currency,
		PaymentMethod: table.PaymentMethod,
		Effective:     table.Effective,
	}, nil
}
