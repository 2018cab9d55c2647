package repository

import (
	"context"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
)

// FareQuoteRepository requests current offers from the external fare provider
type FareQuoteRepository interface {
	Quote(ctx context.Context, req entity.FareQuoteRequest) ([]entity.FareOffer, error)
}
