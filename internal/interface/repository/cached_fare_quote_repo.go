package repository

import (
	"context"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"
	"github.com/has-1997/jetback-mvp/pkg/logger"

	"github.com/patrickmn/go-cache"
)

// CachedFareQuoteRepository shares non-empty quotes between bookings with the
// same route and date. Errors and empty results are never cached.
type CachedFareQuoteRepository struct {
	next   repository.FareQuoteRepository
	cache  *cache.Cache
	logger logger.Logger
}

var _ repository.FareQuoteRepository = (*CachedFareQuoteRepository)(nil)

// NewCachedFareQuoteRepository wraps next with a TTL cache
func NewCachedFareQuoteRepository(next repository.FareQuoteRepository, ttl time.Duration, logger logger.Logger) *CachedFareQuoteRepository {
	return &CachedFareQuoteRepository{
		next:   next,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (r *CachedFareQuoteRepository) Quote(ctx context.Context, req entity.FareQuoteRequest) ([]entity.FareOffer, error) {
	key := req.CacheKey()
	if cached, ok := r.cache.Get(key); ok {
		r.logger.Debug("Fare quote cache hit", "key", key)
		return cached.([]entity.FareOffer), nil
	}

	offers, err := r.next.Quote(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(offers) > 0 {
		r.cache.Set(key, offers, cache.DefaultExpiration)
	}

	return offers, nil
}
