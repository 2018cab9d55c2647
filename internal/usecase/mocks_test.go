package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"
	"github.com/has-1997/jetback-mvp/pkg/logger"
	"github.com/has-1997/jetback-mvp/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// mockFareQuoteRepository answers quotes per route key
type mockFareQuoteRepository struct {
	mu    sync.Mutex
	calls []entity.FareQuoteRequest
	quote func(ctx context.Context, req entity.FareQuoteRequest) ([]entity.FareOffer, error)
}

func (m *mockFareQuoteRepository) Quote(ctx context.Context, req entity.FareQuoteRequest) ([]entity.FareOffer, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.quote(ctx, req)
}

func (m *mockFareQuoteRepository) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockBookingRepository wraps a real store and lets tests override single methods
type mockBookingRepository struct {
	repository.TrackedBookingRepository
	create           func(ctx context.Context, booking *entity.TrackedBooking) error
	findByStatus     func(ctx context.Context, status entity.BookingStatus) ([]*entity.TrackedBooking, error)
	markSavingsFound func(ctx context.Context, id string, currentPrice decimal.Decimal, checkedAt time.Time) error
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *entity.TrackedBooking) error {
	if m.create != nil {
		return m.create(ctx, booking)
	}
	return m.TrackedBookingRepository.Create(ctx, booking)
}

func (m *mockBookingRepository) FindByStatus(ctx context.Context, status entity.BookingStatus) ([]*entity.TrackedBooking, error) {
	if m.findByStatus != nil {
		return m.findByStatus(ctx, status)
	}
	return m.TrackedBookingRepository.FindByStatus(ctx, status)
}

func (m *mockBookingRepository) MarkSavingsFound(ctx context.Context, id string, currentPrice decimal.Decimal, checkedAt time.Time) error {
	if m.markSavingsFound != nil {
		return m.markSavingsFound(ctx, id, currentPrice, checkedAt)
	}
	return m.TrackedBookingRepository.MarkSavingsFound(ctx, id, currentPrice, checkedAt)
}

type mockEmailRepository struct {
	mu    sync.Mutex
	saved []*entity.InboundEmail
	err   error
}

func (m *mockEmailRepository) Save(ctx context.Context, email *entity.InboundEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *email
	m.saved = append(m.saved, &copied)
	return m.err
}

func (m *mockEmailRepository) FindByEmailIDs(ctx context.Context, emailIDs []string) (map[string]*entity.InboundEmail, error) {
	return map[string]*entity.InboundEmail{}, nil
}

type mockRunRepository struct {
	mu      sync.Mutex
	reports []entity.ReconciliationReport
}

func (m *mockRunRepository) Save(ctx context.Context, report *entity.ReconciliationReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, *report)
	return nil
}

func (m *mockRunRepository) FindRecent(ctx context.Context, limit int) ([]*entity.ReconciliationReport, error) {
	return nil, nil
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics("jetback_test", prometheus.NewRegistry())
}

func newTestLogger() logger.Logger {
	return logger.NewNopLogger()
}

func offersOf(amounts ...string) []entity.FareOffer {
	offers := make([]entity.FareOffer, 0, len(amounts))
	for _, a := range amounts {
		offers = append(offers, entity.FareOffer{ID: "off_" + a, TotalAmount: decimal.RequireFromString(a), Currency: "USD"})
	}
	return offers
}
