package repository

import (
	"context"
	"sync"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryTrackedBookingRepository keeps tracked bookings in process memory.
// Used for local runs with STORE_DRIVER=memory and as the store in tests.
type MemoryTrackedBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*entity.TrackedBooking
}

// NewMemoryTrackedBookingRepository creates an empty in-memory repository
func NewMemoryTrackedBookingRepository() *MemoryTrackedBookingRepository {
	return &MemoryTrackedBookingRepository{
		bookings: make(map[string]*entity.TrackedBooking),
	}
}

var _ repository.TrackedBookingRepository = (*MemoryTrackedBookingRepository)(nil)

func (r *MemoryTrackedBookingRepository) Create(ctx context.Context, booking *entity.TrackedBooking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	booking.ID = uuid.NewString()
	r.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (r *MemoryTrackedBookingRepository) FindByStatus(ctx context.Context, status entity.BookingStatus) ([]*entity.TrackedBooking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entity.TrackedBooking
	for _, b := range r.bookings {
		if b.Status == status {
			result = append(result, cloneBooking(b))
		}
	}
	return result, nil
}

func (r *MemoryTrackedBookingRepository) FindByID(ctx context.Context, id string) (*entity.TrackedBooking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *MemoryTrackedBookingRepository) MarkSavingsFound(ctx context.Context, id string, currentPrice decimal.Decimal, checkedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return entity.ErrBookingNotFound
	}
	if b.Status != entity.BookingStatusTracking {
		return entity.ErrNotTracking
	}

	price := currentPrice
	checked := checkedAt
	b.Status = entity.BookingStatusSavingsFound
	b.CurrentPrice = &price
	b.LastCheckedAt = &checked
	b.UpdatedAt = checkedAt
	return nil
}

// Len returns the number of stored bookings
func (r *MemoryTrackedBookingRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bookings)
}

func cloneBooking(b *entity.TrackedBooking) *entity.TrackedBooking {
	c := *b
	if b.CurrentPrice != nil {
		price := *b.CurrentPrice
		c.CurrentPrice = &price
	}
	if b.LastCheckedAt != nil {
		checked := *b.LastCheckedAt
		c.LastCheckedAt = &checked
	}
	return &c
}
