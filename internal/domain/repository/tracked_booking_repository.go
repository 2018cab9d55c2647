package repository

import (
	"context"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// TrackedBookingRepository is the record store for tracked bookings
type TrackedBookingRepository interface {
	// Create persists a new booking and assigns its ID
	Create(ctx context.Context, booking *entity.TrackedBooking) error
	FindByStatus(ctx context.Context, status entity.BookingStatus) ([]*entity.TrackedBooking, error)
	FindByID(ctx context.Context, id string) (*entity.TrackedBooking, error)
	// MarkSavingsFound atomically moves a tracking booking to savings_found.
	// Returns entity.ErrNotTracking when the booking already left tracking.
	MarkSavingsFound(ctx context.Context, id string, currentPrice decimal.Decimal, checkedAt time.Time) error
}
