// internal/domain/entity/tracked_booking.go
package entity

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the reconciliation state of a tracked booking
type BookingStatus string

const (
	BookingStatusTracking     BookingStatus = "tracking"
	BookingStatusSavingsFound BookingStatus = "savings_found"
)

// Ingestion sources
const (
	SourceHTTP  = "http"
	SourceGmail = "gmail"
	SourceQueue = "queue"
)

// DepartureDateLayout is the calendar date format used for departure dates
const DepartureDateLayout = "2006-01-02"

var airportCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidAirportCode reports whether code is a three-letter upper-case IATA code
func ValidAirportCode(code string) bool {
	return airportCodeRe.MatchString(code)
}

// ValidDepartureDate reports whether date is a calendar date in DepartureDateLayout
func ValidDepartureDate(date string) bool {
	_, err := time.Parse(DepartureDateLayout, date)
	return err == nil
}

// TrackedBooking is a forwarded flight reservation under price surveillance.
// CurrentPrice and LastCheckedAt stay nil until a price drop is recorded.
type TrackedBooking struct {
	ID               string
	ConfirmationCode string
	OwnerID          string
	Origin           string
	Destination      string
	DepartureDate    string
	BaselinePrice    decimal.Decimal
	CurrentPrice     *decimal.Decimal
	Status           BookingStatus
	LastCheckedAt    *time.Time
	Source           string
	SourceMessageID  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BookingDraft is the validated result of extracting a booking from an email
type BookingDraft struct {
	ConfirmationCode string
	TotalPrice       decimal.Decimal
	OwnerID          string
	Origin           string
	Destination      string
	DepartureDate    string
}

// NewTrackedBooking materializes a draft into a new record in tracking state
func NewTrackedBooking(draft BookingDraft, now time.Time) *TrackedBooking {
	return &TrackedBooking{
		ConfirmationCode: draft.ConfirmationCode,
		OwnerID:          draft.OwnerID,
		Origin:           draft.Origin,
		Destination:      draft.Destination,
		DepartureDate:    draft.DepartureDate,
		BaselinePrice:    draft.TotalPrice,
		Status:           BookingStatusTracking,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// HasRoute reports whether the booking carries enough data to be re-quoted
func (b *TrackedBooking) HasRoute() bool {
	return b.Origin != "" && b.Destination != "" && b.DepartureDate != ""
}

// QuoteRequest builds the fare request used to re-price this booking
func (b *TrackedBooking) QuoteRequest() FareQuoteRequest {
	return NewFareQuoteRequest(b.Origin, b.Destination, b.DepartureDate)
}

// IsPriceDrop is the decision rule: only a strictly lower quote counts
func IsPriceDrop(baseline, current decimal.Decimal) bool {
	return current.LessThan(baseline)
}
