package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"
	"github.com/has-1997/jetback-mvp/pkg/logger"
	"github.com/has-1997/jetback-mvp/pkg/metrics"
	"github.com/has-1997/jetback-mvp/pkg/utils"
)

// BookingParser extracts a booking draft from a raw email
type BookingParser interface {
	Parse(raw []byte) (*utils.DecodedEmail, entity.BookingDraft, error)
}

// IngestionService is the extraction gateway: one raw email in, one tracked booking out
type IngestionService struct {
	parser      BookingParser
	bookingRepo repository.TrackedBookingRepository
	emailRepo   repository.EmailRepository
	metrics     *metrics.Metrics
	logger      logger.Logger
	now         func() time.Time
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	parser BookingParser,
	bookingRepo repository.TrackedBookingRepository,
	emailRepo repository.EmailRepository,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *IngestionService {
	return &IngestionService{
		parser:      parser,
		bookingRepo: bookingRepo,
		emailRepo:   emailRepo,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Ingest extracts a booking from msg and stores it in tracking state.
// Errors are *entity.ExtractionError values; nothing is stored on failure.
func (s *IngestionService) Ingest(ctx context.Context, msg entity.InboundMessage) (*entity.TrackedBooking, error) {
	now := s.now()
	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}

	logEntry := &entity.InboundEmail{
		EmailID:    msg.MessageID,
		Source:     msg.Source,
		ReceivedAt: receivedAt,
	}

	email, draft, err := s.parser.Parse(msg.Raw)
	if email != nil {
		logEntry.From = email.From
		logEntry.Subject = email.Subject
	}
	if err != nil {
		s.finish(ctx, logEntry, err)
		return nil, err
	}

	if err := applyOverrides(&draft, msg); err != nil {
		s.finish(ctx, logEntry, err)
		return nil, err
	}

	booking := entity.NewTrackedBooking(draft, now)
	booking.Source = msg.Source
	booking.SourceMessageID = msg.MessageID
	if booking.SourceMessageID == "" && email != nil {
		booking.SourceMessageID = email.MessageID
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		extractionErr := entity.NewExtractionError(entity.ErrPersistenceFailed, "create tracked booking", err)
		s.finish(ctx, logEntry, extractionErr)
		return nil, extractionErr
	}

	logEntry.BookingID = booking.ID
	s.finish(ctx, logEntry, nil)

	s.logger.Info("Booking ingested",
		"bookingID", booking.ID,
		"confirmationCode", booking.ConfirmationCode,
		"baselinePrice", booking.BaselinePrice.StringFixed(2),
		"source", booking.Source)

	return booking, nil
}

// applyOverrides copies caller-supplied fields onto the draft.
// Malformed route fields reject the whole message as incomplete.
func applyOverrides(draft *entity.BookingDraft, msg entity.InboundMessage) error {
	if msg.Origin != "" && !entity.ValidAirportCode(msg.Origin) {
		return entity.NewExtractionError(entity.ErrIncompleteData, fmt.Sprintf("invalid origin %q", msg.Origin), nil)
	}
	if msg.Destination != "" && !entity.ValidAirportCode(msg.Destination) {
		return entity.NewExtractionError(entity.ErrIncompleteData, fmt.Sprintf("invalid destination %q", msg.Destination), nil)
	}
	if msg.DepartureDate != "" && !entity.ValidDepartureDate(msg.DepartureDate) {
		return entity.NewExtractionError(entity.ErrIncompleteData, fmt.Sprintf("invalid departure date %q", msg.DepartureDate), nil)
	}

	if msg.OwnerID != "" {
		draft.OwnerID = msg.OwnerID
	}
	if msg.Origin != "" {
		draft.Origin = msg.Origin
	}
	if msg.Destination != "" {
		draft.Destination = msg.Destination
	}
	if msg.DepartureDate != "" {
		draft.DepartureDate = msg.DepartureDate
	}
	return nil
}

// finish records the outcome in metrics and the email log. Log failures are not fatal.
func (s *IngestionService) finish(ctx context.Context, entry *entity.InboundEmail, err error) {
	entry.ProcessedAt = s.now()
	entry.Outcome = outcomeFor(err)
	if err != nil {
		entry.ErrorDetail = err.Error()
		s.logger.Warn("Email ingestion failed",
			"emailID", entry.EmailID,
			"source", entry.Source,
			"outcome", entry.Outcome,
			"error", err)
	}

	s.metrics.EmailsIngested.WithLabelValues(entry.Outcome).Inc()

	if saveErr := s.emailRepo.Save(ctx, entry); saveErr != nil {
		s.metrics.ErrorsCount.WithLabelValues("email_log").Inc()
		s.logger.Error("Failed to save email log",
			"emailID", entry.EmailID,
			"error", saveErr)
	}
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return entity.EmailOutcomeIngested
	case errors.Is(err, entity.ErrIncompleteData):
		return entity.EmailOutcomeIncompleteData
	case errors.Is(err, entity.ErrPersistenceFailed):
		return entity.EmailOutcomePersistenceError
	default:
		return entity.EmailOutcomeUnreadable
	}
}
