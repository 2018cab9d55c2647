package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"
	"github.com/has-1997/jetback-mvp/pkg/logger"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	gmailUser          = "me"
	defaultMaxMessages = 100
)

// Ingester turns a raw email into a tracked booking
type Ingester interface {
	Ingest(ctx context.Context, msg entity.InboundMessage) (*entity.TrackedBooking, error)
}

// GmailPoller pulls forwarded confirmation emails from a Gmail inbox
type GmailPoller struct {
	gmailService *gmail.Service
	ingester     Ingester
	emailRepo    repository.EmailRepository
	logger       logger.Logger
	pollInterval time.Duration
	query        string
}

// NewGmailService creates the Gmail API client
func NewGmailService(ctx context.Context, opts ...option.ClientOption) (*gmail.Service, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return service, nil
}

// NewGmailPoller creates a new Gmail poller
func NewGmailPoller(service *gmail.Service, ingester Ingester, emailRepo repository.EmailRepository, logger logger.Logger, pollInterval time.Duration, query string) *GmailPoller {
	return &GmailPoller{
		gmailService: service,
		ingester:     ingester,
		emailRepo:    emailRepo,
		logger:       logger,
		pollInterval: pollInterval,
		query:        query,
	}
}

// FetchEmails ingests every matching message that has not been ingested yet.
// Messages whose last attempt failed on storage are retried.
func (p *GmailPoller) FetchEmails(ctx context.Context) error {
	resp, err := p.gmailService.Users.Messages.List(gmailUser).
		Q(p.query).
		MaxResults(defaultMaxMessages).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}

	if len(resp.Messages) == 0 {
		p.logger.Debug("No messages found", "query", p.query)
		return nil
	}

	emailIDs := make([]string, len(resp.Messages))
	for i, msg := range resp.Messages {
		emailIDs[i] = msg.Id
	}

	existing, err := p.emailRepo.FindByEmailIDs(ctx, emailIDs)
	if err != nil {
		p.logger.Error("Failed to batch check existing emails", "error", err)
		existing = make(map[string]*entity.InboundEmail)
	}

	ingested, skipped, failed := 0, 0, 0
	for _, msg := range resp.Messages {
		if prev, ok := existing[msg.Id]; ok && prev.Outcome != entity.EmailOutcomePersistenceError {
			skipped++
			continue
		}

		fullMsg, err := p.gmailService.Users.Messages.Get(gmailUser, msg.Id).
			Format("raw").
			Context(ctx).
			Do()
		if err != nil {
			p.logger.Error("Failed to get message", "emailID", msg.Id, "error", err)
			failed++
			continue
		}

		raw, err := decodeRaw(fullMsg.Raw)
		if err != nil {
			p.logger.Error("Failed to decode raw message", "emailID", msg.Id, "error", err)
			failed++
			continue
		}

		_, err = p.ingester.Ingest(ctx, entity.InboundMessage{
			Raw:        raw,
			Source:     entity.SourceGmail,
			MessageID:  msg.Id,
			ReceivedAt: time.UnixMilli(fullMsg.InternalDate).UTC(),
		})
		if err != nil {
			failed++
			continue
		}
		ingested++
	}

	p.logger.Info("Gmail fetch completed",
		"total", len(resp.Messages),
		"alreadyIngested", skipped,
		"ingested", ingested,
		"failed", failed)

	return nil
}

// StartPolling fetches once, then every poll interval until ctx is done
func (p *GmailPoller) StartPolling(ctx context.Context) {
	if err := p.FetchEmails(ctx); err != nil {
		p.logger.Error("Error polling Gmail", "error", err)
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Gmail polling stopped")
			return
		case <-ticker.C:
			if err := p.FetchEmails(ctx); err != nil {
				p.logger.Error("Error polling Gmail", "error", err)
			}
		}
	}
}

// decodeRaw accepts Gmail's base64url payload with or without padding
func decodeRaw(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}
