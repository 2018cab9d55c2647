package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"
	"github.com/has-1997/jetback-mvp/pkg/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// FareClientOptions configures the fare quote provider client
type FareClientOptions struct {
	BaseURL   string
	Token     string
	Version   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

// DuffelFareQuoteRepository requests offers from a Duffel-compatible offer request API
type DuffelFareQuoteRepository struct {
	logger  logger.Logger
	baseURL string
	version string
	client  *http.Client
	limiter *rate.Limiter
}

var _ repository.FareQuoteRepository = (*DuffelFareQuoteRepository)(nil)

// NewDuffelFareQuoteRepository creates a new fare quote client
func NewDuffelFareQuoteRepository(opts FareClientOptions, logger logger.Logger) *DuffelFareQuoteRepository {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: opts.Token,
		TokenType:   "Bearer",
	})

	client := oauth2.NewClient(context.Background(), tokenSource)
	client.Timeout = opts.Timeout
	if client.Timeout <= 0 {
		client.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &DuffelFareQuoteRepository{
		logger:  logger,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		version: opts.Version,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
	}
}

type offerRequestBody struct {
	Data offerRequestData `json:"data"`
}

type offerRequestData struct {
	Slices     []offerSlice     `json:"slices"`
	Passengers []offerPassenger `json:"passengers"`
	CabinClass string           `json:"cabin_class"`
}

type offerSlice struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

type offerPassenger struct {
	Type string `json:"type"`
}

type offerRequestResponse struct {
	Data struct {
		ID     string `json:"id"`
		Offers []struct {
			ID            string `json:"id"`
			TotalAmount   string `json:"total_amount"`
			TotalCurrency string `json:"total_currency"`
		} `json:"offers"`
	} `json:"data"`
	Errors []struct {
		Title   string `json:"title"`
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"errors"`
}

// Quote creates an offer request and returns its offers in provider order
func (r *DuffelFareQuoteRepository) Quote(ctx context.Context, req entity.FareQuoteRequest) ([]entity.FareOffer, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", entity.ErrQuoteProvider, err)
	}

	passengers := make([]offerPassenger, 0, req.Adults)
	for i := 0; i < req.Adults; i++ {
		passengers = append(passengers, offerPassenger{Type: entity.PassengerTypeAdult})
	}

	body := offerRequestBody{
		Data: offerRequestData{
			Slices: []offerSlice{{
				Origin:        req.Origin,
				Destination:   req.Destination,
				DepartureDate: req.DepartureDate,
			}},
			Passengers: passengers,
			CabinClass: req.CabinClass,
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal offer request: %w", err)
	}

	url := fmt.Sprintf("%s/air/offer_requests?return_offers=true", r.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if r.version != "" {
		httpReq.Header.Set("Duffel-Version", r.version)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrQuoteProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", entity.ErrQuoteProvider, err)
	}

	var response offerRequestResponse
	decodeErr := json.Unmarshal(raw, &response)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := http.StatusText(resp.StatusCode)
		if decodeErr == nil && len(response.Errors) > 0 {
			detail = response.Errors[0].Message
		}
		return nil, fmt.Errorf("%w: provider returned status %d: %s", entity.ErrQuoteProvider, resp.StatusCode, detail)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", entity.ErrQuoteProvider, decodeErr)
	}

	offers := make([]entity.FareOffer, 0, len(response.Data.Offers))
	for _, o := range response.Data.Offers {
		amount, err := decimal.NewFromString(o.TotalAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: offer %s has invalid total_amount %q", entity.ErrQuoteProvider, o.ID, o.TotalAmount)
		}
		offers = append(offers, entity.FareOffer{
			ID:          o.ID,
			TotalAmount: amount,
			Currency:    o.TotalCurrency,
		})
	}

	r.logger.Debug("Fare quote received",
		"offerRequestId", response.Data.ID,
		"origin", req.Origin,
		"destination", req.Destination,
		"departureDate", req.DepartureDate,
		"offers", len(offers))

	return offers, nil
}
