package utils

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/pkg/logger"

	"github.com/jhillyerd/enmime"
	"github.com/shopspring/decimal"
)

var (
	confirmationRe = regexp.MustCompile(`Confirmation number: ([A-Z0-9]{6,8})`)
	totalPriceRe   = regexp.MustCompile(`Total price: \$(\d+\.\d{2})`)

	originRe      = regexp.MustCompile(`Origin: ([A-Z]{3})\b`)
	destinationRe = regexp.MustCompile(`Destination: ([A-Z]{3})\b`)
	departureRe   = regexp.MustCompile(`Departure date: (\d{4}-\d{2}-\d{2})`)

	// RFC 5322 field name: printable ASCII without space or colon
	headerLineRe = regexp.MustCompile(`^[!-9;-~]+:`)
)

// DecodedEmail is the plain-text view of a raw email
type DecodedEmail struct {
	From      string
	Subject   string
	MessageID string
	Body      string
}

// BookingEmailParser turns raw forwarded confirmation emails into booking drafts
type BookingEmailParser struct {
	logger logger.Logger
}

// NewBookingEmailParser creates a new booking email parser
func NewBookingEmailParser(logger logger.Logger) *BookingEmailParser {
	return &BookingEmailParser{
		logger: logger,
	}
}

// Parse decodes the raw email and extracts a draft from its body
func (p *BookingEmailParser) Parse(raw []byte) (*DecodedEmail, entity.BookingDraft, error) {
	email, err := p.Decode(raw)
	if err != nil {
		return nil, entity.BookingDraft{}, err
	}

	draft, err := p.Extract(email.Body)
	if err != nil {
		return email, entity.BookingDraft{}, err
	}
	draft.OwnerID = email.From

	return email, draft, nil
}

// Decode reads headers and MIME parts and returns the plain-text body.
// Payloads without a header block are taken as the body itself.
// Fails with entity.ErrUnreadableInput when no readable body can be produced.
func (p *BookingEmailParser) Decode(raw []byte) (*DecodedEmail, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, entity.NewExtractionError(entity.ErrUnreadableInput, "empty payload", nil)
	}

	if !hasHeaderBlock(raw) {
		return p.decodePlainText(raw)
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		if utf8.Valid(raw) {
			p.logger.Debug("MIME decode failed, reading payload as plain text", "error", err.Error())
			return p.decodePlainText(raw)
		}
		return nil, entity.NewExtractionError(entity.ErrUnreadableInput, "mime decode", err)
	}

	for _, perr := range env.Errors {
		p.logger.Debug("MIME parse warning", "error", perr.Error())
	}

	// enmime down-converts HTML-only messages into Text
	body := env.Text
	if strings.TrimSpace(body) == "" {
		return nil, entity.NewExtractionError(entity.ErrUnreadableInput, "no text body", nil)
	}

	email := &DecodedEmail{
		Subject:   env.GetHeader("Subject"),
		MessageID: strings.Trim(env.GetHeader("Message-Id"), "<> "),
		Body:      body,
	}

	if addrs, err := env.AddressList("From"); err == nil && len(addrs) > 0 {
		email.From = strings.ToLower(addrs[0].Address)
	} else {
		email.From = strings.TrimSpace(env.GetHeader("From"))
	}

	return email, nil
}

func (p *BookingEmailParser) decodePlainText(raw []byte) (*DecodedEmail, error) {
	if !utf8.Valid(raw) {
		return nil, entity.NewExtractionError(entity.ErrUnreadableInput, "payload is not text", nil)
	}
	return &DecodedEmail{Body: strings.TrimSpace(string(raw))}, nil
}

// hasHeaderBlock reports whether raw opens with a header field and has a
// blank line separating the headers from the body.
func hasHeaderBlock(raw []byte) bool {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	text = strings.TrimLeft(text, "\n")

	end := strings.Index(text, "\n\n")
	if end < 0 {
		return false
	}
	for _, line := range strings.Split(text[:end], "\n") {
		// folded continuation
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}
		if !headerLineRe.MatchString(line) {
			return false
		}
	}
	return true
}

// Extract applies the confirmation-code and total-price patterns to a decoded body.
// Only the first match of each pattern counts. Route fields are optional.
func (p *BookingEmailParser) Extract(body string) (entity.BookingDraft, error) {
	code := firstSubmatch(confirmationRe, body)
	price := firstSubmatch(totalPriceRe, body)

	p.logger.Debug("Extracted booking fields", "confirmationCode", code, "totalPrice", price)

	var missing []string
	if code == "" {
		missing = append(missing, "confirmation number")
	}
	if price == "" {
		missing = append(missing, "total price")
	}
	if len(missing) > 0 {
		return entity.BookingDraft{}, entity.NewExtractionError(entity.ErrIncompleteData, "missing "+strings.Join(missing, ", "), nil)
	}

	amount, err := decimal.NewFromString(price)
	if err != nil {
		return entity.BookingDraft{}, entity.NewExtractionError(entity.ErrIncompleteData, "total price", err)
	}

	draft := entity.BookingDraft{
		ConfirmationCode: code,
		TotalPrice:       amount,
		Origin:           firstSubmatch(originRe, body),
		Destination:      firstSubmatch(destinationRe, body),
	}

	if date := firstSubmatch(departureRe, body); date != "" {
		if entity.ValidDepartureDate(date) {
			draft.DepartureDate = date
		} else {
			p.logger.Warn("Ignoring invalid departure date", "value", date)
		}
	}

	return draft, nil
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	match := re.FindStringSubmatch(text)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}
