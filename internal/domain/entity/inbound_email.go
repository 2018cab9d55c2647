package entity

import "time"

// Inbound email outcomes
const (
	EmailOutcomeIngested         = "INGESTED"
	EmailOutcomeIncompleteData   = "INCOMPLETE_DATA"
	EmailOutcomeUnreadable       = "UNREADABLE"
	EmailOutcomePersistenceError = "PERSISTENCE_FAILED"
)

// InboundEmail is the ingestion log entry for one received email
type InboundEmail struct {
	EmailID     string    `bson:"emailId"`
	Source      string    `bson:"source"`
	From        string    `bson:"from"`
	Subject     string    `bson:"subject"`
	ReceivedAt  time.Time `bson:"receivedAt"`
	ProcessedAt time.Time `bson:"processedAt"`
	Outcome     string    `bson:"outcome"`
	ErrorDetail string    `bson:"errorDetail,omitempty"`
	BookingID   string    `bson:"bookingId,omitempty"`
}

// InboundMessage is a raw email handed to the ingestion gateway by a transport
type InboundMessage struct {
	Raw        []byte
	Source     string
	MessageID  string
	ReceivedAt time.Time

	// Optional caller-supplied fields; they override values found in the email
	OwnerID       string
	Origin        string
	Destination   string
	DepartureDate string
}
