package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordOutcomeStatus classifies what a cycle did with one booking
type RecordOutcomeStatus string

const (
	OutcomeTransitioned RecordOutcomeStatus = "transitioned"
	OutcomeUnchanged    RecordOutcomeStatus = "unchanged"
	OutcomeFailed       RecordOutcomeStatus = "failed"
	OutcomeSkipped      RecordOutcomeStatus = "skipped"
)

// RecordOutcome is the per-booking result of one reconciliation cycle
type RecordOutcome struct {
	BookingID string
	Status    RecordOutcomeStatus
	Quote     *decimal.Decimal
	Err       error
}

// ReconciliationReport summarizes one reconciliation cycle
type ReconciliationReport struct {
	RunID        string          `json:"runId"`
	StartedAt    time.Time       `json:"startedAt"`
	FinishedAt   time.Time       `json:"finishedAt"`
	Candidates   int             `json:"candidates"`
	Transitioned int             `json:"transitioned"`
	Unchanged    int             `json:"unchanged"`
	Failed       int             `json:"failed"`
	Skipped      int             `json:"skipped"`
	Aborted      bool            `json:"aborted"`
	Outcomes     []RecordOutcome `json:"-"`
}

// Add tallies a record outcome into the report
func (r *ReconciliationReport) Add(o RecordOutcome) {
	switch o.Status {
	case OutcomeTransitioned:
		r.Transitioned++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Duration returns how long the cycle ran
func (r *ReconciliationReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
