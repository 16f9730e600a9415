package payments

import "time"

// Checkout is the subset of a completed checkout session the service needs.
// AmountTotal is in cents.
type Checkout struct {
	SessionID     string
	PaymentStatus string
	AmountTotal   int64
	CustomerEmail string
	Metadata      map[string]string
}

// Order is a paid generation decoded from checkout metadata.
type Order struct {
	SessionID      string
	Email          string
	TemplateID     string
	ResumeContent  string
	JobDescription string
	FileName       string
	AmountPaid     int64
}

// Event is the idempotency record for one checkout session. JobID is empty
// until the paid generation completes.
type Event struct {
	SessionID  string
	Email      string
	TemplateID string
	AmountPaid int64
	JobID      string
	ReceivedAt time.Time
}

// Outcome describes what the webhook did with a checkout.
type Outcome string

const (
	OutcomeDispatched Outcome = "dispatched"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeIgnored    Outcome = "ignored"
)
