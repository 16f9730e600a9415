package generation

import "time"

// Status is a GenerationJob lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to moves the job forward.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Job is one generation attempt.
type Job struct {
	ID               string     `json:"id"`
	RequesterEmail   string     `json:"requesterEmail"`
	TemplateID       string     `json:"templateId"`
	Status           Status     `json:"status"`
	PaymentVerified  bool       `json:"paymentVerified"`
	PaymentSessionID string     `json:"paymentSessionId,omitempty"`
	ErrorCode        string     `json:"errorCode,omitempty"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	ResultSummary    string     `json:"resultSummary,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Update carries the fields written alongside a transition.
type Update struct {
	At            time.Time
	ErrorCode     string
	ErrorMessage  string
	ResultSummary string
}

// Request is a generation request. IsFirstTimeFlow is accepted from clients
// and ignored; the ledger decides.
type Request struct {
	Email            string
	ResumeContent    string
	JobDescription   string
	FileName         string
	TemplateID       string
	IsFirstTimeFlow  bool
	PaymentVerified  bool
	PaymentSessionID string
	IP               string
	UserAgent        string
	Referrer         string
}

// Session summarizes the requester's account after the request.
type Session struct {
	AccountType     string `json:"accountType"`
	FreeResumesUsed int    `json:"freeResumesUsed"`
}

// Result is the outcome reported to the caller. Prices are in cents.
type Result struct {
	Success             bool
	Message             string
	Code                string
	JobID               string
	RequiresPayment     bool
	PaymentTemplateName string
	OriginalPrice       int64
	DiscountedPrice     int64
	Reason              string
	Session             Session
	DownloadURL         string
}
