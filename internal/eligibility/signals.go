package eligibility

import (
	"context"
	"time"
)

// PatternType names an abuse pattern.
type PatternType string

const (
	PatternDisposableEmail PatternType = "disposable-email"
	PatternSharedIPFanout  PatternType = "shared-ip-fanout"
	PatternRapidRepeat     PatternType = "rapid-repeat"
	PatternOther           PatternType = "other"
)

// Severities per pattern. Higher is worse.
const (
	SeverityRapidRepeat     = 1
	SeveritySharedIPFanout  = 2
	SeverityDisposableEmail = 3
)

const (
	// FanoutThreshold distinct emails from one IP inside FanoutWindow raise
	// a shared-ip-fanout signal.
	FanoutThreshold = 3
	FanoutWindow    = 24 * time.Hour
	// RapidRepeatWindow is the minimum expected gap between two requests
	// for the same email.
	RapidRepeatWindow = 30 * time.Second
)

// Signal is one aggregated abuse observation keyed by pattern and value.
type Signal struct {
	PatternType     PatternType `json:"patternType"`
	MatchedValue    string      `json:"matchedValue"`
	Email           string      `json:"email,omitempty"`
	Severity        int         `json:"severity"`
	FirstSeen       time.Time   `json:"firstSeen"`
	LastSeen        time.Time   `json:"lastSeen"`
	OccurrenceCount int         `json:"occurrenceCount"`
}

// SignalRepo stores abuse observations. Signals are append-only: an upsert
// bumps lastSeen and occurrenceCount but never lowers severity.
type SignalRepo interface {
	Upsert(ctx context.Context, s Signal) (Signal, error)
	ListForValues(ctx context.Context, values []string) ([]Signal, error)
	List(ctx context.Context, limit int) ([]Signal, error)
	RecordSighting(ctx context.Context, ip, email string, at time.Time) error
	DistinctEmailsForIP(ctx context.Context, ip string, since time.Time) (int, error)
}

// disposableDomains is a seed list of throwaway mailbox providers.
var disposableDomains = map[string]bool{
	"10minutemail.com":  true,
	"discard.email":     true,
	"dispostable.com":   true,
	"fakeinbox.com":     true,
	"getairmail.com":    true,
	"getnada.com":       true,
	"guerrillamail.com": true,
	"guerrillamail.net": true,
	"maildrop.cc":       true,
	"mailinator.com":    true,
	"mailnesia.com":     true,
	"mintemail.com":     true,
	"mohmal.com":        true,
	"sharklasers.com":   true,
	"spamgourmet.com":   true,
	"temp-mail.org":     true,
	"tempmail.com":      true,
	"tempmailo.com":     true,
	"throwawaymail.com": true,
	"trashmail.com":     true,
	"yopmail.com":       true,
}

// IsDisposableDomain reports whether domain, or a parent of it, is a known
// disposable mailbox provider.
func IsDisposableDomain(domain string) bool {
	for _, d := range domainCandidates(domain) {
		if disposableDomains[d] {
			return true
		}
	}
	return false
}

func maxSeverity(signals []Signal) int {
	max := 0
	for _, s := range signals {
		if s.Severity > max {
			max = s.Severity
		}
	}
	return max
}
