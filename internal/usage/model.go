package usage

import (
	"strings"
	"time"
)

// AccountTypeStandard is the account type of every requester without a
// whitelist tag.
const AccountTypeStandard = "standard"

// StandardFreeAllowance is the lifetime number of free generations granted to
// a standard account.
const StandardFreeAllowance = 1

// Unlimited is passed as a reservation limit to skip the allowance check.
const Unlimited = -1

// DefaultReservationTTL bounds how long an uncommitted reservation holds a
// free unit.
const DefaultReservationTTL = 15 * time.Minute

// Account is the ledger row for one email.
type Account struct {
	Email            string     `json:"email"`
	AccountType      string     `json:"accountType"`
	FreeResumesUsed  int        `json:"freeResumesUsed"`
	ResumesGenerated int        `json:"resumesGenerated"`
	Flagged          bool       `json:"flagged"`
	FlaggedReason    string     `json:"flaggedReason,omitempty"`
	LastActivity     *time.Time `json:"lastActivity,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Reservation holds one free unit for an in-flight generation until it is
// committed, released or expires.
type Reservation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newAccount(email string, now time.Time) Account {
	return Account{
		Email:       email,
		AccountType: AccountTypeStandard,
		CreatedAt:   now,
	}
}

// withinLimit reports whether one more unit fits under limit. A negative limit
// is unlimited.
func withinLimit(used, active, limit int) bool {
	if limit < 0 {
		return true
	}
	return used+active < limit
}
