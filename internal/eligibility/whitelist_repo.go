package eligibility

import "context"

// WhitelistRepo persists whitelist entries. Only the admin surface writes.
type WhitelistRepo interface {
	Create(ctx context.Context, e WhitelistEntry) error
	List(ctx context.Context, includeInactive bool) ([]WhitelistEntry, error)
	Deactivate(ctx context.Context, id string) error
	FindActiveByEmail(ctx context.Context, email string) (WhitelistEntry, error)
	FindActiveByDomains(ctx context.Context, domains []string) ([]WhitelistEntry, error)
	ListActiveIPRanges(ctx context.Context) ([]WhitelistEntry, error)
}
