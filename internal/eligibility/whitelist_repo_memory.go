package eligibility

import (
	"context"
	"sort"
	"sync"
)

// MemoryWhitelistRepo stores entries in memory.
type MemoryWhitelistRepo struct {
	mu      sync.RWMutex
	entries map[string]WhitelistEntry
}

// NewMemoryWhitelistRepo constructs an empty MemoryWhitelistRepo.
func NewMemoryWhitelistRepo() *MemoryWhitelistRepo {
	return &MemoryWhitelistRepo{entries: make(map[string]WhitelistEntry)}
}

func (r *MemoryWhitelistRepo) Create(ctx context.Context, e WhitelistEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if existing.MatchType == e.MatchType && existing.MatchValue == e.MatchValue {
			return ErrDuplicateEntry
		}
	}
	r.entries[e.ID] = e
	return nil
}

func (r *MemoryWhitelistRepo) List(ctx context.Context, includeInactive bool) ([]WhitelistEntry, error) {
	out := r.filter(func(e WhitelistEntry) bool { return includeInactive || e.Active })
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryWhitelistRepo) Deactivate(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.Active = false
	r.entries[id] = e
	return nil
}

func (r *MemoryWhitelistRepo) FindActiveByEmail(ctx context.Context, email string) (WhitelistEntry, error) {
	if err := ctx.Err(); err != nil {
		return WhitelistEntry{}, err
	}
	found := r.filter(func(e WhitelistEntry) bool {
		return e.Active && e.MatchType == MatchEmail && e.MatchValue == email
	})
	if len(found) == 0 {
		return WhitelistEntry{}, ErrNotFound
	}
	return found[0], nil
}

func (r *MemoryWhitelistRepo) FindActiveByDomains(ctx context.Context, domains []string) ([]WhitelistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(domains))
	for _, d := range domains {
		want[d] = true
	}
	return r.filter(func(e WhitelistEntry) bool {
		return e.Active && e.MatchType == MatchDomain && want[e.MatchValue]
	}), nil
}

func (r *MemoryWhitelistRepo) ListActiveIPRanges(ctx context.Context) ([]WhitelistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.filter(func(e WhitelistEntry) bool {
		return e.Active && e.MatchType == MatchIPRange
	}), nil
}

func (r *MemoryWhitelistRepo) filter(keep func(WhitelistEntry) bool) []WhitelistEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []WhitelistEntry
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
