package eligibility

import (
	"context"
	"sort"
	"sync"
	"time"
)

type signalKey struct {
	pattern PatternType
	value   string
}

// MemorySignalRepo stores signals and sightings in memory.
type MemorySignalRepo struct {
	mu        sync.Mutex
	signals   map[signalKey]Signal
	sightings map[string]map[string]time.Time
}

// NewMemorySignalRepo constructs an empty MemorySignalRepo.
func NewMemorySignalRepo() *MemorySignalRepo {
	return &MemorySignalRepo{
		signals:   make(map[signalKey]Signal),
		sightings: make(map[string]map[string]time.Time),
	}
}

func (r *MemorySignalRepo) Upsert(ctx context.Context, s Signal) (Signal, error) {
	if err := ctx.Err(); err != nil {
		return Signal{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := signalKey{pattern: s.PatternType, value: s.MatchedValue}
	existing, ok := r.signals[key]
	if !ok {
		s.FirstSeen = s.LastSeen
		s.OccurrenceCount = 1
		r.signals[key] = s
		return s, nil
	}
	existing.LastSeen = s.LastSeen
	existing.OccurrenceCount++
	existing.Email = s.Email
	if s.Severity > existing.Severity {
		existing.Severity = s.Severity
	}
	r.signals[key] = existing
	return existing, nil
}

func (r *MemorySignalRepo) ListForValues(ctx context.Context, values []string) ([]Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(values))
	for _, v := range values {
		want[v] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Signal
	for _, s := range r.signals {
		if want[s.MatchedValue] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemorySignalRepo) List(ctx context.Context, limit int) ([]Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	out := make([]Signal, 0, len(r.signals))
	for _, s := range r.signals {
		out = append(out, s)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemorySignalRepo) RecordSighting(ctx context.Context, ip, email string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byEmail, ok := r.sightings[ip]
	if !ok {
		byEmail = make(map[string]time.Time)
		r.sightings[ip] = byEmail
	}
	byEmail[email] = at
	return nil
}

func (r *MemorySignalRepo) DistinctEmailsForIP(ctx context.Context, ip string, since time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, seen := range r.sightings[ip] {
		if !seen.Before(since) {
			n++
		}
	}
	return n, nil
}
