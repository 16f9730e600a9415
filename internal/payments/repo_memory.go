package payments

import (
	"context"
	"sync"
)

// MemoryEventRepo stores payment events in memory.
type MemoryEventRepo struct {
	mu     sync.Mutex
	events map[string]Event
}

// NewMemoryEventRepo constructs a MemoryEventRepo.
func NewMemoryEventRepo() *MemoryEventRepo {
	return &MemoryEventRepo{events: make(map[string]Event)}
}

func (r *MemoryEventRepo) Claim(ctx context.Context, ev Event) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[ev.SessionID]; ok {
		return false, nil
	}
	r.events[ev.SessionID] = ev
	return true, nil
}

func (r *MemoryEventRepo) Get(ctx context.Context, sessionID string) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[sessionID]
	if !ok {
		return Event{}, ErrNotFound
	}
	return ev, nil
}

func (r *MemoryEventRepo) SetJobID(ctx context.Context, sessionID, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[sessionID]
	if !ok {
		return ErrNotFound
	}
	ev.JobID = jobID
	r.events[sessionID] = ev
	return nil
}

func (r *MemoryEventRepo) Release(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := r.events[sessionID]; ok && ev.JobID == "" {
		delete(r.events, sessionID)
	}
	return nil
}
