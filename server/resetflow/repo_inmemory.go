package resetflow

import (
	"errors"
	"sync"
	"time"
)

var ErrFlowNotFound = errors.New("reset flow not found")

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu    sync.RWMutex
	flows map[string]Flow
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory reset flow repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		flows: make(map[string]Flow),
	}
}

// Upsert stores or updates a reset flow
func (r *InMemoryRepo) Upsert(flowID string, flow *Flow) error {
	if flowID == "" {
		return errors.New("flowID cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeExpired()
	r.flows[flowID] = *flow
	return nil
}

// Get retrieves a reset flow that has not outlived FlowTTL
func (r *InMemoryRepo) Get(flowID string) (*Flow, error) {
	if flowID == "" {
		return nil, ErrFlowNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	flow, exists := r.flows[flowID]
	if !exists || expired(flow) {
		return nil, ErrFlowNotFound
	}
	return &flow, nil
}

// Delete removes a reset flow
func (r *InMemoryRepo) Delete(flowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.flows, flowID)
	return nil
}

// purgeExpired must be called with the write lock held.
func (r *InMemoryRepo) purgeExpired() {
	for id, flow := range r.flows {
		if expired(flow) {
			delete(r.flows, id)
		}
	}
}

func expired(flow Flow) bool {
	return !NowTimeFunc().Before(flow.CreatedAt.Add(FlowTTL))
}
