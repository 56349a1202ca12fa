package service

import (
	"log"
	"sync"
	"time"

	"examsim/internal/cache"
	"examsim/internal/events"
)

// StoreRegistry owns one ProgressStore per student
type StoreRegistry struct {
	sessions    SessionService
	checkpoints cache.CheckpointCache
	publisher   events.Publisher

	mu     sync.Mutex
	stores map[string]*ProgressStore
}

// NewStoreRegistry creates an empty registry
func NewStoreRegistry(sessions SessionService, checkpoints cache.CheckpointCache, publisher events.Publisher) *StoreRegistry {
	return &StoreRegistry{
		sessions:    sessions,
		checkpoints: checkpoints,
		publisher:   publisher,
		stores:      make(map[string]*ProgressStore),
	}
}

// Get returns the student's store, creating it on first use
func (r *StoreRegistry) Get(studentID string) *ProgressStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[studentID]; ok {
		return store
	}
	store := NewProgressStore(studentID, r.sessions, r.checkpoints)
	store.SetPublisher(r.publisher)
	r.stores[studentID] = store
	return store
}

// Drop resets and forgets the student's store
func (r *StoreRegistry) Drop(studentID string) {
	r.mu.Lock()
	store, ok := r.stores[studentID]
	delete(r.stores, studentID)
	r.mu.Unlock()

	if ok {
		store.Reset()
	}
}

// Len returns the number of live stores
func (r *StoreRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep forgets stores idle for longer than maxIdle and returns how many
// were dropped. Paused sessions keep their checkpoint in the cache.
func (r *StoreRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var idle []string
	for id, store := range r.stores {
		if store.LastUsed().Before(cutoff) && !store.State().Loading {
			idle = append(idle, id)
		}
	}
	for _, id := range idle {
		delete(r.stores, id)
	}
	r.mu.Unlock()

	if len(idle) > 0 {
		log.Printf("[Store Registry] dropped %d idle stores", len(idle))
	}
	return len(idle)
}

// RunSweeper sweeps every interval until stop is closed
func (r *StoreRegistry) RunSweeper(interval, maxIdle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep(maxIdle)
		case <-stop:
			return
		}
	}
}
