package cache

import (
	"log/slog"
	"time"
)

// Cache is a keyed store of computed values.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Len() int
}

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically evicts expired entries from registered caches.
type Manager struct {
	caches  []Cleaner
	stop    chan struct{}
	done    chan struct{}
	started bool
}

func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cache to the sweep. Call before Start.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Start sweeps every interval until Stop.
func (m *Manager) Start(interval time.Duration) {
	m.started = true
	go m.run(interval)
}

func (m *Manager) run(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

// Sweep evicts expired entries now and returns how many were dropped.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	if total > 0 {
		slog.Debug("Evicted expired cache entries", "component", "cache", "count", total)
	}
	return total
}

// Stop ends the sweep loop and waits for it to exit. Safe to call when never started.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	m.started = false
	close(m.stop)
	<-m.done
}
