// Package store holds the single source of truth for a planning session.
//
// Every mutation replaces the snapshot with a fresh copy, records it in a short undo
// history and then calls subscribers synchronously, in registration order, before the
// mutating method returns. The store lock is never held while subscribers run, so a
// subscriber may mutate the store again.
package store

import (
	"sync"
	"time"

	"fire/internal/core"
	"fire/internal/log"
)

// HistorySize bounds the undo history, current snapshot included.
const HistorySize = 3

// Subscriber receives the full state after each mutation.
type Subscriber func(core.StoreState)

type Store struct {
	mu      sync.Mutex
	state   core.StoreState
	history []core.StoreState
	subs    map[int]Subscriber
	order   []int
	nextID  int
	now     func() time.Time
	roi     float64
	logger  *log.Logger
}

type Option func(*Store)

// WithClock sets the clock used for default snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDefaultROI sets the rate of return of default snapshots.
func WithDefaultROI(roi float64) Option {
	return func(s *Store) { s.roi = roi }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentStore) }
}

// New returns a store holding the default snapshot.
func New(opts ...Option) *Store {
	s := &Store{
		subs:   make(map[int]Subscriber),
		now:    time.Now,
		roi:    core.DefaultROI,
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.defaultState()
	s.history = []core.StoreState{s.state}
	return s
}

// State returns a copy of the current snapshot.
func (s *Store) State() core.StoreState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn and returns a function that unregisters it.
func (s *Store) Subscribe(fn Subscriber) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; !ok {
			return
		}
		delete(s.subs, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Put inserts or replaces the stream at st.Key. No validation happens here.
func (s *Store) Put(st core.Stream) {
	s.update(func(next *core.StoreState) {
		next.MoneyStreams[st.Key] = st
	})
	s.logger.Debug("Stream put", log.NewFields().WithStream(st.Key, st.Name).WithOperation(log.OpPut).ToSlice()...)
}

// Delete removes the stream at key. Deleting a missing key is not an error.
func (s *Store) Delete(key int64) {
	s.update(func(next *core.StoreState) {
		delete(next.MoneyStreams, key)
	})
	s.logger.Debug("Stream deleted", log.FieldStreamKey, key, log.FieldOperation, log.OpDelete)
}

func (s *Store) SetROI(roi float64) {
	s.update(func(next *core.StoreState) { next.ROI = roi })
}

func (s *Store) SetAutoSave(on bool) {
	s.update(func(next *core.StoreState) { next.AutoSave = on })
}

// MarkSaved records the time of the last successful share.
func (s *Store) MarkSaved(at time.Time) {
	s.update(func(next *core.StoreState) { next.LastSaved = core.Timestamp(at) })
}

// Reset replaces the whole state with a fresh default snapshot.
func (s *Store) Reset() {
	s.commit(s.defaultState())
	s.logger.Debug("Store reset", log.FieldOperation, log.OpReset)
}

// Load replaces the whole state with state verbatim.
func (s *Store) Load(state core.StoreState) {
	s.commit(state.Clone())
	s.logger.Debug("Snapshot loaded", log.NewFields().
		WithSnapshot(len(state.MoneyStreams), state.ROI, state.AutoSave).
		WithOperation(log.OpLoad).ToSlice()...)
}

// Undo drops the current snapshot and restores the one before it, or the default
// snapshot once the history is exhausted. The current snapshot is always on top of the
// history, which is why two entries are popped.
func (s *Store) Undo() {
	s.mu.Lock()
	s.pop()
	prev, ok := s.pop()
	if !ok {
		prev = s.defaultState()
	}
	subs := s.applyLocked(prev)
	s.mu.Unlock()

	notify(subs, prev)
	s.logger.Debug("Undo applied", log.FieldOperation, log.OpUndo, "restored_default", !ok)
}

// HistoryLen reports how many snapshots the undo history holds.
func (s *Store) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func (s *Store) defaultState() core.StoreState {
	st := core.DefaultState(s.now())
	st.ROI = s.roi
	return st
}

func (s *Store) pop() (core.StoreState, bool) {
	n := len(s.history)
	if n == 0 {
		return core.StoreState{}, false
	}
	top := s.history[n-1]
	s.history = s.history[:n-1]
	return top, true
}

// update applies fn to a copy of the current snapshot and commits the copy.
func (s *Store) update(fn func(next *core.StoreState)) {
	s.mu.Lock()
	next := s.state.Clone()
	fn(&next)
	subs := s.applyLocked(next)
	s.mu.Unlock()

	notify(subs, next)
}

func (s *Store) commit(next core.StoreState) {
	s.mu.Lock()
	subs := s.applyLocked(next)
	s.mu.Unlock()

	notify(subs, next)
}

// applyLocked installs next, records it in the history and returns the subscribers to
// call, in registration order.
func (s *Store) applyLocked(next core.StoreState) []Subscriber {
	s.state = next
	s.history = append(s.history, next)
	if len(s.history) > HistorySize {
		s.history = append([]core.StoreState(nil), s.history[len(s.history)-HistorySize:]...)
	}
	subs := make([]Subscriber, 0, len(s.order))
	for _, id := range s.order {
		subs = append(subs, s.subs[id])
	}
	return subs
}

func notify(subs []Subscriber, next core.StoreState) {
	for _, fn := range subs {
		fn(next.Clone())
	}
}
