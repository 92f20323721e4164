// Package session wires the store, the autosave controller and the projection memo into
// one explicitly owned planning session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fire/internal/autosave"
	"fire/internal/cache"
	"fire/internal/codec"
	"fire/internal/core"
	"fire/internal/demo"
	"fire/internal/log"
	"fire/internal/projection"
	"fire/internal/store"
)

// ErrSomethingWentWrong is reported by Recover when a handler panics.
var ErrSomethingWentWrong = errors.New("something went wrong")

const (
	defaultCacheSize = 64
)

// Options configure Open. Codec and Location are required. Cooldown and DefaultROI are
// used as given, zero included; start from DefaultOptions to get the usual values.
// Without a Logger the one carried by the Open context is used.
type Options struct {
	Codec      codec.Codec
	Location   autosave.Location
	Cooldown   time.Duration
	DefaultROI float64
	CacheSize  int
	CacheTTL   time.Duration
	Hooks      []autosave.CommitHook
	Logger     *log.Logger
	Clock      func() time.Time
}

type Session struct {
	store    *store.Store
	autosave *autosave.Controller
	memo     *projection.Memo
	caches   *cache.Manager
	logger   *log.Logger
	now      func() time.Time

	mu        sync.Mutex
	committed *committed
}

// committed is the last commit and the snapshot the store held right after it.
type committed struct {
	commit autosave.Commit
	state  core.StoreState
}

// DefaultOptions returns options with the default rate of return, cooldown and cache size.
func DefaultOptions(cd codec.Codec, loc autosave.Location) Options {
	return Options{
		Codec:      cd,
		Location:   loc,
		Cooldown:   autosave.DefaultCooldown,
		DefaultROI: core.DefaultROI,
		CacheSize:  defaultCacheSize,
	}
}

// Open starts a session from the default snapshot with autosave listening.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("open session: codec is required")
	}
	if opts.Location == nil {
		return nil, fmt.Errorf("open session: location is required")
	}
	if opts.Cooldown < 0 {
		return nil, fmt.Errorf("open session: negative cooldown %v", opts.Cooldown)
	}
	if opts.Logger == nil {
		opts.Logger = log.FromContext(ctx)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}

	st := store.New(
		store.WithClock(opts.Clock),
		store.WithDefaultROI(opts.DefaultROI),
		store.WithLogger(opts.Logger),
	)

	lru := cache.NewLRU[string, projection.Result](opts.CacheSize, opts.CacheTTL)
	caches := cache.NewManager()
	caches.Register(lru)
	if opts.CacheTTL > 0 {
		caches.Start(opts.CacheTTL)
	}

	s := &Session{
		store:  st,
		memo:   projection.NewMemo(lru),
		caches: caches,
		logger: opts.Logger.WithComponent(log.ComponentSession),
		now:    opts.Clock,
	}

	ctlOpts := []autosave.Option{
		autosave.WithCooldown(opts.Cooldown),
		autosave.WithClock(opts.Clock),
		autosave.WithLogger(opts.Logger),
		autosave.WithCommitHook(s.recordCommit),
	}
	for _, h := range opts.Hooks {
		ctlOpts = append(ctlOpts, autosave.WithCommitHook(h))
	}
	s.autosave = autosave.New(st, codec.NewSerial(opts.Codec), opts.Location, ctlOpts...)
	s.autosave.Start(ctx)

	s.logger.DebugContext(ctx, "Session opened", log.FieldCodec, opts.Codec.Name())
	return s, nil
}

// Close stops autosave and the cache sweeper.
func (s *Session) Close() {
	s.autosave.Stop()
	s.caches.Stop()
}

func (s *Session) Store() *store.Store {
	return s.store
}

func (s *Session) State() core.StoreState {
	return s.store.State()
}

// AddStream parses a form submission, validates it and stores it under a fresh
// time-derived key. A key already in use moves forward by one millisecond.
func (s *Session) AddStream(in core.StreamInput) (core.Stream, error) {
	key := core.NewKey(s.now())
	for {
		if _, taken := s.store.State().MoneyStreams[key]; !taken {
			break
		}
		key++
	}
	st, err := core.ParseStreamInput(in, key)
	if err != nil {
		return core.Stream{}, err
	}
	s.store.Put(st)
	return st, nil
}

// ReplaceStream validates st and replaces the stream stored under its key.
func (s *Session) ReplaceStream(st core.Stream) error {
	if _, ok := s.store.State().MoneyStreams[st.Key]; !ok {
		return fmt.Errorf("stream %d not found", st.Key)
	}
	if err := st.Validate(); err != nil {
		return err
	}
	s.store.Put(st)
	return nil
}

// LoadDemo replaces the snapshot with the sample plan.
func (s *Session) LoadDemo() error {
	st, err := demo.Load(s.now())
	if err != nil {
		return err
	}
	s.store.Load(st)
	return nil
}

// Projection returns the projection of the current snapshot, memoized by its inputs.
func (s *Session) Projection() projection.Result {
	return s.memo.Project(s.store.State())
}

// Share saves the current snapshot to the location now.
func (s *Session) Share(ctx context.Context) (autosave.ShareResult, error) {
	return s.autosave.Share(ctx)
}

// Save shares the current snapshot unless the last commit already holds it, as it does
// right after an autosave. That commit is then reported as unchanged.
func (s *Session) Save(ctx context.Context) (autosave.ShareResult, error) {
	s.mu.Lock()
	last := s.committed
	s.mu.Unlock()
	if last != nil && last.state.Equal(s.store.State()) {
		return autosave.ShareResult{Token: last.commit.Token, Unchanged: true}, nil
	}
	return s.Share(ctx)
}

// recordCommit runs inside the save, after lastSaved moved, so the store state is the
// committed one.
func (s *Session) recordCommit(_ context.Context, c autosave.Commit) {
	state := s.store.State()
	s.mu.Lock()
	s.committed = &committed{commit: c, state: state}
	s.mu.Unlock()
}

// Restore loads the snapshot from the location, see autosave.Controller.Restore.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	return s.autosave.Restore(ctx)
}

// Recover runs fn as the top level boundary of a user action. When fn fails or panics
// after changing the store, the last mutation is undone. The failure is returned either
// way.
func (s *Session) Recover(ctx context.Context, fn func() error) (err error) {
	var changed atomic.Bool
	unsubscribe := s.store.Subscribe(func(core.StoreState) { changed.Store(true) })
	defer func() {
		unsubscribe()
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSomethingWentWrong, r)
		}
		if err == nil {
			return
		}
		if !changed.Load() {
			s.logger.LogError(ctx, "Action failed before changing the plan", err, log.OpUndo, log.ErrorTypeInternal, nil)
			return
		}
		s.logger.LogError(ctx, "Action failed, undoing last change", err, log.OpUndo, log.ErrorTypeInternal, nil)
		s.store.Undo()
	}()
	return fn()
}
