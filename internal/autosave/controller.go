// Package autosave mirrors store changes into a Location as share tokens.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fire/internal/codec"
	"fire/internal/core"
	"fire/internal/log"
	"fire/internal/store"
)

// DefaultCooldown is the minimum time between two automatic saves, measured from the
// snapshot's lastSaved.
const DefaultCooldown = time.Second

// ErrUnusableShareLink is returned by Restore when the token in the location cannot be
// decoded. The store keeps its previous state.
var ErrUnusableShareLink = errors.New(codec.MsgUnableToLoad)

// Phase is the controller's position in its save cycle.
type Phase int

const (
	Idle Phase = iota
	Encoding
	Committing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Encoding:
		return "encoding"
	case Committing:
		return "committing"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Commit describes a token written into the location.
type Commit struct {
	Token   string
	Codec   string
	Streams int
	At      time.Time
	Manual  bool
}

// CommitHook observes commits, for example to publish them.
type CommitHook func(ctx context.Context, c Commit)

type Controller struct {
	store    *store.Store
	codec    codec.Codec
	location Location
	cooldown time.Duration
	now      func() time.Time
	logger   *log.Logger
	hooks    []CommitHook

	mu     sync.Mutex
	phase  Phase
	ctx    context.Context
	cancel func()
}

type Option func(*Controller)

func WithCooldown(d time.Duration) Option {
	return func(c *Controller) { c.cooldown = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l.WithComponent(log.ComponentAutosave) }
}

func WithCommitHook(h CommitHook) Option {
	return func(c *Controller) { c.hooks = append(c.hooks, h) }
}

func New(st *store.Store, cd codec.Codec, loc Location, opts ...Option) *Controller {
	c := &Controller{
		store:    st,
		codec:    cd,
		location: loc,
		cooldown: DefaultCooldown,
		now:      time.Now,
		logger:   log.Nop(),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start subscribes to the store. ctx is used for encodes triggered by store changes.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	c.ctx = ctx
	c.cancel = c.store.Subscribe(c.onChange)
}

// Stop unsubscribes from the store.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Phase reports where the controller is in its save cycle.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// begin moves from Idle to Encoding; false means a save is already running.
func (c *Controller) begin() (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Idle {
		return nil, false
	}
	c.phase = Encoding
	return c.ctx, true
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

func (c *Controller) onChange(state core.StoreState) {
	if !state.AutoSave {
		return
	}
	now := c.now()
	if now.Sub(state.LastSaved) <= c.cooldown {
		return
	}
	ctx, ok := c.begin()
	if !ok {
		c.logger.Debug("Save already running, skipping", log.FieldOperation, log.OpCommit)
		return
	}
	if _, err := c.save(ctx, state, false); err != nil {
		c.logger.LogError(ctx, codec.MsgUnableToSave, err, log.OpCommit, errorType(err), nil)
	}
}

// ShareResult tells a caller what Share did.
type ShareResult struct {
	Token string
	// Unchanged is true when the location already held this exact token.
	Unchanged bool
}

// Share saves the current state now, ignoring the autosave flag and the cooldown.
func (c *Controller) Share(ctx context.Context) (ShareResult, error) {
	if _, ok := c.begin(); !ok {
		return ShareResult{}, &codec.EncodeError{Codec: c.codec.Name(), Err: errors.New("save already running")}
	}
	return c.save(ctx, c.store.State(), true)
}

// save runs Encoding then Committing and returns to Idle. The caller has moved the
// controller to Encoding.
func (c *Controller) save(ctx context.Context, state core.StoreState, manual bool) (ShareResult, error) {
	token, err := c.codec.Encode(ctx, state)
	if err != nil {
		c.setPhase(Idle)
		return ShareResult{}, err
	}

	current, ok, err := c.location.Current(ctx)
	if err != nil {
		c.setPhase(Idle)
		return ShareResult{}, fmt.Errorf("read location: %w", err)
	}
	if ok && current == token {
		c.setPhase(Idle)
		c.logger.DebugContext(ctx, "Token unchanged, nothing to commit", log.NewFields().WithToken(c.codec.Name(), len(token)).ToSlice()...)
		return ShareResult{Token: token, Unchanged: true}, nil
	}

	c.setPhase(Committing)
	if err := c.location.Push(ctx, token); err != nil {
		c.setPhase(Idle)
		return ShareResult{}, fmt.Errorf("push location: %w", err)
	}
	// MarkSaved notifies subscribers while still Committing, so it cannot start a save
	// of its own.
	at := c.now()
	c.store.MarkSaved(at)
	c.setPhase(Idle)

	commit := Commit{
		Token:   token,
		Codec:   c.codec.Name(),
		Streams: len(state.MoneyStreams),
		At:      core.Timestamp(at),
		Manual:  manual,
	}
	c.logger.InfoContext(ctx, "State saved to location", log.NewFields().
		WithToken(commit.Codec, len(token)).
		WithSnapshot(len(state.MoneyStreams), state.ROI, state.AutoSave).
		WithOperation(log.OpCommit).ToSlice()...)
	for _, h := range c.hooks {
		h(ctx, commit)
	}
	return ShareResult{Token: token}, nil
}

// Restore loads the snapshot encoded in the location, if there is one. It reports
// whether a snapshot was loaded. A token that cannot be decoded leaves the store as it
// was and returns ErrUnusableShareLink.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	token, ok, err := c.location.Current(ctx)
	if err != nil {
		return false, fmt.Errorf("read location: %w", err)
	}
	if !ok {
		return false, nil
	}
	state, err := c.codec.Decode(ctx, token)
	if err != nil {
		c.logger.LogError(ctx, "Failed to restore state from location", err, log.OpRestore, errorType(err), nil)
		return false, fmt.Errorf("%w: %w", ErrUnusableShareLink, err)
	}
	c.store.Load(state)
	c.logger.InfoContext(ctx, "State restored from location", log.NewFields().
		WithSnapshot(len(state.MoneyStreams), state.ROI, state.AutoSave).
		WithOperation(log.OpRestore).ToSlice()...)
	return true, nil
}

func errorType(err error) string {
	var derr *codec.DecodeError
	var eerr *codec.EncodeError
	switch {
	case errors.As(err, &derr):
		return log.ErrorTypeDecode
	case errors.As(err, &eerr):
		return log.ErrorTypeEncode
	}
	return log.ErrorTypeInternal
}
