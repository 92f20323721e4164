package codec

import (
	"context"
	"fmt"

	"fire/internal/core"
)

// Serial lets one encode or decode run at a time, so a secret prompt is never shown
// twice concurrently.
type Serial struct {
	next Codec
	sem  chan struct{}
}

func NewSerial(next Codec) *Serial {
	return &Serial{next: next, sem: make(chan struct{}, 1)}
}

func (s *Serial) Name() string { return s.next.Name() }

func (s *Serial) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Serial) release() { <-s.sem }

func (s *Serial) Encode(ctx context.Context, state core.StoreState) (string, error) {
	if err := s.acquire(ctx); err != nil {
		return "", &EncodeError{Codec: s.Name(), Err: fmt.Errorf("wait for codec: %w", err)}
	}
	defer s.release()
	return s.next.Encode(ctx, state)
}

func (s *Serial) Decode(ctx context.Context, token string) (core.StoreState, error) {
	if err := s.acquire(ctx); err != nil {
		return core.StoreState{}, &DecodeError{Codec: s.Name(), Err: fmt.Errorf("wait for codec: %w", err)}
	}
	defer s.release()
	return s.next.Decode(ctx, token)
}
