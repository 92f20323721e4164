// Package codec maps store snapshots to URL-safe share tokens and back.
//
// A token is "<name>.<payload>" where name identifies the codec and its version and the
// payload is unpadded base64url, so tokens only contain [A-Za-z0-9._-] and can travel in
// a query string without percent-encoding. Codecs are swappable: a Registry decodes any
// token whose name it knows and encodes with one chosen default.
package codec

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fire/internal/core"
)

// Codec is one reversible token format.
type Codec interface {
	Name() string
	Encode(ctx context.Context, state core.StoreState) (string, error)
	Decode(ctx context.Context, token string) (core.StoreState, error)
}

var (
	ErrMalformed       = errors.New("malformed token")
	ErrUnknownFormat   = errors.New("unknown token format")
	ErrWrongSecret     = errors.New("wrong secret")
	ErrPromptCancelled = errors.New("secret prompt cancelled")
)

// DecodeError means a token cannot be turned back into a snapshot. Callers treat it as an
// unusable share link and show a generic message; Err carries the detail for logs.
type DecodeError struct {
	Codec string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Codec == "" {
		return "decode token: " + e.Err.Error()
	}
	return "decode " + e.Codec + " token: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError means the environment could not complete an encode, for example because a
// secret prompt was cancelled. It is never fatal; state is left as it was.
type EncodeError struct {
	Codec string
	Err   error
}

func (e *EncodeError) Error() string {
	return "encode " + e.Codec + " token: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Messages shown to users. Internal detail stays in logs.
const (
	MsgUnableToLoad = "unable to load save, check you copied the full url"
	MsgUnableToSave = "unable to save"
)

// FormatOf returns the codec name a token claims, without validating the payload.
func FormatOf(token string) (string, bool) {
	name, _, ok := strings.Cut(token, ".")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

func wrap(name string, payload []byte) string {
	return name + "." + base64.RawURLEncoding.EncodeToString(payload)
}

func unwrap(name, token string) ([]byte, error) {
	got, payload, ok := strings.Cut(token, ".")
	if !ok {
		return nil, &DecodeError{Codec: name, Err: ErrMalformed}
	}
	if got != name {
		return nil, &DecodeError{Codec: name, Err: fmt.Errorf("%w %q", ErrUnknownFormat, got)}
	}
	data, err := base64.RawURLEncoding.Strict().DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Codec: name, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return data, nil
}

func marshalState(state core.StoreState) ([]byte, error) {
	return json.Marshal(state)
}

func unmarshalState(name string, data []byte) (core.StoreState, error) {
	var state core.StoreState
	if err := json.Unmarshal(data, &state); err != nil {
		return core.StoreState{}, &DecodeError{Codec: name, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	if state.MoneyStreams == nil {
		state.MoneyStreams = map[int64]core.Stream{}
	}
	if err := state.Validate(); err != nil {
		return core.StoreState{}, &DecodeError{Codec: name, Err: err}
	}
	return state, nil
}
