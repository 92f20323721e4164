package codec

import (
	"bytes"
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"io"

	"fire/internal/core"
)

const (
	NameJSON    = "j1"
	NameDeflate = "z1"

	// maxInflated bounds decompressed payloads.
	maxInflated = 4 << 20
)

// JSON is the plain structured codec: base64url of the snapshot's JSON.
type JSON struct{}

func (JSON) Name() string { return NameJSON }

func (JSON) Encode(_ context.Context, state core.StoreState) (string, error) {
	data, err := marshalState(state)
	if err != nil {
		return "", &EncodeError{Codec: NameJSON, Err: err}
	}
	return wrap(NameJSON, data), nil
}

func (JSON) Decode(_ context.Context, token string) (core.StoreState, error) {
	data, err := unwrap(NameJSON, token)
	if err != nil {
		return core.StoreState{}, err
	}
	return unmarshalState(NameJSON, data)
}

// Deflate compresses the JSON before encoding it, which keeps share links short.
type Deflate struct{}

func (Deflate) Name() string { return NameDeflate }

func (Deflate) Encode(_ context.Context, state core.StoreState) (string, error) {
	data, err := marshalState(state)
	if err != nil {
		return "", &EncodeError{Codec: NameDeflate, Err: err}
	}
	packed, err := deflate(data)
	if err != nil {
		return "", &EncodeError{Codec: NameDeflate, Err: err}
	}
	return wrap(NameDeflate, packed), nil
}

func (Deflate) Decode(_ context.Context, token string) (core.StoreState, error) {
	packed, err := unwrap(NameDeflate, token)
	if err != nil {
		return core.StoreState{}, err
	}
	data, err := inflate(packed)
	if err != nil {
		return core.StoreState{}, &DecodeError{Codec: NameDeflate, Err: err}
	}
	return unmarshalState(NameDeflate, data)
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(packed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(packed))
	defer r.Close()
	data, err := io.ReadAll(io.LimitReader(r, maxInflated+1))
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated payload", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(data) > maxInflated {
		return nil, fmt.Errorf("%w: payload too large", ErrMalformed)
	}
	return data, nil
}
