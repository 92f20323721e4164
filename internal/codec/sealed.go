package codec

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"fire/internal/core"
)

const (
	NameSealed = "s1"

	saltSize         = 16
	keySize          = 32
	defaultKDFRounds = 100_000
)

// SecretPrompt asks the user for the share secret. Encode and decode each prompt on their
// own; the secret is never stored in a token.
type SecretPrompt func(ctx context.Context) (string, error)

// Sealed compresses the snapshot and encrypts it with AES-GCM under a key derived from a
// prompted secret. The token carries salt and nonce, never the secret.
type Sealed struct {
	prompt SecretPrompt
	rounds int
	rand   io.Reader
}

type SealedOption func(*Sealed)

// WithKDFRounds overrides the PBKDF2 iteration count.
func WithKDFRounds(n int) SealedOption {
	return func(s *Sealed) { s.rounds = n }
}

func NewSealed(prompt SecretPrompt, opts ...SealedOption) *Sealed {
	s := &Sealed{prompt: prompt, rounds: defaultKDFRounds, rand: rand.Reader}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sealed) Name() string { return NameSealed }

func (s *Sealed) Encode(ctx context.Context, state core.StoreState) (string, error) {
	secret, err := s.ask(ctx)
	if err != nil {
		return "", &EncodeError{Codec: NameSealed, Err: err}
	}
	data, err := marshalState(state)
	if err != nil {
		return "", &EncodeError{Codec: NameSealed, Err: err}
	}
	packed, err := deflate(data)
	if err != nil {
		return "", &EncodeError{Codec: NameSealed, Err: err}
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(s.rand, salt); err != nil {
		return "", &EncodeError{Codec: NameSealed, Err: fmt.Errorf("read salt: %w", err)}
	}
	aead, err := s.aead(secret, salt)
	if err != nil {
		return "", &EncodeError{Codec: NameSealed, Err: err}
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return "", &EncodeError{Codec: NameSealed, Err: fmt.Errorf("read nonce: %w", err)}
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(packed)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, packed, []byte(NameSealed))
	return wrap(NameSealed, out), nil
}

func (s *Sealed) Decode(ctx context.Context, token string) (core.StoreState, error) {
	raw, err := unwrap(NameSealed, token)
	if err != nil {
		return core.StoreState{}, err
	}
	secret, err := s.ask(ctx)
	if err != nil {
		return core.StoreState{}, &DecodeError{Codec: NameSealed, Err: err}
	}

	if len(raw) < saltSize {
		return core.StoreState{}, &DecodeError{Codec: NameSealed, Err: fmt.Errorf("%w: truncated payload", ErrMalformed)}
	}
	salt, rest := raw[:saltSize], raw[saltSize:]
	aead, err := s.aead(secret, salt)
	if err != nil {
		return core.StoreState{}, &DecodeError{Codec: NameSealed, Err: err}
	}
	if len(rest) < aead.NonceSize()+aead.Overhead() {
		return core.StoreState{}, &DecodeError{Codec: NameSealed, Err: fmt.Errorf("%w: truncated payload", ErrMalformed)}
	}
	nonce, sealed := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	packed, err := aead.Open(nil, nonce, sealed, []byte(NameSealed))
	if err != nil {
		// GCM cannot tell a wrong secret from a tampered payload.
		return core.StoreState{}, &DecodeError{Codec: NameSealed, Err: ErrWrongSecret}
	}
	data, err := inflate(packed)
	if err != nil {
		return core.StoreState{}, &DecodeError{Codec: NameSealed, Err: err}
	}
	return unmarshalState(NameSealed, data)
}

func (s *Sealed) ask(ctx context.Context) (string, error) {
	if s.prompt == nil {
		return "", ErrPromptCancelled
	}
	secret, err := s.prompt(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPromptCancelled, err)
	}
	return secret, nil
}

func (s *Sealed) aead(secret string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(secret), salt, s.rounds, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
