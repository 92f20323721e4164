package codec

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fire/internal/core"
)

// Registry encodes with a default codec and decodes any token whose format it knows,
// so older share links keep working after the default changes.
type Registry struct {
	def    Codec
	codecs map[string]Codec
}

func NewRegistry(def Codec, others ...Codec) *Registry {
	r := &Registry{def: def, codecs: map[string]Codec{def.Name(): def}}
	for _, c := range others {
		r.codecs[c.Name()] = c
	}
	return r
}

func (r *Registry) Name() string { return r.def.Name() }

// Formats lists the known token formats in sorted order.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Encode(ctx context.Context, state core.StoreState) (string, error) {
	return r.def.Encode(ctx, state)
}

func (r *Registry) Decode(ctx context.Context, token string) (core.StoreState, error) {
	name, ok := FormatOf(token)
	if !ok {
		return core.StoreState{}, &DecodeError{Err: ErrMalformed}
	}
	c, ok := r.codecs[name]
	if !ok {
		return core.StoreState{}, &DecodeError{Err: fmt.Errorf("%w %q", ErrUnknownFormat, name)}
	}
	return c.Decode(ctx, token)
}

// New builds a registry whose default is the codec called kind ("json", "deflate" or
// "sealed"). Sealed tokens are only decodable when a prompt is given.
func New(kind string, prompt SecretPrompt) (*Registry, error) {
	available := []Codec{JSON{}, Deflate{}}
	if prompt != nil {
		available = append(available, NewSealed(prompt))
	}

	var def Codec
	switch strings.ToLower(kind) {
	case "json":
		def = JSON{}
	case "", "deflate":
		def = Deflate{}
	case "sealed":
		if prompt == nil {
			return nil, fmt.Errorf("sealed codec needs a secret prompt")
		}
		def = available[2]
	default:
		return nil, fmt.Errorf("unknown codec %q: must be one of [json deflate sealed]", kind)
	}
	return NewRegistry(def, available...), nil
}
