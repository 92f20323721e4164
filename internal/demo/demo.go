// Package demo provides the sample plan a session can start from.
package demo

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"fire/internal/core"
)

//go:embed demo.yaml
var demoYAML []byte

type document struct {
	ROI     float64       `yaml:"roi"`
	Streams []core.Stream `yaml:"streams"`
}

// Load returns the embedded demo snapshot stamped with now.
func Load(now time.Time) (core.StoreState, error) {
	return Parse(demoYAML, now)
}

// Parse decodes a plan document. Unknown fields are rejected and every stream must pass
// validation.
func Parse(data []byte, now time.Time) (core.StoreState, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return core.StoreState{}, fmt.Errorf("decode demo plan: %w", err)
	}

	state := core.DefaultState(now)
	state.ROI = doc.ROI
	for _, s := range doc.Streams {
		if err := s.Validate(); err != nil {
			return core.StoreState{}, fmt.Errorf("demo stream %q: %w", s.Name, err)
		}
		if _, dup := state.MoneyStreams[s.Key]; dup {
			return core.StoreState{}, fmt.Errorf("demo stream %q: duplicate key %d", s.Name, s.Key)
		}
		state.MoneyStreams[s.Key] = s
	}
	return state, nil
}
