package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"
	"time"
)

const (
	// MinStartYear is the earliest year a stream may start.
	MinStartYear = 1900
	// MaxEndYear is the latest year a stream may end.
	MaxEndYear = 3000
	// DefaultROI is the annual rate of return of a fresh snapshot.
	DefaultROI = 0.07
)

type (
	// Stream is one recurring income or expense line.
	Stream struct {
		Key                    int64   `json:"key" yaml:"key"`
		Name                   string  `json:"name" yaml:"name"`
		StartYear              int     `json:"startYear" yaml:"startYear"`
		EndYear                int     `json:"endYear" yaml:"endYear"`
		StartValue             float64 `json:"startValue" yaml:"startValue"`
		AnnualAddition         float64 `json:"annualAddition" yaml:"annualAddition"`
		AnnualAdditionIncrease float64 `json:"annualAdditionIncrease" yaml:"annualAdditionIncrease"`
	}

	// StoreState is the full shareable snapshot.
	StoreState struct {
		ROI          float64          `json:"roi" yaml:"roi"`
		MoneyStreams map[int64]Stream `json:"moneyStreams" yaml:"moneyStreams"`
		LastSaved    time.Time        `json:"lastSaved" yaml:"lastSaved"`
		AutoSave     bool             `json:"autoSave" yaml:"autoSave"`
	}
)

var (
	ErrEmptyName         = errors.New("empty name")
	ErrStartYearTooEarly = fmt.Errorf("start year cant be less than %d", MinStartYear)
	ErrEndYearTooLate    = fmt.Errorf("end year cant be greater than %d", MaxEndYear)
	ErrEndBeforeStart    = errors.New("end year must not be before start year")
	ErrNotFinite         = errors.New("value is not a finite number")
	ErrUnfilledField     = errors.New("unfilled field")
	ErrKeyMismatch       = errors.New("stream key does not match its map key")
)

// ValidationError reports the first field of a proposed stream that fails its constraints.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Timestamp normalizes t the way snapshots store it: UTC, millisecond precision,
// no monotonic reading.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NewKey derives a fresh stream key from the wall clock.
func NewKey(now time.Time) int64 {
	return now.UnixMilli()
}

// DefaultState returns the empty snapshot a session starts from.
func DefaultState(now time.Time) StoreState {
	return StoreState{
		ROI:          DefaultROI,
		MoneyStreams: map[int64]Stream{},
		LastSaved:    Timestamp(now),
		AutoSave:     false,
	}
}

// Clone returns a copy that shares no mutable memory with s.
func (s StoreState) Clone() StoreState {
	c := s
	c.MoneyStreams = maps.Clone(s.MoneyStreams)
	if c.MoneyStreams == nil {
		c.MoneyStreams = map[int64]Stream{}
	}
	return c
}

// Equal reports whether both snapshots hold the same values.
func (s StoreState) Equal(o StoreState) bool {
	if s.ROI != o.ROI || s.AutoSave != o.AutoSave || !s.LastSaved.Equal(o.LastSaved) {
		return false
	}
	return maps.Equal(s.MoneyStreams, o.MoneyStreams)
}

// Validate checks that every map key matches the stream it holds and that every
// stream satisfies its field constraints.
func (s StoreState) Validate() error {
	for k, st := range s.MoneyStreams {
		if k != st.Key {
			return fmt.Errorf("stream %d: %w", k, ErrKeyMismatch)
		}
		if err := st.Validate(); err != nil {
			return fmt.Errorf("stream %d: %w", k, err)
		}
	}
	return nil
}

// Validate checks the field constraints a stream must satisfy before it is put in a store.
func (st Stream) Validate() error {
	if strings.TrimSpace(st.Name) == "" {
		return &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	if st.StartYear < MinStartYear {
		return &ValidationError{Field: "startYear", Err: ErrStartYearTooEarly}
	}
	if st.EndYear > MaxEndYear {
		return &ValidationError{Field: "endYear", Err: ErrEndYearTooLate}
	}
	if st.EndYear < st.StartYear {
		return &ValidationError{Field: "endYear", Err: ErrEndBeforeStart}
	}
	numbers := []struct {
		field string
		v     float64
	}{
		{"startValue", st.StartValue},
		{"annualAddition", st.AnnualAddition},
		{"annualAdditionIncrease", st.AnnualAdditionIncrease},
	}
	for _, n := range numbers {
		if math.IsNaN(n.v) || math.IsInf(n.v, 0) {
			return &ValidationError{Field: n.field, Err: ErrNotFinite}
		}
	}
	return nil
}

// UnmarshalJSON accepts the legacy "annaulAdditionIncrease" spelling found in old share links.
func (st *Stream) UnmarshalJSON(data []byte) error {
	type plain Stream
	var aux struct {
		plain
		Legacy *float64 `json:"annaulAdditionIncrease"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*st = Stream(aux.plain)
	if aux.Legacy != nil && st.AnnualAdditionIncrease == 0 {
		st.AnnualAdditionIncrease = *aux.Legacy
	}
	return nil
}
