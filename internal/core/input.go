// Package core provides the stream and snapshot types and the parsing of stream form input.
//
// This file turns the raw strings of an add-stream form into a Stream the way the form
// always did: every field is required, years and amounts are floored to whole numbers and
// the addition increase stays fractional.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StreamInput holds the raw form fields of a stream.
type StreamInput struct {
	Name                   string
	StartYear              string
	EndYear                string
	StartValue             string
	AnnualAddition         string
	AnnualAdditionIncrease string
}

// ParseStreamInput converts form input into a validated Stream with the given key.
//
// Missing fields are reported together in a single ValidationError so a form can show
// them at once. Numbers accept both dot and comma decimal separators.
//
// Examples:
//
//	ParseStreamInput(StreamInput{Name: "rent", StartYear: "2024", ...}, key)
//	ParseDecimal("12,5") -> 12.5, nil
func ParseStreamInput(in StreamInput, key int64) (Stream, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"name", in.Name},
		{"startYear", in.StartYear},
		{"endYear", in.EndYear},
		{"startValue", in.StartValue},
		{"annualAddition", in.AnnualAddition},
		{"annualAdditionIncrease", in.AnnualAdditionIncrease},
	}
	var unfilled []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			unfilled = append(unfilled, f.name)
		}
	}
	if len(unfilled) > 0 {
		return Stream{}, &ValidationError{
			Field: strings.Join(unfilled, " "),
			Err:   ErrUnfilledField,
		}
	}

	startYear, err := ParseDecimal(in.StartYear)
	if err != nil {
		return Stream{}, &ValidationError{Field: "startYear", Err: err}
	}
	endYear, err := ParseDecimal(in.EndYear)
	if err != nil {
		return Stream{}, &ValidationError{Field: "endYear", Err: err}
	}
	startValue, err := ParseDecimal(in.StartValue)
	if err != nil {
		return Stream{}, &ValidationError{Field: "startValue", Err: err}
	}
	addition, err := ParseDecimal(in.AnnualAddition)
	if err != nil {
		return Stream{}, &ValidationError{Field: "annualAddition", Err: err}
	}
	increase, err := ParseDecimal(in.AnnualAdditionIncrease)
	if err != nil {
		return Stream{}, &ValidationError{Field: "annualAdditionIncrease", Err: err}
	}

	st := Stream{
		Key:                    key,
		Name:                   in.Name,
		StartYear:              int(startYear.Floor().IntPart()),
		EndYear:                int(endYear.Floor().IntPart()),
		StartValue:             startValue.Floor().InexactFloat64(),
		AnnualAddition:         addition.Floor().InexactFloat64(),
		AnnualAdditionIncrease: increase.InexactFloat64(),
	}
	if err := st.Validate(); err != nil {
		return Stream{}, err
	}
	return st, nil
}

// ParseDecimal parses a finite decimal number, accepting a comma as decimal separator.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, ErrNotFinite)
	}
	return d, nil
}
