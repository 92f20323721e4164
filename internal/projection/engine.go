// Package projection derives yearly series and aggregate balance rows from a snapshot.
//
// Every function here is pure: identical inputs always produce identical outputs, and
// nothing reads or writes shared state.
package projection

import (
	"math"
	"slices"

	"fire/internal/core"
)

type (
	// Point is one year of a projected series.
	Point struct {
		Year  int
		Value float64
	}

	// Series is the projection of one stream over the global window.
	Series struct {
		Key    int64
		Label  string
		Points []Point
	}

	// Row is one year of the aggregate.
	Row struct {
		Year            int
		StartingBalance float64
		Deltas          []float64 // per stream, in series order
		AdditionSum     float64
		Growth          float64
		EndingBalance   float64
	}

	// Window is the shared year span of all streams.
	Window struct {
		Start int
		End   int
	}

	// Result bundles everything a chart or table needs.
	Result struct {
		Window Window
		Series []Series
		Rows   []Row
	}
)

// SumLabel labels the aggregate series.
const SumLabel = "sum"

// GlobalWindow returns the min start year and max end year over streams, clamped to
// the years a stream may cover. ok is false when there are no streams.
func GlobalWindow(streams []core.Stream) (w Window, ok bool) {
	if len(streams) == 0 {
		return Window{}, false
	}
	w = Window{Start: math.MaxInt, End: 0}
	for _, s := range streams {
		w.Start = min(w.Start, s.StartYear)
		w.End = max(w.End, s.EndYear)
	}
	return w.clamp(), true
}

// clamp bounds the window to MinStartYear..MaxEndYear so an unchecked stream cannot
// ask for an unbounded number of points.
func (w Window) clamp() Window {
	w.Start = min(max(w.Start, core.MinStartYear), core.MaxEndYear)
	w.End = min(max(w.End, core.MinStartYear), core.MaxEndYear)
	return w
}

// ProjectStream emits one point per year from globalStart+1 to globalEnd inclusive.
//
// Inside the stream window the value grows by the current addition, and the addition
// then grows by AnnualAdditionIncrease. Outside it the previous value carries forward.
// Values are floored as they are emitted and the floored value feeds the next year.
// The window is clamped to MinStartYear..MaxEndYear.
func ProjectStream(s core.Stream, globalStart, globalEnd int) Series {
	out := Series{Key: s.Key, Label: s.Name}
	w := Window{Start: globalStart, End: globalEnd}.clamp()
	globalStart, globalEnd = w.Start, w.End
	if globalEnd > globalStart {
		out.Points = make([]Point, 0, globalEnd-globalStart)
	}
	addition := s.AnnualAddition
	prev := s.StartValue
	for year := globalStart + 1; year <= globalEnd; year++ {
		value := prev
		if year >= s.StartYear && year <= s.EndYear {
			value = prev + addition
			addition += addition * s.AnnualAdditionIncrease
		}
		value = math.Floor(value)
		out.Points = append(out.Points, Point{Year: year, Value: value})
		prev = value
	}
	return out
}

// Value returns the series value at year, or 0 when the year is not covered.
func (s Series) Value(year int) float64 {
	if n := len(s.Points); n > 0 {
		i := year - s.Points[0].Year
		if i >= 0 && i < n && s.Points[i].Year == year {
			return s.Points[i].Value
		}
	}
	for _, p := range s.Points {
		if p.Year == year {
			return p.Value
		}
	}
	return 0
}

// DiffYear is the yearly delta value(year) - value(year-1); missing years count as 0.
func DiffYear(s Series, year int) float64 {
	return s.Value(year) - s.Value(year-1)
}

// Aggregate combines series into one running balance compounding at roi.
//
// Growth is roi on the carried balance plus a half-year credit on net positive
// contributions; net withdrawals earn no mid-year credit. The rule is kept as the
// calculator has always applied it, even though it is asymmetric.
func Aggregate(series []Series, roi float64) []Row {
	if len(series) == 0 || len(series[0].Points) == 0 {
		return nil
	}
	first := series[0].Points[0].Year
	last := series[0].Points[len(series[0].Points)-1].Year

	rows := make([]Row, 0, last-first+1)
	balance := 0.0
	for year := first; year <= last; year++ {
		row := Row{
			Year:            year,
			StartingBalance: balance,
			Deltas:          make([]float64, len(series)),
		}
		for i, s := range series {
			row.Deltas[i] = DiffYear(s, year)
			row.AdditionSum += row.Deltas[i]
		}
		row.Growth = balance*roi + max(row.AdditionSum*0.5*roi, 0)
		row.EndingBalance = balance + row.AdditionSum + row.Growth
		balance = row.EndingBalance
		rows = append(rows, row)
	}
	return rows
}

// Streams lists the snapshot's streams in ascending key order.
func Streams(state core.StoreState) []core.Stream {
	streams := make([]core.Stream, 0, len(state.MoneyStreams))
	for _, s := range state.MoneyStreams {
		streams = append(streams, s)
	}
	slices.SortFunc(streams, func(a, b core.Stream) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return streams
}

// Project runs the whole pipeline over a snapshot. A snapshot without streams yields an
// empty Result, which callers treat as nothing to show.
func Project(state core.StoreState) Result {
	streams := Streams(state)
	w, ok := GlobalWindow(streams)
	if !ok {
		return Result{}
	}
	series := make([]Series, len(streams))
	for i, s := range streams {
		series[i] = ProjectStream(s, w.Start, w.End)
	}
	return Result{
		Window: w,
		Series: series,
		Rows:   Aggregate(series, state.ROI),
	}
}

// Empty reports whether there is nothing to show.
func (r Result) Empty() bool {
	return len(r.Series) == 0
}

// SumSeries returns the aggregate ending balances as a series labelled SumLabel.
func (r Result) SumSeries() Series {
	out := Series{Label: SumLabel, Points: make([]Point, len(r.Rows))}
	for i, row := range r.Rows {
		out.Points[i] = Point{Year: row.Year, Value: row.EndingBalance}
	}
	return out
}
