package projection

import (
	"math"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"fire/internal/cache"
	"fire/internal/core"
)

func stream(key int64, start, end int, startValue, addition, increase float64) core.Stream {
	return core.Stream{
		Key:                    key,
		Name:                   "s",
		StartYear:              start,
		EndYear:                end,
		StartValue:             startValue,
		AnnualAddition:         addition,
		AnnualAdditionIncrease: increase,
	}
}

func values(s Series) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

func state(roi float64, streams ...core.Stream) core.StoreState {
	s := core.DefaultState(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s.ROI = roi
	for _, st := range streams {
		s.MoneyStreams[st.Key] = st
	}
	return s
}

func TestProjectStreamWorkedExample(t *testing.T) {
	s := stream(1, 2024, 2025, 1000, 100, 0)
	got := ProjectStream(s, 2024, 2025)
	assert.Equal(t, []Point{{Year: 2025, Value: 1100}}, got.Points)

	rows := Aggregate([]Series{got}, 0)
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, Row{
		Year:            2025,
		StartingBalance: 0,
		Deltas:          []float64{1100},
		AdditionSum:     1100,
		Growth:          0,
		EndingBalance:   1100,
	}, rows[0])
}

func TestProjectStreamLinearWithoutIncrease(t *testing.T) {
	s := stream(1, 2020, 2025, 0, 10, 0)
	got := ProjectStream(s, 2018, 2028)

	if got.Points[0].Year != 2019 || got.Points[len(got.Points)-1].Year != 2028 {
		t.Fatalf("unexpected span %v..%v", got.Points[0].Year, got.Points[len(got.Points)-1].Year)
	}
	want := []float64{0, 10, 20, 30, 40, 50, 60, 60, 60, 60}
	assert.Equal(t, want, values(got))
}

func TestProjectStreamCompoundsAddition(t *testing.T) {
	s := stream(1, 2021, 2023, 0, 100, 0.5)
	got := ProjectStream(s, 2020, 2023)
	assert.Equal(t, []float64{100, 250, 475}, values(got))
}

func TestProjectStreamFloorsAtEmission(t *testing.T) {
	s := stream(1, 2021, 2023, 0, 10.5, 0)
	got := ProjectStream(s, 2020, 2023)
	// 10.5 -> 10, 10+10.5 -> 20, 20+10.5 -> 30 (not 31 as flooring at the end would give)
	assert.Equal(t, []float64{10, 20, 30}, values(got))
}

func TestProjectStreamNegativeFloor(t *testing.T) {
	s := stream(1, 2021, 2021, 0, -0.5, 0)
	got := ProjectStream(s, 2020, 2021)
	assert.Equal(t, []float64{-1}, values(got))
}

func TestProjectStreamCarriesStartValueBeforeWindow(t *testing.T) {
	s := stream(1, 2030, 2031, 500, 100, 0)
	got := ProjectStream(s, 2025, 2031)
	assert.Equal(t, []float64{500, 500, 500, 500, 600, 700}, values(got))
}

func TestProjectStreamEmptyWindow(t *testing.T) {
	got := ProjectStream(stream(1, 2024, 2024, 0, 1, 0), 2024, 2024)
	if len(got.Points) != 0 {
		t.Fatalf("expected no points, got %v", got.Points)
	}
}

func TestProjectStreamClampsWindow(t *testing.T) {
	got := ProjectStream(stream(1, math.MinInt, math.MaxInt, 0, 1, 0), math.MinInt, math.MaxInt)
	assert.Equal(t, core.MaxEndYear-core.MinStartYear, len(got.Points))
	assert.Equal(t, core.MinStartYear+1, got.Points[0].Year)
	assert.Equal(t, core.MaxEndYear, got.Points[len(got.Points)-1].Year)
}

func TestProjectUncheckedYearsStayBounded(t *testing.T) {
	r := Project(state(0.07, stream(1, math.MinInt, math.MaxInt, 0, 1, 0), stream(2, 5000, 9000, 0, 1, 0)))
	assert.Equal(t, Window{Start: core.MinStartYear, End: core.MaxEndYear}, r.Window)
	assert.Equal(t, core.MaxEndYear-core.MinStartYear, len(r.Rows))
	for _, s := range r.Series {
		assert.Equal(t, len(r.Rows), len(s.Points))
	}
}

func TestDiffYearMissingYearsAreZero(t *testing.T) {
	s := Series{Points: []Point{{2025, 100}, {2026, 150}}}
	cases := []struct {
		year int
		want float64
	}{
		{2025, 100},
		{2026, 50},
		{2027, -150},
		{2020, 0},
	}
	for _, tc := range cases {
		if got := DiffYear(s, tc.year); got != tc.want {
			t.Fatalf("year %d: expected %v, got %v", tc.year, tc.want, got)
		}
	}
}

func TestAggregateConservesSingleStreamWithoutROI(t *testing.T) {
	s := stream(1, 2020, 2030, 250, 120, 0.03)
	series := ProjectStream(s, 2019, 2035)
	rows := Aggregate([]Series{series}, 0)

	if len(rows) != len(series.Points) {
		t.Fatalf("expected %d rows, got %d", len(series.Points), len(rows))
	}
	for i, row := range rows {
		if row.EndingBalance != series.Points[i].Value {
			t.Fatalf("year %d: expected %v, got %v", row.Year, series.Points[i].Value, row.EndingBalance)
		}
	}
}

func TestAggregateGrowth(t *testing.T) {
	cases := []struct {
		name     string
		addition float64
		growth   []float64
		ending   []float64
	}{
		{"contributions earn half-year credit", 100, []float64{5, 15.5}, []float64{105, 220.5}},
		{"withdrawals earn no credit", -100, []float64{0, -10}, []float64{-100, -210}},
	}
	for _, tc := range cases {
		series := ProjectStream(stream(1, 2024, 2026, 0, tc.addition, 0), 2024, 2026)
		rows := Aggregate([]Series{series}, 0.1)
		if len(rows) != 2 {
			t.Fatalf("%s: expected 2 rows, got %d", tc.name, len(rows))
		}
		for i, row := range rows {
			if !near(row.Growth, tc.growth[i]) || !near(row.EndingBalance, tc.ending[i]) {
				t.Fatalf("%s: row %d expected growth %v end %v, got %v %v",
					tc.name, i, tc.growth[i], tc.ending[i], row.Growth, row.EndingBalance)
			}
		}
		if rows[1].StartingBalance != rows[0].EndingBalance {
			t.Fatalf("%s: starting balance must carry the previous ending balance", tc.name)
		}
	}
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestAggregateNoSeries(t *testing.T) {
	if rows := Aggregate(nil, 0.07); rows != nil {
		t.Fatalf("expected no rows, got %v", rows)
	}
}

func TestProjectZeroStreams(t *testing.T) {
	r := Project(state(0.07))
	if !r.Empty() || r.Rows != nil || r.Series != nil {
		t.Fatalf("expected empty result, got %+v", r)
	}
	if len(r.SumSeries().Points) != 0 {
		t.Fatalf("expected empty sum series")
	}
}

func TestProjectOrdersStreamsByKey(t *testing.T) {
	income := stream(2, 2024, 2026, 0, 1000, 0)
	income.Name = "income"
	rent := stream(1, 2025, 2026, 0, -400, 0)
	rent.Name = "rent"

	r := Project(state(0, income, rent))

	assert.Equal(t, Window{Start: 2024, End: 2026}, r.Window)
	assert.Equal(t, "rent", r.Series[0].Label)
	assert.Equal(t, "income", r.Series[1].Label)
	assert.Equal(t, 2, len(r.Rows))
	assert.Equal(t, []float64{-400, 1000}, r.Rows[0].Deltas)
	assert.Equal(t, 600.0, r.Rows[0].AdditionSum)
	assert.Equal(t, 1200.0, r.Rows[1].EndingBalance)

	sum := r.SumSeries()
	assert.Equal(t, SumLabel, sum.Label)
	assert.Equal(t, []float64{600, 1200}, values(sum))
}

func TestProjectIsDeterministic(t *testing.T) {
	st := state(0.05, stream(1, 2024, 2040, 100, 50, 0.02), stream(2, 2030, 2050, 0, -30, 0.01))
	assert.Equal(t, Project(st), Project(st))
}

func TestMemoReusesResult(t *testing.T) {
	lru := cache.NewLRU[string, Result](4, 0)
	m := NewMemo(lru)
	st := state(0.05, stream(1, 2024, 2030, 0, 10, 0))

	first := m.Project(st)
	again := st.Clone()
	again.AutoSave = true
	again.LastSaved = again.LastSaved.Add(time.Hour)
	second := m.Project(again)

	assert.Equal(t, first, second)
	hits, misses := lru.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)

	changed := st.Clone()
	changed.ROI = 0.06
	if Fingerprint(changed) == Fingerprint(st) {
		t.Fatalf("expected roi to change the fingerprint")
	}
}
