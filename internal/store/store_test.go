package store

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"fire/internal/core"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newStore() *Store {
	return New(WithClock(func() time.Time { return t0 }))
}

func stream(key int64, name string) core.Stream {
	return core.Stream{Key: key, Name: name, StartYear: 2024, EndYear: 2030, AnnualAddition: 100}
}

func keys(s core.StoreState) []int64 {
	out := []int64{}
	for _, k := range []int64{1, 2, 3, 4, 5} {
		if _, ok := s.MoneyStreams[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func TestNewStartsFromDefault(t *testing.T) {
	s := newStore()
	if !s.State().Equal(core.DefaultState(t0)) {
		t.Fatalf("expected default snapshot, got %+v", s.State())
	}
	assert.Equal(t, 1, s.HistoryLen())
}

func TestPutIsCopyOnWrite(t *testing.T) {
	s := newStore()
	before := s.State()

	var seen []core.StoreState
	s.Subscribe(func(st core.StoreState) { seen = append(seen, st) })

	s.Put(stream(1, "salary"))
	s.Put(stream(2, "rent"))

	if len(before.MoneyStreams) != 0 {
		t.Fatalf("earlier snapshot was mutated: %+v", before.MoneyStreams)
	}
	assert.Equal(t, 2, len(seen))
	assert.Equal(t, []int64{1}, keys(seen[0]))
	assert.Equal(t, []int64{1, 2}, keys(seen[1]))

	seen[1].MoneyStreams[3] = stream(3, "leak")
	if _, ok := s.State().MoneyStreams[3]; ok {
		t.Fatalf("subscriber copy leaked into the store")
	}
}

func TestPutIsIdempotent(t *testing.T) {
	s := newStore()
	x := stream(1, "salary")
	s.Put(x)
	after := s.State()
	s.Put(x)
	if !s.State().Equal(after) {
		t.Fatalf("second put changed state")
	}
}

func TestPutReplacesWholeRecord(t *testing.T) {
	s := newStore()
	s.Put(stream(1, "salary"))
	replaced := core.Stream{Key: 1, Name: "bonus", StartYear: 1, EndYear: 0}
	s.Put(replaced)
	assert.Equal(t, replaced, s.State().MoneyStreams[1])
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	s := newStore()
	s.Put(stream(1, "salary"))
	calls := 0
	s.Subscribe(func(core.StoreState) { calls++ })

	s.Delete(42)
	s.Delete(1)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, len(s.State().MoneyStreams))
}

func TestSubscribersRunInRegistrationOrder(t *testing.T) {
	s := newStore()
	var order []string
	s.Subscribe(func(core.StoreState) { order = append(order, "first") })
	cancel := s.Subscribe(func(core.StoreState) { order = append(order, "second") })
	s.Subscribe(func(core.StoreState) { order = append(order, "third") })

	s.SetROI(0.05)
	assert.Equal(t, []string{"first", "second", "third"}, order)

	cancel()
	cancel()
	order = nil
	s.SetAutoSave(true)
	assert.Equal(t, []string{"first", "third"}, order)

	st := s.State()
	assert.Equal(t, 0.05, st.ROI)
	assert.Equal(t, true, st.AutoSave)
}

func TestSubscriberMayMutate(t *testing.T) {
	s := newStore()
	saved := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Subscribe(func(st core.StoreState) {
		if st.AutoSave && !st.LastSaved.Equal(saved) {
			s.MarkSaved(saved)
		}
	})

	s.SetAutoSave(true)

	if !s.State().LastSaved.Equal(saved) {
		t.Fatalf("expected re-entrant MarkSaved to apply, got %v", s.State().LastSaved)
	}
}

func TestUndoSingleMutation(t *testing.T) {
	s := newStore()
	s.Put(stream(1, "salary"))

	s.Undo()
	if !s.State().Equal(core.DefaultState(t0)) {
		t.Fatalf("expected default after undo, got %+v", s.State())
	}

	s.Undo()
	if !s.State().Equal(core.DefaultState(t0)) {
		t.Fatalf("expected default after second undo, got %+v", s.State())
	}
}

func TestUndoDepthIsBounded(t *testing.T) {
	s := newStore()
	for k := int64(1); k <= 4; k++ {
		s.Put(stream(k, "s"))
	}
	assert.Equal(t, HistorySize, s.HistoryLen())

	s.Undo()
	assert.Equal(t, []int64{1, 2, 3}, keys(s.State()))
	s.Undo()
	assert.Equal(t, []int64{1, 2}, keys(s.State()))
	s.Undo()
	assert.Equal(t, []int64{}, keys(s.State()))
}

func TestUndoNotifiesSubscribers(t *testing.T) {
	s := newStore()
	s.Put(stream(1, "salary"))
	var got []core.StoreState
	s.Subscribe(func(st core.StoreState) { got = append(got, st) })

	s.Undo()
	assert.Equal(t, 1, len(got))
	assert.Equal(t, 0, len(got[0].MoneyStreams))
}

func TestResetAndLoad(t *testing.T) {
	s := newStore()
	snap := core.StoreState{
		ROI:          0.04,
		MoneyStreams: map[int64]core.Stream{5: stream(5, "pension")},
		LastSaved:    t0.Add(-time.Hour),
		AutoSave:     true,
	}
	s.Load(snap)
	if !s.State().Equal(snap) {
		t.Fatalf("expected loaded snapshot, got %+v", s.State())
	}

	snap.MoneyStreams[6] = stream(6, "later")
	if _, ok := s.State().MoneyStreams[6]; ok {
		t.Fatalf("loaded snapshot shares memory with the caller")
	}

	s.Reset()
	if !s.State().Equal(core.DefaultState(t0)) {
		t.Fatalf("expected default after reset")
	}
}

func TestDefaultROIAppliesToEveryDefaultSnapshot(t *testing.T) {
	s := New(WithClock(func() time.Time { return t0 }), WithDefaultROI(0.04))
	if got := s.State().ROI; got != 0.04 {
		t.Fatalf("expected initial roi 0.04, got %v", got)
	}

	s.SetROI(0.09)
	s.Reset()
	if got := s.State().ROI; got != 0.04 {
		t.Fatalf("expected reset roi 0.04, got %v", got)
	}

	s.Undo()
	s.Undo()
	if got := s.State().ROI; got != 0.04 {
		t.Fatalf("expected exhausted undo roi 0.04, got %v", got)
	}
}
