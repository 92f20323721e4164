package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"fire/internal/autosave"
	"fire/internal/codec"
	"fire/internal/core"
	"fire/internal/log"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func openSession(t *testing.T, loc autosave.Location, opts ...func(*Options)) (*Session, *time.Time) {
	t.Helper()
	now := t0
	o := DefaultOptions(codec.Deflate{}, loc)
	o.Clock = func() time.Time { return now }
	for _, fn := range opts {
		fn(&o)
	}
	s, err := Open(log.WithLogger(context.Background(), log.Nop()), o)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)
	return s, &now
}

func newLocation(t *testing.T, rawURL string) *autosave.URLLocation {
	t.Helper()
	loc, err := autosave.NewURLLocation(rawURL, "")
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	return loc
}

func form(name string) core.StreamInput {
	return core.StreamInput{
		Name:                   name,
		StartYear:              "2024",
		EndYear:                "2030",
		StartValue:             "0",
		AnnualAddition:         "1000",
		AnnualAdditionIncrease: "0",
	}
}

func TestOpenRequiresCodecAndLocation(t *testing.T) {
	if _, err := Open(context.Background(), Options{Location: newLocation(t, "https://x/")}); err == nil {
		t.Fatalf("expected missing codec error")
	}
	if _, err := Open(context.Background(), Options{Codec: codec.JSON{}}); err == nil {
		t.Fatalf("expected missing location error")
	}
}

func TestOpenAppliesDefaultROI(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://x/"), func(o *Options) { o.DefaultROI = 0.05 })
	assert.Equal(t, 0.05, s.State().ROI)
}

func TestOpenHonoursZeroROI(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://x/"), func(o *Options) { o.DefaultROI = 0 })
	assert.Equal(t, 0.0, s.State().ROI)
}

func TestOpenHonoursZeroCooldown(t *testing.T) {
	loc := newLocation(t, "https://x/")
	s, now := openSession(t, loc, func(o *Options) { o.Cooldown = 0 })

	*now = t0.Add(time.Millisecond)
	s.Store().SetAutoSave(true)
	assert.Equal(t, 2, len(loc.History()))

	// one second of cooldown would have skipped this save
	*now = t0.Add(2 * time.Millisecond)
	if _, err := s.AddStream(form("salary")); err != nil {
		t.Fatalf("add: %v", err)
	}
	assert.Equal(t, 3, len(loc.History()))
}

func TestOpenRejectsNegativeCooldown(t *testing.T) {
	o := DefaultOptions(codec.JSON{}, newLocation(t, "https://x/"))
	o.Cooldown = -time.Second
	if _, err := Open(context.Background(), o); err == nil {
		t.Fatalf("expected negative cooldown error")
	}
}

func TestOpenTakesLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})})

	s, err := Open(log.WithLogger(context.Background(), logger), DefaultOptions(codec.JSON{}, newLocation(t, "https://x/")))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)

	if out := buf.String(); !strings.Contains(out, "Session opened") || !strings.Contains(out, "component=session") {
		t.Fatalf("expected session log on the context logger, got %q", out)
	}
}

func TestAddStreamUsesTimeKeys(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://x/"))

	first, err := s.AddStream(form("salary"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := s.AddStream(form("rent"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	assert.Equal(t, t0.UnixMilli(), first.Key)
	assert.Equal(t, t0.UnixMilli()+1, second.Key)
	assert.Equal(t, 2, len(s.State().MoneyStreams))
}

func TestAddStreamRejectsInvalidForm(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://x/"))
	in := form("bad")
	in.StartYear = "1800"

	_, err := s.AddStream(in)
	if !errors.Is(err, core.ErrStartYearTooEarly) {
		t.Fatalf("expected start year error, got %v", err)
	}
	assert.Equal(t, 0, len(s.State().MoneyStreams))
}

func TestReplaceStream(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://x/"))
	st, _ := s.AddStream(form("salary"))

	st.AnnualAddition = 2000
	if err := s.ReplaceStream(st); err != nil {
		t.Fatalf("replace: %v", err)
	}
	assert.Equal(t, 2000.0, s.State().MoneyStreams[st.Key].AnnualAddition)

	if err := s.ReplaceStream(core.Stream{Key: 99, Name: "x", StartYear: 2000, EndYear: 2000}); err == nil {
		t.Fatalf("expected not found error")
	}
	st.EndYear = 1999
	if err := s.ReplaceStream(st); !errors.Is(err, core.ErrEndBeforeStart) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadDemoAndProject(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://x/"))
	if err := s.LoadDemo(); err != nil {
		t.Fatalf("demo: %v", err)
	}
	r := s.Projection()
	if r.Empty() {
		t.Fatalf("expected demo projection")
	}
	assert.Equal(t, 4, len(r.Series))
	assert.Equal(t, r, s.Projection())
}

func TestShareAndRestoreAcrossSessions(t *testing.T) {
	loc := newLocation(t, "https://fire.example/")
	s, _ := openSession(t, loc)
	if _, err := s.AddStream(form("salary")); err != nil {
		t.Fatalf("add: %v", err)
	}
	res, err := s.Share(context.Background())
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if res.Unchanged {
		t.Fatalf("expected a new token")
	}

	reopened, _ := openSession(t, loc)
	ok, err := reopened.Restore(context.Background())
	if err != nil || !ok {
		t.Fatalf("restore: ok=%v err=%v", ok, err)
	}
	if !reopened.State().Equal(s.State()) {
		t.Fatalf("expected restored snapshot %+v, got %+v", s.State(), reopened.State())
	}
}

func TestRestoreUnusableLinkKeepsDemo(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://fire.example/?state=j1.%21%21"))
	if err := s.LoadDemo(); err != nil {
		t.Fatalf("demo: %v", err)
	}
	before := s.State()

	_, err := s.Restore(context.Background())
	if !errors.Is(err, autosave.ErrUnusableShareLink) {
		t.Fatalf("expected unusable link, got %v", err)
	}
	assert.Equal(t, codec.MsgUnableToLoad, autosave.ErrUnusableShareLink.Error())
	if !s.State().Equal(before) {
		t.Fatalf("store must be left untouched")
	}
}

func TestRecoverUndoesOnError(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://x/"))
	boom := errors.New("boom")

	err := s.Recover(context.Background(), func() error {
		s.Store().SetROI(0.5)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	assert.Equal(t, core.DefaultROI, s.State().ROI)
}

func TestRecoverKeepsStateWhenNothingChanged(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://x/"))
	s.Store().SetROI(0.03)
	boom := errors.New("render failed")

	err := s.Recover(context.Background(), func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected render failure, got %v", err)
	}
	assert.Equal(t, 0.03, s.State().ROI)
}

func TestRecoverUndoesOnPanic(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://x/"))
	s.Store().SetROI(0.03)

	err := s.Recover(context.Background(), func() error {
		s.Store().SetROI(0.5)
		panic("render failed")
	})
	if !errors.Is(err, ErrSomethingWentWrong) {
		t.Fatalf("expected something went wrong, got %v", err)
	}
	assert.Equal(t, 0.03, s.State().ROI)
}

func TestRecoverPassesThroughSuccess(t *testing.T) {
	s, _ := openSession(t, newLocation(t, "https://x/"))
	err := s.Recover(context.Background(), func() error {
		s.Store().SetROI(0.5)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	assert.Equal(t, 0.5, s.State().ROI)
}

func TestSaveReusesAutosaveCommit(t *testing.T) {
	ctx := context.Background()
	loc := newLocation(t, "https://x/")
	s, now := openSession(t, loc)

	*now = t0.Add(time.Minute)
	s.Store().SetAutoSave(true)
	*now = t0.Add(2 * time.Minute)
	if _, err := s.AddStream(form("salary")); err != nil {
		t.Fatalf("add: %v", err)
	}
	assert.Equal(t, 3, len(loc.History()))

	res, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	current, _, _ := loc.Current(ctx)
	assert.Equal(t, true, res.Unchanged)
	assert.Equal(t, current, res.Token)
	assert.Equal(t, 3, len(loc.History()))

	// inside the cooldown autosave skips, so Save has to commit
	*now = now.Add(10 * time.Millisecond)
	s.Store().SetROI(0.05)
	res, err = s.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	assert.Equal(t, false, res.Unchanged)
	assert.Equal(t, 4, len(loc.History()))
}
