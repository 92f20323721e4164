package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Handler: slog.NewTextHandler(&buf, nil), Component: ComponentStore})
	l.Info("stream put", FieldStreamKey, 7)

	out := buf.String()
	if !strings.Contains(out, "component=store") || !strings.Contains(out, "stream_key=7") {
		t.Fatalf("unexpected output %q", out)
	}

	buf.Reset()
	l.WithComponent(ComponentCodec).Warn("decode failed")
	if !strings.Contains(buf.String(), "component=codec") {
		t.Fatalf("expected codec component, got %q", buf.String())
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Handler: slog.NewTextHandler(&buf, nil), Component: ComponentAutosave})
	l.LogError(context.Background(), "unable to save", errors.New("prompt cancelled"), OpEncode, ErrorTypeEncode, NewFields().WithToken("sealed", 0))

	out := buf.String()
	for _, want := range []string{"operation=encode", "error_type=encode_error", `error="prompt cancelled"`, "codec=sealed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"", slog.LevelInfo, true},
		{"WARN", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFromContext(t *testing.T) {
	l := Nop().WithComponent(ComponentSession)
	if got := FromContext(WithLogger(context.Background(), l)); got != l {
		t.Fatalf("expected logger from context")
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %q", got.Component())
	}
}
