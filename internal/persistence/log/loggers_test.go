package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/simerr"
)

func TestDecisionLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewDecisionLogger(dir)
	if _, err := uuid.Parse(l.RunID()); err != nil {
		t.Fatalf("run id is not a uuid: %v", err)
	}
	fixed := time.Date(2026, 3, 1, 14, 20, 0, 0, time.UTC)
	l.w.now = func() time.Time { return fixed }

	l.Record(model.Transition{Tick: 1, AgentID: "S0001", From: model.StateIdle, To: model.StateMoving, Reason: "chop"})
	l.Record(model.Transition{Tick: 4, AgentID: "S0001", From: model.StateMoving, To: model.StateIdle,
		Reason: "no path", Code: simerr.CodePathNotFound, Fallback: true})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n, err := l.Err(); n != 0 || err != nil {
		t.Fatalf("unexpected write errors: %d %v", n, err)
	}

	path := filepath.Join(dir, "decisions", "decisions-2026-03-01-14.jsonl.zst")
	got, err := ReadDecisions(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(got))
	}
	if got[0].To != "MOVING" || got[0].RunID != l.RunID() {
		t.Fatalf("unexpected first decision %+v", got[0])
	}
	if !got[1].Fallback || got[1].Code != simerr.CodePathNotFound || got[1].From != "MOVING" {
		t.Fatalf("unexpected fallback decision %+v", got[1])
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "decisions")
	now := time.Date(2026, 3, 1, 9, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(Decision{Tick: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(Decision{Tick: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 hourly files, got %d", len(entries))
	}
	for i, name := range []string{"decisions-2026-03-01-09.jsonl.zst", "decisions-2026-03-01-10.jsonl.zst"} {
		got, err := ReadDecisions(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(got) != 1 || got[0].Tick != uint64(i+1) {
			t.Fatalf("%s: unexpected contents %+v", name, got)
		}
	}
}

func TestJSONLZstdWriter_FlushBeforeWrite(t *testing.T) {
	w := NewJSONLZstdWriter(t.TempDir(), "x")
	if err := w.Flush(); err != nil {
		t.Fatalf("flush on unopened writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
