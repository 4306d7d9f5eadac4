package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/tuning"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTransition}

	s.Record(model.Transition{Tick: 2})
	s.Record(model.Transition{Tick: 3})

	st := s.Stats()
	if st.DropTotal != 2 {
		t.Fatalf("DropTotal=%d want=2", st.DropTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func openTemp(t *testing.T) *SQLiteIndex {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "colony.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteIndex_FallbacksAndDwell(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	if err := s.BeginRun(ctx, "run-1", "camp", 7); err != nil {
		t.Fatalf("begin run: %v", err)
	}

	s.Record(model.Transition{Tick: 1, AgentID: "S0001", From: model.StateIdle, To: model.StateMoving, Reason: "chop"})
	s.Record(model.Transition{Tick: 11, AgentID: "S0001", From: model.StateMoving, To: model.StateChopping, Reason: "arrived"})
	s.Record(model.Transition{Tick: 31, AgentID: "S0001", From: model.StateChopping, To: model.StateIdle, Reason: "depleted"})
	s.Record(model.Transition{Tick: 2, AgentID: "S0002", From: model.StateIdle, To: model.StateMovingToStorage, Reason: "full"})
	s.Record(model.Transition{Tick: 2, AgentID: "S0002", From: model.StateMovingToStorage, To: model.StateIdle,
		Reason: "no storage", Code: simerr.CodeStorageFull, Fallback: true})
	s.Record(model.Transition{Tick: 5, AgentID: "S0002", From: model.StateIdle, To: model.StateMoving, Reason: "chop"})
	s.Record(model.Transition{Tick: 5, AgentID: "S0002", From: model.StateMoving, To: model.StateIdle,
		Reason: "no path", Code: simerr.CodePathNotFound, Fallback: true})
	s.Record(model.Transition{Tick: 6, AgentID: "S0002", From: model.StateIdle, To: model.StateMoving, Reason: "chop"})
	s.Record(model.Transition{Tick: 6, AgentID: "S0002", From: model.StateMoving, To: model.StateIdle,
		Reason: "no path", Code: simerr.CodePathNotFound, Fallback: true})

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	counts, err := s.FallbackCounts(ctx, "run-1")
	if err != nil {
		t.Fatalf("fallback counts: %v", err)
	}
	if counts[simerr.CodePathNotFound] != 2 || counts[simerr.CodeStorageFull] != 1 || len(counts) != 2 {
		t.Fatalf("unexpected fallback counts %+v", counts)
	}

	dwell, err := s.StateDwell(ctx, "run-1")
	if err != nil {
		t.Fatalf("dwell: %v", err)
	}
	if dwell[model.StateMoving] != 10 {
		t.Fatalf("expected 10 ticks moving, got %d", dwell[model.StateMoving])
	}
	if dwell[model.StateChopping] != 20 {
		t.Fatalf("expected 20 ticks chopping, got %d", dwell[model.StateChopping])
	}
	// S0002: IDLE 2->5 and 5->6.
	if dwell[model.StateIdle] != 4 {
		t.Fatalf("expected 4 ticks idle, got %d", dwell[model.StateIdle])
	}

	other, err := s.FallbackCounts(ctx, "run-2")
	if err != nil || len(other) != 0 {
		t.Fatalf("expected no fallbacks for unknown run, got %+v (%v)", other, err)
	}
}

func TestSQLiteIndex_RunsSeparateSequences(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	for _, run := range []string{"a", "b"} {
		if err := s.BeginRun(ctx, run, "camp", 1); err != nil {
			t.Fatalf("begin %s: %v", run, err)
		}
		s.Record(model.Transition{Tick: 1, AgentID: "S0001", To: model.StateMoving, Code: simerr.CodeNoTarget, Fallback: true})
		if err := s.Flush(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}
	}
	for _, run := range []string{"a", "b"} {
		counts, err := s.FallbackCounts(ctx, run)
		if err != nil {
			t.Fatalf("counts %s: %v", run, err)
		}
		if counts[simerr.CodeNoTarget] != 1 {
			t.Fatalf("run %s: expected 1 fallback, got %+v", run, counts)
		}
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	cats := catalogs.Builtin()
	if err := s.UpsertCatalogs(ctx, cats, tuning.Default()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	d, err := s.CatalogDigest(ctx, "blueprints")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d != cats.Blueprints.Digest {
		t.Fatalf("blueprint digest mismatch: %s vs %s", d, cats.Blueprints.Digest)
	}
	if _, err := s.CatalogDigest(ctx, "tuning"); err != nil {
		t.Fatalf("tuning row missing: %v", err)
	}
}

func TestSQLiteIndex_ClosedIgnoresWrites(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "x.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s.Record(model.Transition{Tick: 1})
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush after close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSQLiteIndex_Grids(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	for _, g := range []Grid{
		{Tick: 100, Width: 4, Height: 4, Walkable: 15, Mask: "AQ=="},
		{Tick: 0, Width: 4, Height: 4, Walkable: 16, Mask: "EA=="},
	} {
		if err := s.RecordGrid(ctx, "run", g); err != nil {
			t.Fatalf("record grid: %v", err)
		}
	}
	got, err := s.Grids(ctx, "run")
	if err != nil {
		t.Fatalf("grids: %v", err)
	}
	if len(got) != 2 || got[0].Tick != 0 || got[1].Walkable != 15 {
		t.Fatalf("unexpected grids %+v", got)
	}
}
