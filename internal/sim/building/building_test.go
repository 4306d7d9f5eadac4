package building

import (
	"errors"
	"testing"

	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/nav"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/storage"
)

func newSystem(t *testing.T, wood, stone int) (*System, *storage.System) {
	t.Helper()
	st := storage.NewSystem()
	s := st.Create(geom.V(0, 0, 0), 10, 50)
	if wood > 0 {
		if _, err := st.AddResource(s.ID, model.ResourceWood, wood); err != nil {
			t.Fatalf("seed wood: %v", err)
		}
	}
	if stone > 0 {
		if _, err := st.AddResource(s.ID, model.ResourceStone, stone); err != nil {
			t.Fatalf("seed stone: %v", err)
		}
	}
	return NewSystem(nil, st), st
}

func TestStartBuilding_ConsumesMaterials(t *testing.T) {
	b, st := newSystem(t, 50, 10)
	if !b.CanBuild("house", geom.V(5.5, 0, 5.5)) {
		t.Fatalf("expected house to be buildable")
	}
	h, err := b.StartBuilding("house", geom.V(5.5, 0, 5.5), 0)
	if err != nil {
		t.Fatalf("StartBuilding: %v", err)
	}
	if got := st.Total(model.ResourceWood); got != 10 {
		t.Fatalf("expected 10 wood left, got %d", got)
	}
	if got := st.Total(model.ResourceStone); got != 0 {
		t.Fatalf("expected no stone left, got %d", got)
	}
	task, ok := b.Task(h)
	if !ok || task.MaxProgress != 1000 {
		t.Fatalf("unexpected task: %+v ok=%v", task, ok)
	}
	if b.PendingBuildCount("house") != 1 || len(b.ActiveBuildTasks()) != 1 {
		t.Fatalf("expected one pending house")
	}
}

func TestStartBuilding_InsufficientResources(t *testing.T) {
	b, st := newSystem(t, 5, 0)
	_, err := b.StartBuilding("house", geom.V(0, 0, 0), 0)
	if !errors.Is(err, simerr.ErrInsufficientResources) {
		t.Fatalf("expected insufficient resources, got %v", err)
	}
	if st.Total(model.ResourceWood) != 5 {
		t.Fatalf("failed start must not consume materials")
	}
}

func TestAdvance_CompletesStorage(t *testing.T) {
	b, st := newSystem(t, 20, 0)
	h, err := b.StartBuilding("simple_storage", geom.V(4, 0, 4), 0)
	if err != nil {
		t.Fatalf("StartBuilding: %v", err)
	}
	in, err := b.Advance(h, 200)
	if err != nil || in != nil {
		t.Fatalf("expected progress only, got %v %v", in, err)
	}
	in, err = b.Advance(h, 200)
	if err != nil || in == nil {
		t.Fatalf("expected completion, got %v %v", in, err)
	}
	if in.StorageID == 0 {
		t.Fatalf("storage building should create a storage")
	}
	if _, ok := st.Storage(in.StorageID); !ok {
		t.Fatalf("storage %d missing", in.StorageID)
	}
	if _, ok := b.Task(h); ok {
		t.Fatalf("completed task handle must be stale")
	}
	if _, err := b.Advance(h, 1); !errors.Is(err, simerr.ErrTargetInvalidated) {
		t.Fatalf("expected invalidated, got %v", err)
	}
	if !b.TakeDirty() || b.TakeDirty() {
		t.Fatalf("dirty flag should be set once")
	}
}

func TestHouseFootprint_BlocksWallsKeepsDoor(t *testing.T) {
	b, _ := newSystem(t, 0, 0)
	in := b.Place("house", geom.V(5.5, 0, 5.5), 0)
	if in == nil || len(in.Walls) != 8 || len(in.Beds) != 1 {
		t.Fatalf("unexpected house: %+v", in)
	}
	g := nav.NewGrid(20, 20, 1)
	g.Rebuild(nav.Obstacles{Buildings: b.Footprints()})

	wall := g.WorldToGrid(geom.V(4.5, 0, 7.5))
	if g.IsWalkable(wall.X, wall.Y) {
		t.Fatalf("wall cell %v should be blocked", wall)
	}
	door := g.WorldToGrid(*in.Door)
	if !g.IsWalkable(door.X, door.Y) {
		t.Fatalf("door cell %v should be open", door)
	}
	inside := g.WorldToGrid(geom.V(5.5, 0, 5.5))
	if !g.IsWalkable(inside.X, inside.Y) {
		t.Fatalf("interior should stay open")
	}
	if path := g.FindPath(geom.V(5.5, 0, 0.5), geom.V(5.5, 0, 6.5)); len(path) == 0 {
		t.Fatalf("expected a path through the door")
	}
}

func TestRotatedComponents(t *testing.T) {
	b, _ := newSystem(t, 0, 0)
	in := b.Place("house", geom.V(0, 0, 0), 90)
	bed := in.Beds[0]
	if bed.DistXZ(geom.V(1, 0, 0)) > 1e-9 {
		t.Fatalf("bed should rotate to (1,0,0), got %+v", bed)
	}
}
