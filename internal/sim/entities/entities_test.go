package entities

import (
	"errors"
	"testing"

	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/simerr"
)

func TestArena_StaleHandleNeverResolves(t *testing.T) {
	var a Arena[Tree]
	h1 := a.Insert(Tree{Wood: 5})
	if !a.Remove(h1) {
		t.Fatalf("expected removal")
	}
	h2 := a.Insert(Tree{Wood: 7})
	if h2.Index != h1.Index {
		t.Fatalf("expected slot reuse, got %d vs %d", h2.Index, h1.Index)
	}
	if _, ok := a.Get(h1); ok {
		t.Fatalf("stale handle resolved after slot reuse")
	}
	v, ok := a.Get(h2)
	if !ok || v.Wood != 7 {
		t.Fatalf("expected fresh handle to resolve to new tree")
	}
	if _, ok := a.Get(Handle{}); ok {
		t.Fatalf("zero handle must not resolve")
	}
	if a.Len() != 1 {
		t.Fatalf("expected len 1, got %d", a.Len())
	}
}

func TestReservation_Exclusive(t *testing.T) {
	var r Reservation
	if err := r.Reserve("A1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := r.Reserve("A1"); err != nil {
		t.Fatalf("re-reserve by holder: %v", err)
	}
	err := r.Reserve("A2")
	if !errors.Is(err, simerr.ErrReservationConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if r.ReleaseIfHeldBy("A2") {
		t.Fatalf("non-holder must not release")
	}
	if !r.ReleaseIfHeldBy("A1") || r.IsReserved() {
		t.Fatalf("holder release failed")
	}
}

func TestTree_DepletionReleasesReservation(t *testing.T) {
	tr := Tree{Wood: 10, MaxWood: 10}
	_ = tr.Reserve("A1")
	got := tr.Harvest(10)
	if got != 10 {
		t.Fatalf("expected 10 taken, got %v", got)
	}
	if !tr.Stump || tr.IsActive() {
		t.Fatalf("expected stump after one harvest")
	}
	if tr.IsReserved() {
		t.Fatalf("reservation should be released on depletion")
	}
	if tr.Harvest(10) != 0 {
		t.Fatalf("stump should yield nothing")
	}
}

func TestResourceNode_RegenerateReactivates(t *testing.T) {
	n := ResourceNode{Amount: 2, MaxAmount: 4, RegenRate: 1, Yield: model.ResourceStone}
	n.Harvest(5)
	if !n.Depleted {
		t.Fatalf("expected depleted")
	}
	if n.Regenerate(2) {
		t.Fatalf("should not reactivate before full")
	}
	if !n.Regenerate(2) || n.Depleted {
		t.Fatalf("expected reactivation once full")
	}
}

func TestAnimal_TakeDamageKills(t *testing.T) {
	a := NewAnimal(SpeciesRabbit, geom.V(0, 0, 0))
	if a.TakeDamage(10, nil, 0) {
		t.Fatalf("rabbit should survive 10 damage")
	}
	if !a.TakeDamage(10, nil, 0) || !a.Dead() {
		t.Fatalf("rabbit should die at 20 damage")
	}
	if a.MeatYield() != 3 {
		t.Fatalf("unexpected meat yield %d", a.MeatYield())
	}
}

func TestRegistry_NearestSkipsReservedAndReleaseAll(t *testing.T) {
	r := NewRegistry()
	near := r.AddTree(geom.V(1, 0, 0), 10)
	far := r.AddTree(geom.V(5, 0, 0), 10)
	tn, _ := r.Trees.Get(near)
	_ = tn.Reserve("A1")

	ref, ok := r.Nearest(KindTree, geom.V(0, 0, 0), "A2", 0, nil)
	if !ok || ref != TreeRef(far) {
		t.Fatalf("expected far tree for A2, got %+v", ref)
	}
	ref, ok = r.Nearest(KindTree, geom.V(0, 0, 0), "A1", 0, nil)
	if !ok || ref != TreeRef(near) {
		t.Fatalf("expected holder to see its own tree, got %+v", ref)
	}
	if n := r.ReleaseAll("A1"); n != 1 {
		t.Fatalf("expected 1 release, got %d", n)
	}
	if len(r.Holders()) != 0 {
		t.Fatalf("expected no holders")
	}
}
