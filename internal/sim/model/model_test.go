package model

import "testing"

func TestInventory_AddBoundedByWeight(t *testing.T) {
	inv := NewInventory(4, 50)
	if got := inv.Add(ResourceWood, 45); got != 45 {
		t.Fatalf("expected 45 added, got %d", got)
	}
	if inv.IsFull() {
		t.Fatalf("inventory should not be full at 45/50")
	}
	if got := inv.Add(ResourceWood, 10); got != 5 {
		t.Fatalf("expected partial add of 5, got %d", got)
	}
	if !inv.IsFull() {
		t.Fatalf("inventory should be full at 50/50")
	}
	if got := inv.Add(ResourceStone, 1); got != 0 {
		t.Fatalf("expected nothing added when full, got %d", got)
	}
	if got := inv.Remove(ResourceWood, 60); got != 50 {
		t.Fatalf("expected to remove 50, got %d", got)
	}
	if !inv.IsEmpty() {
		t.Fatalf("expected empty inventory")
	}
}

func TestInventory_SlotLimit(t *testing.T) {
	inv := NewInventory(2, 50)
	inv.Add(ResourceWood, 1)
	inv.Add(ResourceStone, 1)
	if got := inv.Add(ResourceFood, 1); got != 0 {
		t.Fatalf("expected no free slot, got %d", got)
	}
	if got := inv.Add(ResourceWood, 2); got != 2 {
		t.Fatalf("expected stacking into existing slot, got %d", got)
	}
}

func TestStats_TickDecayAndClamp(t *testing.T) {
	s := NewStats(100)
	r := StatRates{HungerDecay: 3, EnergyDecay: 6, StarvationDmg: 1}
	s.Tick(1, r, false, false)
	if s.Hunger != 99 || s.Energy != 98 {
		t.Fatalf("expected hunger=99 energy=98, got %v %v", s.Hunger, s.Energy)
	}
	s.Tick(1, r, true, false)
	if s.Energy != 98 {
		t.Fatalf("energy should not decay while sleeping, got %v", s.Energy)
	}
	s.ModifyEnergy(500)
	if s.Energy != 100 {
		t.Fatalf("expected clamp to 100, got %v", s.Energy)
	}
}

func TestSkills_LevelUp(t *testing.T) {
	var s Skills
	if s.AddXP(SkillWoodcutting, 99) {
		t.Fatalf("unexpected level up")
	}
	if !s.AddXP(SkillWoodcutting, 1) {
		t.Fatalf("expected level up at 100xp")
	}
	if got := s.LevelOf(SkillWoodcutting); got != 1 {
		t.Fatalf("expected level 1, got %d", got)
	}
	s.AddXP(SkillWoodcutting, 200)
	if got := s.LevelOf(SkillWoodcutting); got != 2 {
		t.Fatalf("expected level 2, got %d", got)
	}
}

func TestJobFlags_Diff(t *testing.T) {
	prev := JobFlags{GatherWood: true}
	cur := JobFlags{GatherStone: true}
	e := cur.Diff(prev)
	if len(e.Rising) != 1 || e.Rising[0] != JobGatherStone {
		t.Fatalf("unexpected rising edges: %v", e.Rising)
	}
	if len(e.Falling) != 1 || e.Falling[0] != JobGatherWood {
		t.Fatalf("unexpected falling edges: %v", e.Falling)
	}
	if !cur.Diff(cur).Empty() {
		t.Fatalf("expected no edges against itself")
	}
}

func TestState_SurvivalAndInterruptible(t *testing.T) {
	for _, s := range []State{StateEating, StateSleeping, StateSearchingForFood, StateMovingToBed, StateMovingToFood} {
		if !s.IsSurvival() {
			t.Fatalf("%s should be a survival state", s)
		}
		if s.IsInterruptible(false) {
			t.Fatalf("%s should not be interruptible", s)
		}
	}
	if !StateMoving.IsInterruptible(false) || StateMoving.IsInterruptible(true) {
		t.Fatalf("MOVING interruptibility should follow the critical flag")
	}
	for _, s := range AllStates() {
		got, ok := ParseState(s.String())
		if !ok || got != s {
			t.Fatalf("state name round trip failed for %s", s)
		}
	}
}
