package settler

import (
	"errors"
	"testing"

	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/tasks"
)

func TestEveryStateHasHandler(t *testing.T) {
	for _, s := range model.AllStates() {
		if _, ok := handlers[s]; !ok {
			t.Fatalf("no handler for %s", s)
		}
	}
}

func TestChop_DepletesTreeInOneCycle(t *testing.T) {
	h := newHarness(t)
	th := h.ctx.World.AddTree(geom.V(0.5, 0, 0.5), 10)
	h.rebuild()
	a := h.add("a", geom.V(-1.5, 0, 0.5), model.JobFlags{GatherWood: true})

	h.run(1)
	if a.State() != model.StateChopping {
		t.Fatalf("expected CHOPPING, got %s", a.State())
	}
	tree, _ := h.ctx.World.Trees.Get(th)
	if tree.ReservedBy() != "a" {
		t.Fatalf("expected tree reserved by a, got %q", tree.ReservedBy())
	}

	h.run(25)
	if !tree.Stump {
		t.Fatalf("expected stump after one cycle, wood=%v", tree.Wood)
	}
	if tree.IsReserved() {
		t.Fatalf("stump still reserved by %q", tree.ReservedBy())
	}
	if got := a.Inventory().Count(model.ResourceWood); got != 10 {
		t.Fatalf("expected 10 wood, got %d", got)
	}
	if a.Target() != (entities.Ref{}) {
		t.Fatalf("expected no target, got %+v", a.Target())
	}
	if c := h.ctx.Grid.WorldToGrid(tree.Pos); !h.ctx.Grid.IsWalkable(c.X, c.Y) {
		t.Fatalf("stump cell should be walkable after rebuild")
	}
}

func TestReservations_NoDoubleClaim(t *testing.T) {
	h := newHarness(t)
	h.ctx.World.AddTree(geom.V(10.5, 0, 0.5), 50)
	h.ctx.World.AddTree(geom.V(-9.5, 0, 0.5), 50)
	h.rebuild()
	jobs := model.JobFlags{GatherWood: true}
	for _, id := range []string{"a", "b", "c", "d"} {
		h.add(id, geom.V(0.5, 0, 5.5), jobs)
	}

	for i := 0; i < 40; i++ {
		h.run(1)
		holders := h.ctx.World.Holders()
		seen := map[string]bool{}
		for _, id := range holders {
			if seen[id] {
				t.Fatalf("tick %d: agent %s holds two trees", i, id)
			}
			seen[id] = true
		}
		if len(holders) > 2 {
			t.Fatalf("tick %d: %d reservations for 2 trees", i, len(holders))
		}
	}
	working := 0
	for _, a := range h.agents {
		if a.Target().Kind == entities.KindTree {
			working++
		}
	}
	if working != 2 {
		t.Fatalf("expected 2 agents on trees, got %d", working)
	}
}

func TestHaulingOutranksBuilding(t *testing.T) {
	h := newHarness(t)
	s := h.ctx.Storage.Create(geom.V(5.5, 0, 0.5), 10, 50)
	if _, err := h.ctx.Storage.AddResource(s.ID, model.ResourceWood, 20); err != nil {
		t.Fatalf("seed storage: %v", err)
	}
	if _, err := h.ctx.Building.StartBuilding("simple_storage", geom.V(-10.5, 0, 0.5), 0); err != nil {
		t.Fatalf("start building: %v", err)
	}
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{PerformBuilding: true})
	a.Inventory().Add(model.ResourceWood, 50)
	if !a.Inventory().IsFull() {
		t.Fatalf("inventory should be full")
	}

	h.run(1)
	if a.State() != model.StateMovingToStorage {
		t.Fatalf("expected MOVING_TO_STORAGE, got %s", a.State())
	}

	h.run(60)
	if got := s.Count(model.ResourceWood); got != 60 {
		t.Fatalf("expected 60 wood stored, got %d", got)
	}
	if !a.Inventory().IsEmpty() {
		t.Fatalf("inventory not emptied: %+v", a.Inventory().Stacks())
	}
}

func TestStorageFull_DropsLoad(t *testing.T) {
	h := newHarness(t)
	s := h.ctx.Storage.Create(geom.V(5.5, 0, 0.5), 1, 10)
	if _, err := h.ctx.Storage.AddResource(s.ID, model.ResourceStone, 10); err != nil {
		t.Fatalf("seed storage: %v", err)
	}
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{})
	a.Inventory().Add(model.ResourceWood, 50)

	h.run(1)
	if !h.fallback(simerr.CodeStorageFull) {
		t.Fatalf("expected a storage-full fallback, got %+v", h.transitions)
	}
	if h.ctx.World.Items.Len() != 1 {
		t.Fatalf("expected dropped stack on the ground, got %d items", h.ctx.World.Items.Len())
	}
	if !a.Inventory().IsEmpty() {
		t.Fatalf("inventory should be empty after dropping")
	}
}

func TestJobOff_InterruptsMoving(t *testing.T) {
	h := newHarness(t)
	th := h.ctx.World.AddTree(geom.V(20.5, 0, 0.5), 50)
	h.rebuild()
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{GatherWood: true})

	h.run(2)
	if a.State() != model.StateMoving {
		t.Fatalf("expected MOVING toward tree, got %s", a.State())
	}
	a.OnJobConfigurationChanged(model.JobFlags{})
	h.run(1)
	if a.State() != model.StateIdle {
		t.Fatalf("expected IDLE after flag off, got %s", a.State())
	}
	if len(a.Queue()) != 0 {
		t.Fatalf("queue not cleared: %+v", a.Queue())
	}
	tree, _ := h.ctx.World.Trees.Get(th)
	if tree.IsReserved() {
		t.Fatalf("tree still reserved by %q", tree.ReservedBy())
	}
}

func TestJobOff_DefersUntilCycleEnds(t *testing.T) {
	h := newHarness(t)
	th := h.ctx.World.AddTree(geom.V(0.5, 0, 0.5), 100)
	h.rebuild()
	a := h.add("a", geom.V(-1.5, 0, 0.5), model.JobFlags{GatherWood: true})

	h.run(5)
	if a.State() != model.StateChopping {
		t.Fatalf("expected CHOPPING, got %s", a.State())
	}
	a.OnJobConfigurationChanged(model.JobFlags{})
	h.run(1)
	if a.State() != model.StateChopping {
		t.Fatalf("work must not be cut mid-cycle, got %s", a.State())
	}
	if !a.PendingReevaluation() {
		t.Fatalf("expected pending reevaluation")
	}

	h.run(20)
	tree, _ := h.ctx.World.Trees.Get(th)
	if a.State() != model.StateIdle {
		t.Fatalf("expected IDLE at cycle boundary, got %s", a.State())
	}
	if tree.Wood != 90 {
		t.Fatalf("expected exactly one cycle harvested, wood=%v", tree.Wood)
	}
	if tree.IsReserved() {
		t.Fatalf("tree still reserved")
	}
}

func TestBed_ArrivalSleepsOnce(t *testing.T) {
	h := newHarness(t)
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{})
	bed := geom.V(3.5, 0, 0.5)
	a.AssignBed(&Bed{BuildingID: 1, Pos: bed})
	st := a.Stats()
	st.Energy = 20
	a.SetStats(st)

	h.run(1)
	if a.State() != model.StateMovingToBed {
		t.Fatalf("expected MOVING_TO_BED, got %s", a.State())
	}
	if !a.MovingToCritical() {
		t.Fatalf("bed trip should be critical")
	}
	arrive := h.ctx.Tuning.Movement.ArriveDistance
	for i := 0; i < 119; i++ {
		before := a.State()
		h.run(1)
		if before != model.StateSleeping && a.State() == model.StateSleeping {
			if d := a.Position().DistXZ(bed); d >= arrive {
				t.Fatalf("fell asleep %.3f from the bed, want < %.2f", d, arrive)
			}
		}
	}
	if n := h.count(model.StateSleeping); n != 1 {
		t.Fatalf("expected one SLEEPING transition, got %d", n)
	}
	if a.Stats().Energy < h.ctx.Tuning.Needs.SleepExit-5 {
		t.Fatalf("expected rested energy, got %v", a.Stats().Energy)
	}
	if a.State() == model.StateSleeping {
		t.Fatalf("agent should have woken up")
	}
}

func TestNoBed_SleepsInPlace(t *testing.T) {
	h := newHarness(t)
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{})
	st := a.Stats()
	st.Energy = 10
	a.SetStats(st)

	h.run(1)
	if a.State() != model.StateSleeping && a.State() != model.StateMovingToBed {
		t.Fatalf("expected sleep, got %s", a.State())
	}
	h.run(5)
	if a.State() != model.StateSleeping {
		t.Fatalf("expected SLEEPING in place, got %s", a.State())
	}
	if a.Position() != geom.V(0.5, 0, 0.5) {
		t.Fatalf("agent moved while sleeping in place: %+v", a.Position())
	}
}

func TestHunger_PreemptsWorkAndFallsBack(t *testing.T) {
	h := newHarness(t)
	th := h.ctx.World.AddTree(geom.V(0.5, 0, 0.5), 100)
	h.rebuild()
	a := h.add("a", geom.V(-1.5, 0, 0.5), model.JobFlags{GatherWood: true})

	h.run(3)
	st := a.Stats()
	st.Hunger = 30
	a.SetStats(st)
	h.run(1)

	if !h.fallback(simerr.CodeNoTarget) {
		t.Fatalf("expected no-food fallback, got %+v", h.transitions)
	}
	if a.State() != model.StateIdle {
		t.Fatalf("expected IDLE, got %s", a.State())
	}
	tree, _ := h.ctx.World.Trees.Get(th)
	if tree.IsReserved() {
		t.Fatalf("tree should be released when hunger preempts")
	}
}

func TestSurvival_IgnoresJobToggles(t *testing.T) {
	h := newHarness(t)
	h.ctx.World.AddTree(geom.V(3.5, 0, 0.5), 50)
	h.rebuild()

	eater := h.add("eater", geom.V(0.5, 0, 4.5), model.JobFlags{})
	eater.Inventory().Add(model.ResourceFood, 3)
	st := eater.Stats()
	st.Hunger = 35
	eater.SetStats(st)

	sleeper := h.add("sleeper", geom.V(0.5, 0, -4.5), model.JobFlags{})
	st = sleeper.Stats()
	st.Energy = 10
	sleeper.SetStats(st)

	h.run(2)
	if eater.State() != model.StateEating {
		t.Fatalf("expected EATING, got %s", eater.State())
	}
	if sleeper.State() != model.StateSleeping {
		t.Fatalf("expected SLEEPING, got %s", sleeper.State())
	}
	on := model.JobFlags{GatherWood: true, PerformBuilding: true, HaulToStorage: true}
	for i := 0; i < 30; i++ {
		flags := on
		if i%2 == 1 {
			flags = model.JobFlags{}
		}
		eater.OnJobConfigurationChanged(flags)
		sleeper.OnJobConfigurationChanged(flags)
		h.run(1)
		if eater.State() != model.StateEating {
			t.Fatalf("tick %d: eater left EATING for %s", i, eater.State())
		}
		if sleeper.State() != model.StateSleeping {
			t.Fatalf("tick %d: sleeper left SLEEPING for %s", i, sleeper.State())
		}
	}
}

func TestEating_FromInventory(t *testing.T) {
	h := newHarness(t)
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{})
	a.Inventory().Add(model.ResourceFood, 3)
	st := a.Stats()
	st.Hunger = 35
	a.SetStats(st)

	h.run(1)
	if a.State() != model.StateEating {
		t.Fatalf("expected EATING, got %s", a.State())
	}
	h.run(99)
	if a.State() == model.StateEating {
		t.Fatalf("should have finished eating")
	}
	if a.Stats().Hunger < h.ctx.Tuning.Needs.HungerExit {
		t.Fatalf("expected fed, hunger=%v", a.Stats().Hunger)
	}
	if got := a.Inventory().Count(model.ResourceFood); got != 1 {
		t.Fatalf("expected 1 food left, got %d", got)
	}
}

func TestHunt_MeleeKillAndSkin(t *testing.T) {
	h := newHarness(t)
	h.ctx.World.AddAnimal(entities.SpeciesRabbit, geom.V(1.3, 0, 0.5))
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{HuntAnimals: true})

	h.run(1)
	if a.State() != model.StateHunting {
		t.Fatalf("expected HUNTING, got %s", a.State())
	}
	h.run(99)
	if got := a.Inventory().Count(model.ResourceMeat); got != 3 {
		t.Fatalf("expected 3 meat, got %d", got)
	}
	if got := a.Inventory().Count(model.ResourceHide); got != 1 {
		t.Fatalf("expected 1 hide, got %d", got)
	}
	if h.ctx.World.Animals.Len() != 0 {
		t.Fatalf("carcass should be removed")
	}
	if h.count(model.StateSkinning) != 1 {
		t.Fatalf("expected one SKINNING transition")
	}
}

func TestBow_BlockedByBuilding(t *testing.T) {
	h := newHarness(t)
	h.ctx.Building.Place("storage_shed", geom.V(5.5, 0, 0.5), 0)
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{})
	a.SetWeapon(WeaponBow)
	if a.lineOfSight(h.ctx, geom.V(10.5, 0, 0.5)) {
		t.Fatalf("shed should block the shot")
	}
	if !a.lineOfSight(h.ctx, geom.V(0.5, 0, 10.5)) {
		t.Fatalf("open line should be clear")
	}
}

func TestBuilding_CompletesTask(t *testing.T) {
	h := newHarness(t)
	s := h.ctx.Storage.Create(geom.V(-5.5, 0, 0.5), 10, 50)
	if _, err := h.ctx.Storage.AddResource(s.ID, model.ResourceWood, 10); err != nil {
		t.Fatalf("seed storage: %v", err)
	}
	if _, err := h.ctx.Building.StartBuilding("simple_storage", geom.V(5.5, 0, 5.5), 0); err != nil {
		t.Fatalf("start building: %v", err)
	}
	a := h.add("a", geom.V(5.5, 0, 3.5), model.JobFlags{PerformBuilding: true})

	h.run(1)
	if a.State() != model.StateBuilding {
		t.Fatalf("expected BUILDING, got %s", a.State())
	}
	h.run(140)
	if len(h.ctx.Building.Instances()) != 1 {
		t.Fatalf("expected finished building")
	}
	if len(h.ctx.Storage.All()) != 2 {
		t.Fatalf("expected the new storage to be registered")
	}
	if a.State() == model.StateBuilding {
		t.Fatalf("agent still building")
	}
}

func TestForceGatherTarget(t *testing.T) {
	h := newHarness(t)
	th := h.ctx.World.AddTree(geom.V(10.5, 0, 0.5), 50)
	h.rebuild()
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{})
	tree, _ := h.ctx.World.Trees.Get(th)

	if err := tree.Reserve("other"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	err := a.ForceGatherTarget(h.ctx, entities.TreeRef(th))
	if !errors.Is(err, simerr.ErrReservationConflict) {
		t.Fatalf("expected reservation conflict, got %v", err)
	}
	if len(a.Queue()) != 0 {
		t.Fatalf("failed force must not touch the queue")
	}

	tree.ReleaseReservation()
	if err := a.ForceGatherTarget(h.ctx, entities.TreeRef(th)); err != nil {
		t.Fatalf("force gather: %v", err)
	}
	q := a.Queue()
	if len(q) != 1 || q[0].Kind != tasks.KindChopTree {
		t.Fatalf("expected single chop action, got %+v", q)
	}
	if tree.ReservedBy() != "a" {
		t.Fatalf("expected tree reserved by a")
	}

	h.run(1)
	if a.State() != model.StateMoving {
		t.Fatalf("expected MOVING to forced target, got %s", a.State())
	}
}

func TestRelease_FreesEverything(t *testing.T) {
	h := newHarness(t)
	h.ctx.World.AddTree(geom.V(10.5, 0, 0.5), 50)
	h.rebuild()
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{GatherWood: true})
	h.run(2)
	if len(h.ctx.World.Holders()) != 1 {
		t.Fatalf("expected one reservation before release")
	}
	a.Release(h.ctx)
	if len(h.ctx.World.Holders()) != 0 {
		t.Fatalf("reservations left after release: %+v", h.ctx.World.Holders())
	}
}

func TestEvaluate_HungryWithoutFoodStillSearches(t *testing.T) {
	h := newHarness(t)
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{})
	st := a.Stats()
	st.Hunger, st.Energy = 35, 50
	a.SetStats(st)

	best := a.Evaluate(h.ctx)[0]
	if best.State != model.StateSearchingForFood || best.Score != 130 {
		t.Fatalf("expected SEARCHING_FOR_FOOD at 130, got %s at %v", best.State, best.Score)
	}

	h.run(1)
	if !h.fallback(simerr.CodeNoTarget) {
		t.Fatalf("expected a no-food fallback, got %+v", h.transitions)
	}
	if best := a.Evaluate(h.ctx)[0]; best.State != model.StateIdle {
		t.Fatalf("failed search should be deferred, got %s", best.State)
	}
}

func TestMoving_KeepsActionQueuedUntilArrival(t *testing.T) {
	h := newHarness(t)
	th := h.ctx.World.AddTree(geom.V(10.5, 0, 0.5), 50)
	h.rebuild()
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{GatherWood: true})

	h.run(1)
	if a.State() != model.StateMoving {
		t.Fatalf("expected MOVING, got %s", a.State())
	}
	q := a.Queue()
	if len(q) != 1 || q[0].Kind != tasks.KindChopTree {
		t.Fatalf("chop action should stay queued while approaching, got %+v", q)
	}
	tree, _ := h.ctx.World.Trees.Get(th)
	if tree.ReservedBy() != "a" {
		t.Fatalf("expected tree reserved by a, got %q", tree.ReservedBy())
	}

	h.stepUntil(t, 80, "CHOPPING", func() bool { return a.State() == model.StateChopping })
	if len(a.Queue()) != 0 {
		t.Fatalf("action should be popped once work starts, got %+v", a.Queue())
	}
	if n := h.count(model.StateMoving); n != 1 {
		t.Fatalf("expected one MOVING transition, got %d", n)
	}
}

func TestHunt_DamageLandsAtHitFrame(t *testing.T) {
	h := newHarness(t)
	dh := h.ctx.World.AddAnimal(entities.SpeciesDeer, geom.V(1.3, 0, 0.5))
	deer, _ := h.ctx.World.Animals.Get(dh)
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{HuntAnimals: true})
	hunting := h.ctx.Tuning.Hunting
	dt := h.ctx.Tuning.DT()

	for i := 0; i < 60; i++ {
		before := deer.Health
		h.run(1)
		if deer.Health == before {
			continue
		}
		if a.hunt != huntStrike {
			t.Fatalf("damage landed outside the strike phase")
		}
		if a.phaseTimer+1e-9 < hunting.HitFrame || a.phaseTimer >= hunting.HitFrame+dt {
			t.Fatalf("damage landed at %.3fs into the strike, want %.2fs", a.phaseTimer, hunting.HitFrame)
		}
		if want := 100 - hunting.MeleeDamage; deer.Health != want {
			t.Fatalf("expected deer health %v, got %v", want, deer.Health)
		}
		return
	}
	t.Fatalf("deer never took damage")
}

func TestGather_EnclosedTreeFallsBack(t *testing.T) {
	h := newHarness(t)
	th := h.ctx.World.AddTree(geom.V(20.5, 0, 0.5), 50)
	h.rebuild()
	g := h.ctx.Grid
	c := g.WorldToGrid(geom.V(20.5, 0, 0.5))
	for y := c.Y - 6; y <= c.Y+6; y++ {
		for x := c.X - 6; x <= c.X+6; x++ {
			if x == c.X-6 || x == c.X+6 || y == c.Y-6 || y == c.Y+6 {
				g.SetWalkable(x, y, false)
			}
		}
	}
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{GatherWood: true})

	h.run(1)
	if a.State() != model.StateIdle {
		t.Fatalf("expected IDLE, got %s", a.State())
	}
	if !h.fallback(simerr.CodePathNotFound) {
		t.Fatalf("expected a path-not-found fallback, got %+v", h.transitions)
	}
	tree, _ := h.ctx.World.Trees.Get(th)
	if tree.IsReserved() {
		t.Fatalf("tree still reserved by %q", tree.ReservedBy())
	}
	if len(a.Queue()) != 0 {
		t.Fatalf("queue not cleared: %+v", a.Queue())
	}
}

func TestWaiting_ReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{})
	a.queue.PushBack(tasks.Wait(0.5))

	h.run(1)
	if a.State() != model.StateWaiting {
		t.Fatalf("expected WAITING, got %s", a.State())
	}
	h.run(5)
	if a.State() != model.StateWaiting {
		t.Fatalf("wait ended early, got %s", a.State())
	}
	h.run(12)
	if a.State() != model.StateIdle {
		t.Fatalf("expected IDLE after the wait, got %s", a.State())
	}
	if n := h.count(model.StateWaiting); n != 1 {
		t.Fatalf("expected one WAITING transition, got %d", n)
	}
}

func TestBow_KillsFromRange(t *testing.T) {
	h := newHarness(t)
	rh := h.ctx.World.AddAnimal(entities.SpeciesRabbit, geom.V(8.5, 0, 0.5))
	rabbit, _ := h.ctx.World.Animals.Get(rh)
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{HuntAnimals: true})
	a.SetWeapon(WeaponBow)

	h.stepUntil(t, 40, "rabbit kill", rabbit.Dead)
	if d := a.Position().DistXZ(rabbit.Pos); d <= h.ctx.Tuning.Hunting.MeleeRange {
		t.Fatalf("bow kill should land from range, agent was %.2f away", d)
	}

	h.run(150)
	if got := a.Inventory().Count(model.ResourceMeat); got != 3 {
		t.Fatalf("expected 3 meat, got %d", got)
	}
	if got := a.Inventory().Count(model.ResourceHide); got != 1 {
		t.Fatalf("expected 1 hide, got %d", got)
	}
	if h.count(model.StateMovingToSkin) != 1 {
		t.Fatalf("expected a walk to the carcass")
	}
}

func TestForceGatherTarget_WaitsOutEating(t *testing.T) {
	h := newHarness(t)
	th := h.ctx.World.AddTree(geom.V(3.5, 0, 0.5), 50)
	h.rebuild()
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{})
	a.Inventory().Add(model.ResourceFood, 3)
	st := a.Stats()
	st.Hunger = 35
	a.SetStats(st)

	h.stepUntil(t, 3, "EATING", func() bool { return a.State() == model.StateEating })
	if err := a.ForceGatherTarget(h.ctx, entities.TreeRef(th)); err != nil {
		t.Fatalf("force gather: %v", err)
	}
	if a.State() != model.StateEating {
		t.Fatalf("forced order must not cut the meal, got %s", a.State())
	}
	tree, _ := h.ctx.World.Trees.Get(th)
	if tree.ReservedBy() != "a" {
		t.Fatalf("expected tree reserved by a, got %q", tree.ReservedBy())
	}
	if len(a.Queue()) != 1 {
		t.Fatalf("expected the order queued, got %+v", a.Queue())
	}

	h.run(140)
	if h.count(model.StateChopping) == 0 {
		t.Fatalf("queued order never started: %+v", h.transitions)
	}
	if n := h.count(model.StateEating); n != 1 {
		t.Fatalf("expected one meal, got %d EATING transitions", n)
	}
}

func TestJobOff_HuntStopsAfterStrike(t *testing.T) {
	h := newHarness(t)
	dh := h.ctx.World.AddAnimal(entities.SpeciesDeer, geom.V(1.3, 0, 0.5))
	deer, _ := h.ctx.World.Animals.Get(dh)
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{HuntAnimals: true})

	h.stepUntil(t, 40, "strike", func() bool { return a.hunt == huntStrike })
	a.OnJobConfigurationChanged(model.JobFlags{})
	h.run(1)
	if a.State() != model.StateHunting {
		t.Fatalf("strike must not be cut short, got %s", a.State())
	}

	h.run(25)
	if a.State() != model.StateIdle {
		t.Fatalf("expected IDLE after the strike, got %s", a.State())
	}
	if r, _ := h.transitionReason(model.StateHunting, model.StateIdle); r != "huntAnimals disabled" {
		t.Fatalf("unexpected stop reason %q", r)
	}
	if deer.IsReserved() {
		t.Fatalf("deer still reserved by %q", deer.ReservedBy())
	}
	if want := 100 - h.ctx.Tuning.Hunting.MeleeDamage; deer.Health != want {
		t.Fatalf("expected exactly one strike, deer health %v", deer.Health)
	}
}

func TestJobOff_CraftStopsBeforeFetching(t *testing.T) {
	h := newHarness(t)
	s := h.ctx.Storage.Create(geom.V(10.5, 0, 0.5), 10, 50)
	if _, err := h.ctx.Storage.AddResource(s.ID, model.ResourceWood, 10); err != nil {
		t.Fatalf("seed storage: %v", err)
	}
	o := h.ctx.Crafts.Add(catalogs.Builtin().Recipes.ByID["plank"], 1)
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{CraftItems: true})

	h.run(2)
	if a.State() != model.StateCrafting {
		t.Fatalf("expected CRAFTING, got %s", a.State())
	}
	if o.ClaimedBy() != "a" {
		t.Fatalf("expected order claimed by a, got %q", o.ClaimedBy())
	}
	a.OnJobConfigurationChanged(model.JobFlags{})
	h.run(1)
	if a.State() != model.StateIdle {
		t.Fatalf("expected IDLE, got %s", a.State())
	}
	if r, _ := h.transitionReason(model.StateCrafting, model.StateIdle); r != "craftItems disabled" {
		t.Fatalf("unexpected stop reason %q", r)
	}
	if o.ClaimedBy() != "" {
		t.Fatalf("order still claimed by %q", o.ClaimedBy())
	}
	if got := s.Count(model.ResourceWood); got != 10 {
		t.Fatalf("inputs must stay in storage, got %d wood", got)
	}
}

func TestGoToStorage_TriesEveryCarriedResource(t *testing.T) {
	h := newHarness(t)
	s := h.ctx.Storage.Create(geom.V(5.5, 0, 0.5), 1, 50)
	if _, err := h.ctx.Storage.AddResource(s.ID, model.ResourceStone, 10); err != nil {
		t.Fatalf("seed storage: %v", err)
	}
	a := h.add("a", geom.V(0.5, 0, 0.5), model.JobFlags{})
	a.Inventory().Add(model.ResourceWood, 5)
	a.Inventory().Add(model.ResourceStone, 5)

	a.goToStorage(h.ctx, "unload")
	if a.State() != model.StateMovingToStorage {
		t.Fatalf("stone has a home, expected MOVING_TO_STORAGE, got %s", a.State())
	}
	if a.storageID != s.ID {
		t.Fatalf("expected storage %d, got %d", s.ID, a.storageID)
	}

	h.run(60)
	if got := s.Count(model.ResourceStone); got != 15 {
		t.Fatalf("expected 15 stone stored, got %d", got)
	}
	if !h.fallback(simerr.CodeStorageFull) {
		t.Fatalf("leftover wood should be dropped, got %+v", h.transitions)
	}
	if h.ctx.World.Items.Len() != 1 {
		t.Fatalf("expected the wood on the ground, got %d items", h.ctx.World.Items.Len())
	}
	if !a.Inventory().IsEmpty() {
		t.Fatalf("inventory should be empty, got %+v", a.Inventory().Stacks())
	}
}
