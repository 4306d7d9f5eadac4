package settler

import (
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/storage"
)

// cargo lists the resources carried, held stack first, then inventory
// stacks in order.
func (a *Agent) cargo() []model.Resource {
	var out []model.Resource
	seen := map[model.Resource]bool{}
	if !a.hand.Empty() {
		out = append(out, a.hand.Resource)
		seen[a.hand.Resource] = true
	}
	for _, st := range a.inv.Stacks() {
		if st.Count > 0 && !seen[st.Resource] {
			out = append(out, st.Resource)
			seen[st.Resource] = true
		}
	}
	return out
}

// goToStorage heads for the nearest storage that accepts any carried
// resource, trying them in cargo order and skipping ignored storages. With
// nowhere left to go the load is dropped.
func (a *Agent) goToStorage(ctx *Context, reason string) {
	load := a.cargo()
	if len(load) == 0 {
		a.ignored = map[int]bool{}
		a.setState(ctx, model.StateIdle, "nothing to store")
		return
	}
	var pathErr error
	for _, res := range load {
		for {
			s, ok := ctx.Storage.NearestAccepting(a.pos, res, a.ignored)
			if !ok {
				break
			}
			if err := a.routeToStorage(ctx, s); err != nil {
				a.ignored[s.ID] = true
				pathErr = err
				continue
			}
			a.storageID = s.ID
			a.setState(ctx, model.StateMovingToStorage, reason)
			return
		}
	}
	n := a.DropEverything(ctx)
	a.ignored = map[int]bool{}
	err := simerr.Wrap(simerr.ErrStorageFull, "no room for %v, dropped %d stacks", load, n)
	if pathErr != nil {
		err = simerr.Wrap(simerr.ErrStorageUnreachable, "no reachable storage for %v, dropped %d stacks", load, n)
	}
	a.fail(ctx, err, reason)
}

// headToStorage targets one storage, falling back to any other on failure.
func (a *Agent) headToStorage(ctx *Context, s *storage.Storage, reason string) {
	if err := a.routeToStorage(ctx, s); err != nil {
		a.ignored[s.ID] = true
		a.goToStorage(ctx, reason)
		return
	}
	a.storageID = s.ID
	a.setState(ctx, model.StateMovingToStorage, reason)
}

func (a *Agent) routeToStorage(ctx *Context, s *storage.Storage) error {
	if a.canReach(ctx, s.Pos, ctx.Tuning.Movement.StorageRange) {
		a.follower.Clear()
		return nil
	}
	if err := a.approach(ctx, s.Pos); err != nil {
		return simerr.Wrap(simerr.ErrStorageUnreachable, "storage %d: %v", s.ID, err)
	}
	return nil
}

func (a *Agent) updateMovingToStorage(ctx *Context, dt float64) {
	s, ok := ctx.Storage.Storage(a.storageID)
	if !ok {
		a.goToStorage(ctx, "storage removed")
		return
	}
	if a.canReach(ctx, s.Pos, ctx.Tuning.Movement.StorageRange) {
		a.follower.Clear()
		a.actTimer = 0
		a.face(s.Pos)
		a.setState(ctx, model.StateDepositing, "at storage")
		return
	}
	if !a.follower.Active() {
		if err := a.approach(ctx, s.Pos); err != nil {
			a.ignored[s.ID] = true
			a.goToStorage(ctx, "storage unreachable")
			return
		}
	}
	a.step(ctx, dt, ctx.Tuning.Movement.ArriveDistance)
}

// updateDepositing empties the hand, then the inventory, into the storage.
// Whatever does not fit sends the agent on to another storage.
func (a *Agent) updateDepositing(ctx *Context, dt float64) {
	s, ok := ctx.Storage.Storage(a.storageID)
	if !ok {
		a.goToStorage(ctx, "storage removed")
		return
	}
	a.actTimer += dt
	if a.actTimer+1e-9 < ctx.Tuning.Work.DepositTime {
		return
	}
	a.actTimer = 0

	if !a.hand.Empty() {
		n, _ := ctx.Storage.AddResource(s.ID, a.hand.Resource, a.hand.Count)
		a.hand.Count -= n
		if a.hand.Count <= 0 {
			a.hand = model.ItemStack{}
		}
	}
	for _, st := range a.inv.Stacks() {
		if n, err := ctx.Storage.AddResource(s.ID, st.Resource, st.Count); err == nil {
			a.inv.Remove(st.Resource, n)
		}
	}
	if len(a.cargo()) > 0 {
		a.ignored[s.ID] = true
		a.goToStorage(ctx, "storage full")
		return
	}
	a.ignored = map[int]bool{}
	a.setState(ctx, model.StateIdle, "deposited")
}

// updateHauling walks to the reserved ground item, takes it in hand and
// carries it to storage.
func (a *Agent) updateHauling(ctx *Context, dt float64) {
	it, ok := a.worldItem(ctx)
	if !ok {
		a.fail(ctx, simerr.Wrap(simerr.ErrTargetInvalidated, "item"), "hauling")
		return
	}
	if !a.canReach(ctx, it.Pos, ctx.Tuning.Movement.InteractRange) {
		if !a.follower.Active() {
			if err := a.approach(ctx, it.Pos); err != nil {
				a.fail(ctx, err, "hauling")
				return
			}
		}
		a.step(ctx, dt, ctx.Tuning.Movement.ArriveDistance)
		return
	}
	a.follower.Clear()
	a.take(it)
	a.releaseWork(ctx)
	a.goToStorage(ctx, "hauling")
}

// updatePickingUp collects the item the agent stands at after a short
// delay.
func (a *Agent) updatePickingUp(ctx *Context, dt float64) {
	it, ok := a.worldItem(ctx)
	if !ok {
		a.fail(ctx, simerr.Wrap(simerr.ErrTargetInvalidated, "item"), "picking up")
		return
	}
	a.actTimer += dt
	if a.actTimer+1e-9 < ctx.Tuning.Work.PickupTime {
		return
	}
	a.actTimer = 0
	a.take(it)
	a.releaseWork(ctx)
	if !a.hand.Empty() || a.inv.IsFull() {
		a.goToStorage(ctx, "picked up")
		return
	}
	a.setState(ctx, model.StateIdle, "picked up")
}

func (a *Agent) worldItem(ctx *Context) (*entities.WorldItem, bool) {
	if a.target.Kind != entities.KindWorldItem {
		return nil, false
	}
	it, ok := ctx.World.Items.Get(a.target.Handle)
	if !ok || !it.IsActive() || !it.AvailableTo(a.id) {
		return nil, false
	}
	return it, true
}

// take moves a ground stack into the free hand, otherwise into the
// inventory. What does not fit stays on the ground.
func (a *Agent) take(it *entities.WorldItem) {
	if a.hand.Empty() {
		a.hand = it.Stack
		it.Stack = model.ItemStack{}
		return
	}
	n := a.inv.Add(it.Stack.Resource, it.Stack.Count)
	it.Stack.Count -= n
	if it.Stack.Count <= 0 {
		it.Stack = model.ItemStack{}
	}
}
