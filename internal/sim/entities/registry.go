package entities

import (
	"math"

	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
)

// Registry owns every reservable world object of a colony.
type Registry struct {
	Trees   Arena[Tree]
	Nodes   Arena[ResourceNode]
	Animals Arena[Animal]
	Bushes  Arena[Bush]
	Items   Arena[WorldItem]
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) AddTree(pos geom.Vec3, wood float64) Handle {
	return r.Trees.Insert(Tree{Pos: pos, Wood: wood, MaxWood: wood})
}

func (r *Registry) AddNode(pos geom.Vec3, yield model.Resource, amount, regen float64) Handle {
	return r.Nodes.Insert(ResourceNode{Pos: pos, Yield: yield, Amount: amount, MaxAmount: amount, RegenRate: regen})
}

func (r *Registry) AddBush(pos geom.Vec3, berries, regen float64) Handle {
	return r.Bushes.Insert(Bush{Pos: pos, Berries: berries, MaxBerries: berries, RegenRate: regen})
}

func (r *Registry) AddAnimal(s Species, pos geom.Vec3) Handle {
	return r.Animals.Insert(NewAnimal(s, pos))
}

// DropItem places a stack on the ground and returns its handle.
func (r *Registry) DropItem(stack model.ItemStack, pos geom.Vec3, tick uint64) Handle {
	return r.Items.Insert(WorldItem{Pos: pos, Stack: stack, CreatedTick: tick})
}

// Resolve looks up any reservable variant. Build tasks are not owned here.
func (r *Registry) Resolve(ref Ref) (Reservable, bool) {
	switch ref.Kind {
	case KindTree:
		if v, ok := r.Trees.Get(ref.Handle); ok {
			return v, true
		}
	case KindResourceNode:
		if v, ok := r.Nodes.Get(ref.Handle); ok {
			return v, true
		}
	case KindAnimal:
		if v, ok := r.Animals.Get(ref.Handle); ok {
			return v, true
		}
	case KindWorldItem:
		if v, ok := r.Items.Get(ref.Handle); ok {
			return v, true
		}
	case KindBush:
		if v, ok := r.Bushes.Get(ref.Handle); ok {
			return v, true
		}
	case KindNone, KindBuildTask:
	}
	return nil, false
}

// Release drops agentID's reservation on ref, if it holds one.
func (r *Registry) Release(ref Ref, agentID string) bool {
	v, ok := r.Resolve(ref)
	if !ok {
		return false
	}
	return v.ReleaseIfHeldBy(agentID)
}

// ReleaseAll drops every reservation agentID holds and returns the count.
func (r *Registry) ReleaseAll(agentID string) int {
	n := 0
	release := func(res *Reservation) {
		if res.ReleaseIfHeldBy(agentID) {
			n++
		}
	}
	r.Trees.Each(func(_ Handle, v *Tree) bool { release(&v.Reservation); return true })
	r.Nodes.Each(func(_ Handle, v *ResourceNode) bool { release(&v.Reservation); return true })
	r.Animals.Each(func(_ Handle, v *Animal) bool { release(&v.Reservation); return true })
	r.Bushes.Each(func(_ Handle, v *Bush) bool { release(&v.Reservation); return true })
	r.Items.Each(func(_ Handle, v *WorldItem) bool { release(&v.Reservation); return true })
	return n
}

// Holders returns holder id per reserved ref, for invariant checks.
func (r *Registry) Holders() map[Ref]string {
	out := map[Ref]string{}
	add := func(ref Ref, res *Reservation) {
		if res.IsReserved() {
			out[ref] = res.ReservedBy()
		}
	}
	r.Trees.Each(func(h Handle, v *Tree) bool { add(TreeRef(h), &v.Reservation); return true })
	r.Nodes.Each(func(h Handle, v *ResourceNode) bool { add(NodeRef(h), &v.Reservation); return true })
	r.Animals.Each(func(h Handle, v *Animal) bool { add(AnimalRef(h), &v.Reservation); return true })
	r.Bushes.Each(func(h Handle, v *Bush) bool { add(BushRef(h), &v.Reservation); return true })
	r.Items.Each(func(h Handle, v *WorldItem) bool { add(ItemRef(h), &v.Reservation); return true })
	return out
}

// Filter narrows a nearest-object query.
type Filter func(ref Ref, v Reservable) bool

// Nearest returns the closest active object of kind that agentID may
// claim. Equal distances resolve to the lower slot index.
func (r *Registry) Nearest(kind Kind, from geom.Vec3, agentID string, maxDist float64, keep Filter) (Ref, bool) {
	best := Ref{}
	bestD := math.Inf(1)
	if maxDist <= 0 {
		maxDist = math.Inf(1)
	}
	consider := func(ref Ref, v Reservable) {
		if !v.IsActive() || !v.AvailableTo(agentID) {
			return
		}
		if keep != nil && !keep(ref, v) {
			return
		}
		d := from.DistXZ(v.Position())
		if d > maxDist || d >= bestD {
			return
		}
		best, bestD = ref, d
	}
	switch kind {
	case KindTree:
		r.Trees.Each(func(h Handle, v *Tree) bool { consider(TreeRef(h), v); return true })
	case KindResourceNode:
		r.Nodes.Each(func(h Handle, v *ResourceNode) bool { consider(NodeRef(h), v); return true })
	case KindAnimal:
		r.Animals.Each(func(h Handle, v *Animal) bool { consider(AnimalRef(h), v); return true })
	case KindWorldItem:
		r.Items.Each(func(h Handle, v *WorldItem) bool { consider(ItemRef(h), v); return true })
	case KindBush:
		r.Bushes.Each(func(h Handle, v *Bush) bool { consider(BushRef(h), v); return true })
	case KindNone, KindBuildTask:
	}
	return best, !best.IsZero()
}

// RemoveEmptyItems deletes ground stacks that have been fully picked up.
func (r *Registry) RemoveEmptyItems() {
	var dead []Handle
	r.Items.Each(func(h Handle, v *WorldItem) bool {
		if !v.IsActive() {
			dead = append(dead, h)
		}
		return true
	})
	for _, h := range dead {
		r.Items.Remove(h)
	}
}
