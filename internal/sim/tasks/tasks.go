package tasks

import (
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
)

type Kind string

const (
	KindMove     Kind = "MOVE"
	KindGather   Kind = "GATHER"
	KindChopTree Kind = "CHOP_TREE"
	KindMineRock Kind = "MINE_ROCK"
	KindBuild    Kind = "BUILD"
	KindWait     Kind = "WAIT"
	KindPickup   Kind = "PICKUP"
	KindDeposit  Kind = "DEPOSIT"
)

// Action is one primitive step of an agent's plan. Target is set for
// entity-directed kinds; Pos for Move and as a fallback location.
type Action struct {
	Kind     Kind
	Target   entities.Ref
	Pos      geom.Vec3
	Duration float64 // seconds, WAIT only

	// StorageID is the destination of a DEPOSIT.
	StorageID int
}

func MoveTo(pos geom.Vec3) Action { return Action{Kind: KindMove, Pos: pos} }
func Wait(seconds float64) Action { return Action{Kind: KindWait, Duration: seconds} }

func ChopTree(ref entities.Ref, pos geom.Vec3) Action {
	return Action{Kind: KindChopTree, Target: ref, Pos: pos}
}

func MineRock(ref entities.Ref, pos geom.Vec3) Action {
	return Action{Kind: KindMineRock, Target: ref, Pos: pos}
}

func Gather(ref entities.Ref, pos geom.Vec3) Action {
	return Action{Kind: KindGather, Target: ref, Pos: pos}
}

func Build(ref entities.Ref, pos geom.Vec3) Action {
	return Action{Kind: KindBuild, Target: ref, Pos: pos}
}

func Pickup(ref entities.Ref, pos geom.Vec3) Action {
	return Action{Kind: KindPickup, Target: ref, Pos: pos}
}

func Deposit(storageID int, pos geom.Vec3) Action {
	return Action{Kind: KindDeposit, StorageID: storageID, Pos: pos}
}

// NeedsProximity reports whether the agent must stand at the target before
// the action can start.
func (a Action) NeedsProximity() bool { return a.Kind != KindWait }

// Queue is the FIFO plan of one agent.
type Queue struct {
	items []Action
}

func (q *Queue) PushBack(a Action) { q.items = append(q.items, a) }

// PushFront puts a follow-up ahead of the rest of the plan.
func (q *Queue) PushFront(a Action) {
	q.items = append([]Action{a}, q.items...)
}

// PopFront removes and returns the front action.
func (q *Queue) PopFront() (Action, bool) {
	if len(q.items) == 0 {
		return Action{}, false
	}
	a := q.items[0]
	q.items[0] = Action{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return a, true
}

// Front returns the action at the head without removing it.
func (q *Queue) Front() (*Action, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return &q.items[0], true
}

func (q *Queue) Clear()   { q.items = nil }
func (q *Queue) Len() int { return len(q.items) }

// Replace swaps in a whole new plan.
func (q *Queue) Replace(actions ...Action) {
	q.items = append([]Action(nil), actions...)
}

// Items returns a copy of the queued actions in order.
func (q *Queue) Items() []Action { return append([]Action(nil), q.items...) }

// Targets lists the entity refs referenced by queued actions.
func (q *Queue) Targets() []entities.Ref {
	var out []entities.Ref
	for _, a := range q.items {
		if !a.Target.IsZero() {
			out = append(out, a.Target)
		}
	}
	return out
}
