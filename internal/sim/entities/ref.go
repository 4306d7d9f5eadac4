package entities

import "colonysim.ai/internal/sim/geom"

// Kind tags the world-object variant a Ref points at.
type Kind uint8

const (
	KindNone Kind = iota
	KindTree
	KindResourceNode
	KindAnimal
	KindWorldItem
	KindBush
	KindBuildTask
)

func (k Kind) String() string {
	switch k {
	case KindTree:
		return "tree"
	case KindResourceNode:
		return "resource_node"
	case KindAnimal:
		return "animal"
	case KindWorldItem:
		return "world_item"
	case KindBush:
		return "bush"
	case KindBuildTask:
		return "build_task"
	}
	return "none"
}

// Ref is a typed, generation-checked reference to a world object.
type Ref struct {
	Kind   Kind   `json:"kind"`
	Handle Handle `json:"handle"`
}

func (r Ref) IsZero() bool { return r.Kind == KindNone || r.Handle.IsZero() }

func TreeRef(h Handle) Ref   { return Ref{Kind: KindTree, Handle: h} }
func NodeRef(h Handle) Ref   { return Ref{Kind: KindResourceNode, Handle: h} }
func AnimalRef(h Handle) Ref { return Ref{Kind: KindAnimal, Handle: h} }
func ItemRef(h Handle) Ref   { return Ref{Kind: KindWorldItem, Handle: h} }
func BushRef(h Handle) Ref   { return Ref{Kind: KindBush, Handle: h} }
func TaskRef(h Handle) Ref   { return Ref{Kind: KindBuildTask, Handle: h} }

// Reservable is the contract every claimable world object satisfies.
type Reservable interface {
	Position() geom.Vec3
	IsActive() bool
	IsReserved() bool
	ReservedBy() string
	Reserve(agentID string) error
	ReleaseReservation()
	ReleaseIfHeldBy(agentID string) bool
	AvailableTo(agentID string) bool
}

var (
	_ Reservable = (*Tree)(nil)
	_ Reservable = (*ResourceNode)(nil)
	_ Reservable = (*Animal)(nil)
	_ Reservable = (*WorldItem)(nil)
	_ Reservable = (*Bush)(nil)
)
