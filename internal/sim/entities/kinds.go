package entities

import (
	"math"
	"math/rand"

	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
)

// Tree yields wood. Once emptied it becomes a stump and stops blocking the
// grid.
type Tree struct {
	Reservation

	Pos     geom.Vec3
	Wood    float64
	MaxWood float64
	Stump   bool
}

func (t *Tree) Position() geom.Vec3 { return t.Pos }
func (t *Tree) IsActive() bool      { return !t.Stump && t.Wood > 0 }

// Harvest removes up to amount wood and returns what was taken. Emptying the
// tree turns it into a stump and drops any reservation on it.
func (t *Tree) Harvest(amount float64) float64 {
	if !t.IsActive() || amount <= 0 {
		return 0
	}
	taken := amount
	if taken > t.Wood {
		taken = t.Wood
	}
	t.Wood -= taken
	if t.Wood <= 0 {
		t.Wood = 0
		t.Stump = true
		t.ReleaseReservation()
	}
	return taken
}

// ResourceNode is a regenerating deposit such as a rock.
type ResourceNode struct {
	Reservation

	Pos       geom.Vec3
	Yield     model.Resource
	Amount    float64
	MaxAmount float64
	RegenRate float64
	Depleted  bool
}

func (n *ResourceNode) Position() geom.Vec3 { return n.Pos }
func (n *ResourceNode) IsActive() bool      { return !n.Depleted && n.Amount > 0 }

func (n *ResourceNode) Harvest(amount float64) float64 {
	if !n.IsActive() || amount <= 0 {
		return 0
	}
	taken := amount
	if taken > n.Amount {
		taken = n.Amount
	}
	n.Amount -= taken
	if n.Amount <= 0 {
		n.Amount = 0
		n.Depleted = true
		n.ReleaseReservation()
	}
	return taken
}

// Regenerate refills the node over dt seconds. A depleted node only becomes
// active again once full. Returns true when the depleted flag flipped.
func (n *ResourceNode) Regenerate(dt float64) bool {
	if n.RegenRate <= 0 || n.Amount >= n.MaxAmount {
		return false
	}
	n.Amount += n.RegenRate * dt
	if n.Amount >= n.MaxAmount {
		n.Amount = n.MaxAmount
		if n.Depleted {
			n.Depleted = false
			return true
		}
	}
	return false
}

// Bush holds berries. It never blocks movement.
type Bush struct {
	Reservation

	Pos        geom.Vec3
	Berries    float64
	MaxBerries float64
	RegenRate  float64
}

func (b *Bush) Position() geom.Vec3 { return b.Pos }
func (b *Bush) IsActive() bool      { return b.Berries >= 1 }

func (b *Bush) Harvest(amount float64) float64 {
	if b.Berries <= 0 || amount <= 0 {
		return 0
	}
	taken := amount
	if taken > b.Berries {
		taken = b.Berries
	}
	b.Berries -= taken
	if b.Berries < 1 {
		b.ReleaseReservation()
	}
	return taken
}

func (b *Bush) Regenerate(dt float64) {
	if b.RegenRate <= 0 || b.Berries >= b.MaxBerries {
		return
	}
	b.Berries += b.RegenRate * dt
	if b.Berries > b.MaxBerries {
		b.Berries = b.MaxBerries
	}
}

type Species uint8

const (
	SpeciesRabbit Species = iota
	SpeciesDeer
)

func (s Species) String() string {
	if s == SpeciesDeer {
		return "deer"
	}
	return "rabbit"
}

func ParseSpecies(name string) (Species, bool) {
	switch name {
	case "rabbit":
		return SpeciesRabbit, true
	case "deer":
		return SpeciesDeer, true
	}
	return SpeciesRabbit, false
}

// Animal is huntable game. It wanders while alive and flees when hurt.
type Animal struct {
	Reservation

	Species   Species
	Pos       geom.Vec3
	Health    float64
	MaxHealth float64
	Speed     float64
	Skinned   bool

	moving    bool
	target    geom.Vec3
	idleTimer float64
}

// NewAnimal applies per-species health and speed.
func NewAnimal(s Species, pos geom.Vec3) Animal {
	a := Animal{Species: s, Pos: pos, MaxHealth: 20, Speed: 3, idleTimer: 2}
	if s == SpeciesDeer {
		a.MaxHealth, a.Speed = 100, 5
	}
	a.Health = a.MaxHealth
	return a
}

func (a *Animal) Position() geom.Vec3 { return a.Pos }
func (a *Animal) IsActive() bool      { return a.Health > 0 }
func (a *Animal) Dead() bool          { return a.Health <= 0 }

// MeatYield is the meat a skinned carcass gives.
func (a *Animal) MeatYield() int {
	if a.Species == SpeciesDeer {
		return 8
	}
	return 3
}

// TakeDamage reports whether this hit killed the animal. A surviving animal
// bolts up to fleeDist away.
func (a *Animal) TakeDamage(amount float64, rng *rand.Rand, fleeDist float64) bool {
	if a.Dead() || amount <= 0 {
		return false
	}
	a.Health -= amount
	if a.Health <= 0 {
		a.Health = 0
		a.moving = false
		return true
	}
	if fleeDist > 0 && rng != nil {
		a.target = a.randomPoint(rng, fleeDist, fleeDist)
		a.moving = true
	}
	return false
}

// Update advances the wander loop by dt seconds.
func (a *Animal) Update(dt float64, rng *rand.Rand) {
	if a.Dead() {
		return
	}
	if a.moving {
		if a.Pos.DistXZ(a.target) < 0.1 {
			a.moving = false
			a.idleTimer = 2 + rng.Float64()*3
			return
		}
		a.Pos = geom.MoveTowards(a.Pos, a.target, a.Speed*dt)
		return
	}
	a.idleTimer -= dt
	if a.idleTimer <= 0 {
		a.target = a.randomPoint(rng, 3, 8)
		a.moving = true
	}
}

func (a *Animal) randomPoint(rng *rand.Rand, minD, maxD float64) geom.Vec3 {
	ang := rng.Float64() * 2 * math.Pi
	d := minD + rng.Float64()*(maxD-minD)
	return geom.Vec3{X: a.Pos.X + d*math.Cos(ang), Y: a.Pos.Y, Z: a.Pos.Z + d*math.Sin(ang)}
}

// WorldItem is a stack lying on the ground.
type WorldItem struct {
	Reservation

	Pos         geom.Vec3
	Stack       model.ItemStack
	CreatedTick uint64
}

func (w *WorldItem) Position() geom.Vec3 { return w.Pos }
func (w *WorldItem) IsActive() bool      { return !w.Stack.Empty() }
