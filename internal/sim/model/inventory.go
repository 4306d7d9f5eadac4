package model

import "math"

// Inventory holds stacks in a bounded number of slots under a weight cap.
// A resource occupies at most one slot.
type Inventory struct {
	MaxSlots int
	Capacity float64

	slots []ItemStack
}

func NewInventory(maxSlots int, capacity float64) *Inventory {
	if maxSlots <= 0 {
		maxSlots = 10
	}
	if capacity <= 0 {
		capacity = 50
	}
	return &Inventory{MaxSlots: maxSlots, Capacity: capacity}
}

func (inv *Inventory) Weight() float64 {
	var w float64
	for _, s := range inv.slots {
		w += s.Weight()
	}
	return w
}

// IsFull reports that not even the lightest unit of any stored resource
// fits any more.
func (inv *Inventory) IsFull() bool {
	free := inv.Capacity - inv.Weight()
	if free <= 1e-9 {
		return true
	}
	if len(inv.slots) < inv.MaxSlots {
		return false
	}
	for _, s := range inv.slots {
		if s.Resource.Weight() <= free {
			return false
		}
	}
	return true
}

func (inv *Inventory) IsEmpty() bool { return len(inv.slots) == 0 }

// Room returns how many units of r could still be added.
func (inv *Inventory) Room(r Resource) int {
	w := r.Weight()
	if w <= 0 {
		return 0
	}
	if inv.Count(r) == 0 && len(inv.slots) >= inv.MaxSlots {
		return 0
	}
	free := inv.Capacity - inv.Weight()
	if free <= 0 {
		return 0
	}
	return int(math.Floor(free/w + 1e-9))
}

// Add stores up to n units of r and returns how many were stored.
func (inv *Inventory) Add(r Resource, n int) int {
	if n <= 0 || r == ResourceNone {
		return 0
	}
	if room := inv.Room(r); n > room {
		n = room
	}
	if n == 0 {
		return 0
	}
	for i := range inv.slots {
		if inv.slots[i].Resource == r {
			inv.slots[i].Count += n
			return n
		}
	}
	inv.slots = append(inv.slots, ItemStack{Resource: r, Count: n})
	return n
}

// Remove takes up to n units of r and returns how many were taken.
func (inv *Inventory) Remove(r Resource, n int) int {
	for i := range inv.slots {
		if inv.slots[i].Resource != r {
			continue
		}
		if n > inv.slots[i].Count {
			n = inv.slots[i].Count
		}
		inv.slots[i].Count -= n
		if inv.slots[i].Count == 0 {
			inv.slots = append(inv.slots[:i], inv.slots[i+1:]...)
		}
		return n
	}
	return 0
}

func (inv *Inventory) Count(r Resource) int {
	for _, s := range inv.slots {
		if s.Resource == r {
			return s.Count
		}
	}
	return 0
}

// Stacks returns a copy of the slots in insertion order.
func (inv *Inventory) Stacks() []ItemStack {
	return append([]ItemStack(nil), inv.slots...)
}

// TakeAll empties the inventory and returns what it held.
func (inv *Inventory) TakeAll() []ItemStack {
	out := inv.slots
	inv.slots = nil
	return out
}

// FirstEdible returns the first edible resource held.
func (inv *Inventory) FirstEdible() (Resource, bool) {
	for _, s := range inv.slots {
		if s.Resource.Edible() && s.Count > 0 {
			return s.Resource, true
		}
	}
	return ResourceNone, false
}
