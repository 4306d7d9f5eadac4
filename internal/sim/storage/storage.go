package storage

import (
	"math"
	"sort"

	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/simerr"
)

// Storage is a slotted container. Each slot holds one resource up to
// StackSize units.
type Storage struct {
	ID        int
	Pos       geom.Vec3
	SlotCount int
	StackSize int

	slots []model.ItemStack
}

// Room returns how many more units of r fit.
func (s *Storage) Room(r model.Resource) int {
	room := 0
	for _, sl := range s.slots {
		if sl.Resource == r {
			room += s.StackSize - sl.Count
		}
	}
	room += (s.SlotCount - len(s.slots)) * s.StackSize
	return room
}

func (s *Storage) Count(r model.Resource) int {
	n := 0
	for _, sl := range s.slots {
		if sl.Resource == r {
			n += sl.Count
		}
	}
	return n
}

func (s *Storage) Used() int {
	n := 0
	for _, sl := range s.slots {
		n += sl.Count
	}
	return n
}

// Usage is the filled fraction of total capacity.
func (s *Storage) Usage() float64 {
	total := s.SlotCount * s.StackSize
	if total == 0 {
		return 1
	}
	return float64(s.Used()) / float64(total)
}

// Contents lists stacks sorted by resource.
func (s *Storage) Contents() []model.ItemStack {
	m := map[model.Resource]int{}
	for _, sl := range s.slots {
		m[sl.Resource] += sl.Count
	}
	out := make([]model.ItemStack, 0, len(m))
	for r, n := range m {
		out = append(out, model.ItemStack{Resource: r, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })
	return out
}

func (s *Storage) add(r model.Resource, n int) int {
	added := 0
	for i := range s.slots {
		if n == 0 {
			break
		}
		if s.slots[i].Resource != r {
			continue
		}
		k := s.StackSize - s.slots[i].Count
		if k > n {
			k = n
		}
		s.slots[i].Count += k
		n -= k
		added += k
	}
	for n > 0 && len(s.slots) < s.SlotCount {
		k := n
		if k > s.StackSize {
			k = s.StackSize
		}
		s.slots = append(s.slots, model.ItemStack{Resource: r, Count: k})
		n -= k
		added += k
	}
	return added
}

func (s *Storage) remove(r model.Resource, n int) int {
	removed := 0
	for i := len(s.slots) - 1; i >= 0 && n > 0; i-- {
		if s.slots[i].Resource != r {
			continue
		}
		k := s.slots[i].Count
		if k > n {
			k = n
		}
		s.slots[i].Count -= k
		n -= k
		removed += k
		if s.slots[i].Count == 0 {
			s.slots = append(s.slots[:i], s.slots[i+1:]...)
		}
	}
	return removed
}

// System owns every storage of a colony.
type System struct {
	nextID int
	byID   map[int]*Storage
	order  []int
}

func NewSystem() *System {
	return &System{byID: map[int]*Storage{}}
}

func (sys *System) Create(pos geom.Vec3, slotCount, stackSize int) *Storage {
	if slotCount <= 0 {
		slotCount = 10
	}
	if stackSize <= 0 {
		stackSize = 50
	}
	sys.nextID++
	s := &Storage{ID: sys.nextID, Pos: pos, SlotCount: slotCount, StackSize: stackSize}
	sys.byID[s.ID] = s
	sys.order = append(sys.order, s.ID)
	return s
}

func (sys *System) Remove(id int) bool {
	if _, ok := sys.byID[id]; !ok {
		return false
	}
	delete(sys.byID, id)
	for i, v := range sys.order {
		if v == id {
			sys.order = append(sys.order[:i], sys.order[i+1:]...)
			break
		}
	}
	return true
}

func (sys *System) Storage(id int) (*Storage, bool) {
	s, ok := sys.byID[id]
	return s, ok
}

// All returns storages in creation order.
func (sys *System) All() []*Storage {
	out := make([]*Storage, 0, len(sys.order))
	for _, id := range sys.order {
		out = append(out, sys.byID[id])
	}
	return out
}

func (sys *System) CanAddResource(id int, r model.Resource, n int) bool {
	s, ok := sys.byID[id]
	if !ok {
		return false
	}
	return s.Room(r) >= n
}

// AddResource stores as much of n as fits and returns the amount stored.
// Nothing stored yields ErrStorageFull.
func (sys *System) AddResource(id int, r model.Resource, n int) (int, error) {
	s, ok := sys.byID[id]
	if !ok {
		return 0, simerr.Wrap(simerr.ErrTargetInvalidated, "storage %d", id)
	}
	if n <= 0 {
		return 0, nil
	}
	added := s.add(r, n)
	if added == 0 {
		return 0, simerr.Wrap(simerr.ErrStorageFull, "storage %d", id)
	}
	return added, nil
}

// RemoveResource takes up to n units. Taking fewer than n yields
// ErrInsufficientResources along with the partial count.
func (sys *System) RemoveResource(id int, r model.Resource, n int) (int, error) {
	s, ok := sys.byID[id]
	if !ok {
		return 0, simerr.Wrap(simerr.ErrTargetInvalidated, "storage %d", id)
	}
	got := s.remove(r, n)
	if got < n {
		return got, simerr.Wrap(simerr.ErrInsufficientResources, "storage %d has %d/%d %s", id, got, n, r)
	}
	return got, nil
}

func (sys *System) Total(r model.Resource) int {
	n := 0
	for _, id := range sys.order {
		n += sys.byID[id].Count(r)
	}
	return n
}

// NearestAccepting returns the closest storage with room for r that is not
// in skip.
func (sys *System) NearestAccepting(pos geom.Vec3, r model.Resource, skip map[int]bool) (*Storage, bool) {
	return sys.nearest(pos, func(s *Storage) bool {
		return !skip[s.ID] && s.Room(r) > 0
	})
}

// NearestWith returns the closest storage holding at least atLeast units of r.
func (sys *System) NearestWith(pos geom.Vec3, r model.Resource, atLeast int) (*Storage, bool) {
	return sys.nearest(pos, func(s *Storage) bool { return s.Count(r) >= atLeast })
}

func (sys *System) nearest(pos geom.Vec3, keep func(*Storage) bool) (*Storage, bool) {
	var best *Storage
	bestD := math.Inf(1)
	for _, id := range sys.order {
		s := sys.byID[id]
		if !keep(s) {
			continue
		}
		if d := pos.DistXZ(s.Pos); d < bestD {
			best, bestD = s, d
		}
	}
	return best, best != nil
}
