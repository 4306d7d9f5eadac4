package entities

// Handle addresses an arena slot. A handle goes stale once its slot is
// removed; the zero Handle never resolves.
type Handle struct {
	Index uint32 `json:"index"`
	Gen   uint32 `json:"gen"`
}

func (h Handle) IsZero() bool { return h.Gen == 0 }

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// Arena is a generational slot allocator. Lookups validate the generation,
// so a removed entity can never be reached through an old handle.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	n     int
}

func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if k := len(a.free); k > 0 {
		idx = a.free[k-1]
		a.free = a.free[:k-1]
	} else {
		a.slots = append(a.slots, slot[T]{gen: 1})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.live = true
	s.val = v
	a.n++
	return Handle{Index: idx, Gen: s.gen}
}

func (a *Arena[T]) Get(h Handle) (*T, bool) {
	if h.Gen == 0 || int(h.Index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.Index]
	if !s.live || s.gen != h.Gen {
		return nil, false
	}
	return &s.val, true
}

func (a *Arena[T]) Contains(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove frees the slot and invalidates every outstanding handle to it.
func (a *Arena[T]) Remove(h Handle) bool {
	if _, ok := a.Get(h); !ok {
		return false
	}
	s := &a.slots[h.Index]
	var zero T
	s.val = zero
	s.live = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.free = append(a.free, h.Index)
	a.n--
	return true
}

func (a *Arena[T]) Len() int { return a.n }

// Each visits live entries in slot order until fn returns false.
func (a *Arena[T]) Each(fn func(Handle, *T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if !fn(Handle{Index: uint32(i), Gen: s.gen}, &s.val) {
			return
		}
	}
}
