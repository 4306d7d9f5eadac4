// Package crafting holds the colony's craft orders.
package crafting

import (
	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/storage"
)

// Order asks for Remaining runs of a recipe. One agent works an order at a
// time.
type Order struct {
	ID        int
	Recipe    catalogs.RecipeDef
	Remaining int

	claimedBy string
}

func (o *Order) ClaimedBy() string { return o.claimedBy }

type Board struct {
	nextID int
	orders []*Order
}

func NewBoard() *Board { return &Board{} }

func (b *Board) Add(r catalogs.RecipeDef, count int) *Order {
	if count <= 0 {
		count = 1
	}
	b.nextID++
	o := &Order{ID: b.nextID, Recipe: r, Remaining: count}
	b.orders = append(b.orders, o)
	return o
}

func (b *Board) Orders() []*Order { return b.orders }

func (b *Board) Get(id int) (*Order, bool) {
	for _, o := range b.orders {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// Available returns the oldest order agentID may work whose inputs are in
// storage right now.
func (b *Board) Available(st *storage.System, agentID string) (*Order, bool) {
	for _, o := range b.orders {
		if o.claimedBy != "" && o.claimedBy != agentID {
			continue
		}
		if InputsAvailable(st, o.Recipe) {
			return o, true
		}
	}
	return nil, false
}

func (b *Board) Claim(id int, agentID string) error {
	o, ok := b.Get(id)
	if !ok {
		return simerr.Wrap(simerr.ErrTargetInvalidated, "craft order %d", id)
	}
	if o.claimedBy != "" && o.claimedBy != agentID {
		return simerr.Wrap(simerr.ErrReservationConflict, "craft order %d held by %s", id, o.claimedBy)
	}
	o.claimedBy = agentID
	return nil
}

func (b *Board) Release(id int, agentID string) {
	if o, ok := b.Get(id); ok && o.claimedBy == agentID {
		o.claimedBy = ""
	}
}

func (b *Board) ReleaseAll(agentID string) {
	for _, o := range b.orders {
		if o.claimedBy == agentID {
			o.claimedBy = ""
		}
	}
}

// Complete records one finished run. Exhausted orders are removed.
func (b *Board) Complete(id int, agentID string) {
	for i, o := range b.orders {
		if o.ID != id {
			continue
		}
		o.Remaining--
		o.claimedBy = ""
		if o.Remaining <= 0 {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
		}
		return
	}
}

// InputsAvailable reports whether storages together hold one run's inputs.
func InputsAvailable(st *storage.System, r catalogs.RecipeDef) bool {
	for _, in := range r.Inputs {
		if st.Total(in.Item) < in.Count {
			return false
		}
	}
	return true
}
