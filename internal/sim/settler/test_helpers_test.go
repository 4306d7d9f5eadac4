package settler

import (
	"testing"

	"colonysim.ai/internal/sim/building"
	"colonysim.ai/internal/sim/crafting"
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/nav"
	"colonysim.ai/internal/sim/storage"
	"colonysim.ai/internal/sim/tuning"
)

type harness struct {
	ctx         *Context
	agents      []*Agent
	transitions []model.Transition
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tu := tuning.Default()
	st := storage.NewSystem()
	h := &harness{}
	h.ctx = &Context{
		Tuning:   &tu,
		Grid:     nav.NewGrid(tu.Grid.Width, tu.Grid.Height, tu.Grid.TileSize),
		World:    entities.NewRegistry(),
		Storage:  st,
		Building: building.NewSystem(nil, st),
		Crafts:   crafting.NewBoard(),
		Recorder: RecorderFunc(func(tr model.Transition) { h.transitions = append(h.transitions, tr) }),
	}
	return h
}

func (h *harness) add(id string, pos geom.Vec3, jobs model.JobFlags) *Agent {
	a := New(id, id, pos, h.ctx.Tuning, int64(len(h.agents)+1))
	a.OnJobConfigurationChanged(jobs)
	h.agents = append(h.agents, a)
	return a
}

// rebuild blocks the cells of every live tree.
func (h *harness) rebuild() {
	var trees []geom.Vec3
	h.ctx.World.Trees.Each(func(_ entities.Handle, tr *entities.Tree) bool {
		if !tr.Stump {
			trees = append(trees, tr.Pos)
		}
		return true
	})
	h.ctx.Grid.Rebuild(nav.Obstacles{Trees: trees})
}

func (h *harness) run(ticks int) {
	dt := h.ctx.Tuning.DT()
	for i := 0; i < ticks; i++ {
		h.ctx.Tick++
		for _, a := range h.agents {
			a.Update(h.ctx, dt)
		}
		if h.ctx.TakeGridDirty() {
			h.rebuild()
		}
	}
}

func (h *harness) count(to model.State) int {
	n := 0
	for _, tr := range h.transitions {
		if tr.To == to {
			n++
		}
	}
	return n
}

func (h *harness) fallback(code string) bool {
	for _, tr := range h.transitions {
		if tr.Fallback && tr.Code == code {
			return true
		}
	}
	return false
}

// stepUntil runs single ticks until done holds, failing after max ticks.
func (h *harness) stepUntil(t *testing.T, max int, what string, done func() bool) {
	t.Helper()
	for i := 0; i < max; i++ {
		if done() {
			return
		}
		h.run(1)
	}
	if !done() {
		t.Fatalf("%s not reached after %d ticks", what, max)
	}
}

func (h *harness) transitionReason(from, to model.State) (string, bool) {
	for _, tr := range h.transitions {
		if tr.From == from && tr.To == to {
			return tr.Reason, true
		}
	}
	return "", false
}
