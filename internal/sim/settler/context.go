package settler

import (
	"log"

	"colonysim.ai/internal/sim/building"
	"colonysim.ai/internal/sim/crafting"
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/nav"
	"colonysim.ai/internal/sim/storage"
	"colonysim.ai/internal/sim/tuning"
)

// Recorder receives every state transition. It must not call back into
// the agent.
type Recorder interface {
	Record(t model.Transition)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(model.Transition)

func (f RecorderFunc) Record(t model.Transition) { f(t) }

// Context is the world an agent sees during one tick. The owner builds it
// once and passes it to every Update in registration order.
type Context struct {
	Tick     uint64
	Tuning   *tuning.Tuning
	Grid     *nav.Grid
	World    *entities.Registry
	Storage  *storage.System
	Building *building.System
	Crafts   *crafting.Board
	Recorder Recorder
	Log      *log.Logger

	gridDirty bool
}

// MarkGridDirty asks the owner to rebuild walkability after the tick.
func (c *Context) MarkGridDirty() { c.gridDirty = true }

// TakeGridDirty reports and clears the rebuild request.
func (c *Context) TakeGridDirty() bool {
	d := c.gridDirty
	c.gridDirty = false
	return d
}

func (c *Context) record(t model.Transition) {
	if c.Recorder != nil {
		c.Recorder.Record(t)
	}
}

func (c *Context) logf(format string, args ...any) {
	if c.Log != nil {
		c.Log.Printf(format, args...)
	}
}
