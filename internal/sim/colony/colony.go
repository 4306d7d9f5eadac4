// Package colony owns one settlement: the shared grid, the world objects
// and the settlers, and advances them in fixed ticks.
package colony

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"colonysim.ai/internal/sim/building"
	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/crafting"
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/nav"
	"colonysim.ai/internal/sim/settler"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/storage"
	"colonysim.ai/internal/sim/tuning"
)

type Config struct {
	ID       string
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs // builtin catalogs when nil
}

type Option func(*Colony)

func WithLogger(l *log.Logger) Option { return func(c *Colony) { c.log = l } }

func WithRecorder(r settler.Recorder) Option { return func(c *Colony) { c.recorder = r } }

// WithSeed overrides the tuning seed.
func WithSeed(seed int64) Option { return func(c *Colony) { c.seed = seed } }

// bedKey identifies one bed slot of one building.
type bedKey struct {
	building int
	index    int
}

// Colony is a single-threaded simulation. All state must be accessed only
// from the goroutine that calls Step, or from Run's loop.
type Colony struct {
	cfg    Config
	cats   *catalogs.Catalogs
	tuning tuning.Tuning
	tick   atomic.Uint64

	grid     *nav.Grid
	world    *entities.Registry
	storage  *storage.System
	building *building.System
	crafts   *crafting.Board

	agents    []*settler.Agent
	byID      map[string]*settler.Agent
	beds      map[bedKey]string
	nextAgent int

	seed     int64
	rng      *rand.Rand
	recorder settler.Recorder
	log      *log.Logger
	ctx      settler.Context

	tuningIn chan tuning.Tuning
	cmds     chan func(*Colony)
	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config, opts ...Option) *Colony {
	cats := cfg.Catalogs
	if cats == nil {
		cats = catalogs.Builtin()
	}
	c := &Colony{
		cfg:      cfg,
		cats:     cats,
		tuning:   cfg.Tuning,
		world:    entities.NewRegistry(),
		storage:  storage.NewSystem(),
		crafts:   crafting.NewBoard(),
		byID:     map[string]*settler.Agent{},
		beds:     map[bedKey]string{},
		seed:     cfg.Tuning.Sim.Seed,
		tuningIn: make(chan tuning.Tuning, 1),
		cmds:     make(chan func(*Colony), 64),
		stop:     make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	g := c.tuning.Grid
	c.grid = nav.NewGrid(g.Width, g.Height, g.TileSize)
	c.building = building.NewSystem(c.cats, c.storage)
	c.rng = rand.New(rand.NewSource(c.seed))
	c.ctx = settler.Context{
		Tuning:   &c.tuning,
		Grid:     c.grid,
		World:    c.world,
		Storage:  c.storage,
		Building: c.building,
		Crafts:   c.crafts,
		Recorder: c.recorder,
		Log:      c.log,
	}
	return c
}

func (c *Colony) ID() string                     { return c.cfg.ID }
func (c *Colony) Tick() uint64                   { return c.tick.Load() }
func (c *Colony) Tuning() tuning.Tuning          { return c.tuning }
func (c *Colony) Grid() *nav.Grid                { return c.grid }
func (c *Colony) World() *entities.Registry      { return c.world }
func (c *Colony) Storage() *storage.System       { return c.storage }
func (c *Colony) Buildings() *building.System    { return c.building }
func (c *Colony) Crafts() *crafting.Board        { return c.crafts }
func (c *Colony) Context() *settler.Context      { return &c.ctx }
func (c *Colony) Agents() []*settler.Agent       { return append([]*settler.Agent(nil), c.agents...) }
func (c *Colony) Agent(id string) *settler.Agent { return c.byID[id] }

func (c *Colony) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}

// AddSettler registers a new idle settler. Settlers update in the order
// they were added.
func (c *Colony) AddSettler(name string, pos geom.Vec3) *settler.Agent {
	c.nextAgent++
	id := fmt.Sprintf("S%04d", c.nextAgent)
	if name == "" {
		name = id
	}
	a := settler.New(id, name, pos, &c.tuning, c.seed+int64(c.nextAgent))
	c.agents = append(c.agents, a)
	c.byID[id] = a
	c.assignBeds()
	return a
}

// RemoveSettler drops the settler's load on the ground and frees every
// claim it held.
func (c *Colony) RemoveSettler(id string) bool {
	a, ok := c.byID[id]
	if !ok {
		return false
	}
	a.DropEverything(&c.ctx)
	a.Release(&c.ctx)
	for k, holder := range c.beds {
		if holder == id {
			delete(c.beds, k)
		}
	}
	delete(c.byID, id)
	for i, x := range c.agents {
		if x == a {
			c.agents = append(c.agents[:i], c.agents[i+1:]...)
			break
		}
	}
	return true
}

// SetJobs changes a settler's job flags; the change is acted on at its
// next update.
func (c *Colony) SetJobs(id string, jobs model.JobFlags) error {
	a, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("unknown settler %q", id)
	}
	a.OnJobConfigurationChanged(jobs)
	return nil
}

func (c *Colony) AddTree(pos geom.Vec3, wood float64) entities.Handle {
	c.ctx.MarkGridDirty()
	return c.world.AddTree(pos, wood)
}

func (c *Colony) AddRock(pos geom.Vec3, amount, regen float64) entities.Handle {
	c.ctx.MarkGridDirty()
	return c.world.AddNode(pos, model.ResourceStone, amount, regen)
}

func (c *Colony) AddBush(pos geom.Vec3, berries, regen float64) entities.Handle {
	return c.world.AddBush(pos, berries, regen)
}

func (c *Colony) AddAnimal(s entities.Species, pos geom.Vec3) entities.Handle {
	return c.world.AddAnimal(s, pos)
}

func (c *Colony) AddDroppedItem(stack model.ItemStack, pos geom.Vec3) entities.Handle {
	return c.world.DropItem(stack, pos, c.tick.Load())
}

// PlaceBuilding creates a finished building; storages start with contents.
func (c *Colony) PlaceBuilding(blueprintID string, pos geom.Vec3, yaw float64, contents ...model.ItemStack) (*building.Instance, error) {
	in := c.building.Place(blueprintID, pos, yaw)
	if in == nil {
		return nil, simerr.Wrap(simerr.ErrTargetInvalidated, "unknown blueprint %q", blueprintID)
	}
	for _, st := range contents {
		if in.StorageID == 0 {
			return in, simerr.Wrap(simerr.ErrStorageFull, "%s has no storage", blueprintID)
		}
		if _, err := c.storage.AddResource(in.StorageID, st.Resource, st.Count); err != nil {
			return in, err
		}
	}
	c.assignBeds()
	return in, nil
}

// StartBuilding opens a construction site, consuming its materials.
func (c *Colony) StartBuilding(blueprintID string, pos geom.Vec3, yaw float64) (entities.Handle, error) {
	return c.building.StartBuilding(blueprintID, pos, yaw)
}

func (c *Colony) AddCraftOrder(recipeID string, count int) (*crafting.Order, error) {
	r, ok := c.cats.Recipes.ByID[recipeID]
	if !ok {
		return nil, simerr.Wrap(simerr.ErrTargetInvalidated, "unknown recipe %q", recipeID)
	}
	return c.crafts.Add(r, count), nil
}

// ApplyTuning swaps the weights between ticks.
func (c *Colony) ApplyTuning(t tuning.Tuning) {
	c.tuning = t
	for _, a := range c.agents {
		a.ApplyTuning(&c.tuning)
	}
	c.logf("colony %s: tuning applied (%s)", c.cfg.ID, tuning.Digest(t)[:12])
}

// RebuildGrid recomputes walkability from buildings, live trees and
// undepleted rocks.
func (c *Colony) RebuildGrid() {
	obs := nav.Obstacles{Buildings: c.building.Footprints()}
	c.world.Trees.Each(func(_ entities.Handle, t *entities.Tree) bool {
		if !t.Stump {
			obs.Trees = append(obs.Trees, t.Pos)
		}
		return true
	})
	c.world.Nodes.Each(func(_ entities.Handle, n *entities.ResourceNode) bool {
		if !n.Depleted {
			obs.Resources = append(obs.Resources, n.Pos)
		}
		return true
	})
	c.grid.Rebuild(obs)
}

// Step advances the colony by one tick: world regeneration, every settler
// in registration order, then cleanup and grid maintenance.
func (c *Colony) Step() {
	tick := c.tick.Add(1)
	dt := c.tuning.DT()
	c.ctx.Tick = tick

	c.world.Bushes.Each(func(_ entities.Handle, b *entities.Bush) bool {
		b.Regenerate(dt)
		return true
	})
	c.world.Nodes.Each(func(_ entities.Handle, n *entities.ResourceNode) bool {
		if n.Regenerate(dt) {
			c.ctx.MarkGridDirty()
		}
		return true
	})
	c.world.Animals.Each(func(_ entities.Handle, an *entities.Animal) bool {
		an.Update(dt, c.rng)
		return true
	})

	for _, a := range c.agents {
		a.Update(&c.ctx, dt)
	}

	var dead []string
	for _, a := range c.agents {
		if !a.Alive() {
			dead = append(dead, a.ID())
		}
	}
	for _, id := range dead {
		c.logf("colony %s: %s died at tick %d", c.cfg.ID, id, tick)
		c.RemoveSettler(id)
	}
	c.world.RemoveEmptyItems()

	buildingsChanged := c.building.TakeDirty()
	if c.ctx.TakeGridDirty() || buildingsChanged {
		c.RebuildGrid()
	}
	if buildingsChanged {
		c.assignBeds()
	}
}

// assignBeds hands free beds to settlers without one, in registration
// order.
func (c *Colony) assignBeds() {
	var free []bedKey
	var pos []geom.Vec3
	for _, in := range c.building.Instances() {
		for i, p := range in.Beds {
			k := bedKey{in.ID, i}
			if _, taken := c.beds[k]; !taken {
				free = append(free, k)
				pos = append(pos, p)
			}
		}
	}
	for _, a := range c.agents {
		if len(free) == 0 {
			return
		}
		if a.Bed() != nil {
			continue
		}
		a.AssignBed(&settler.Bed{BuildingID: free[0].building, Pos: pos[0]})
		c.beds[free[0]] = a.ID()
		free, pos = free[1:], pos[1:]
	}
}

// UpdateTuning queues new weights for Run to apply before the next tick.
// A pending update not yet applied is replaced.
func (c *Colony) UpdateTuning(t tuning.Tuning) {
	for {
		select {
		case c.tuningIn <- t:
			return
		default:
		}
		select {
		case <-c.tuningIn:
		default:
		}
	}
}

// Do runs fn on Run's loop between ticks.
func (c *Colony) Do(ctx context.Context, fn func(*Colony)) error {
	select {
	case c.cmds <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stop:
		return fmt.Errorf("colony %s stopped", c.cfg.ID)
	}
}

// Run ticks at the configured rate until ctx ends, Stop is called or
// maxTicks ticks have run (0 runs forever).
func (c *Colony) Run(ctx context.Context, maxTicks uint64) error {
	hz := c.tuning.Sim.TickRateHz
	if hz <= 0 {
		hz = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	c.RebuildGrid()
	for {
		// Pending weights apply before anything else queued.
		select {
		case t := <-c.tuningIn:
			c.ApplyTuning(t)
		default:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		case t := <-c.tuningIn:
			c.ApplyTuning(t)
		case fn := <-c.cmds:
			fn(c)
		case <-ticker.C:
			c.Step()
			if maxTicks > 0 && c.tick.Load() >= maxTicks {
				return nil
			}
		}
	}
}

// RunFor steps n ticks as fast as possible, for headless runs and tests.
func (c *Colony) RunFor(n int) {
	for i := 0; i < n; i++ {
		c.Step()
	}
}

func (c *Colony) Stop() { c.stopOnce.Do(func() { close(c.stop) }) }

// MultiRecorder fans transitions out to several recorders.
type MultiRecorder []settler.Recorder

func (m MultiRecorder) Record(t model.Transition) {
	for _, r := range m {
		if r != nil {
			r.Record(t)
		}
	}
}

// Summary is a point-in-time overview for status output.
type Summary struct {
	Tick          uint64
	Settlers      int
	States        map[model.State]int
	Stored        map[model.Resource]int
	Buildings     int
	PendingBuilds int
	GroundItems   int
}

func (c *Colony) Summary() Summary {
	s := Summary{
		Tick:          c.tick.Load(),
		Settlers:      len(c.agents),
		States:        map[model.State]int{},
		Stored:        map[model.Resource]int{},
		Buildings:     len(c.building.Instances()),
		PendingBuilds: len(c.building.ActiveBuildTasks()),
		GroundItems:   c.world.Items.Len(),
	}
	for _, a := range c.agents {
		s.States[a.State()]++
	}
	for _, st := range c.storage.All() {
		for _, stack := range st.Contents() {
			s.Stored[stack.Resource] += stack.Count
		}
	}
	return s
}
