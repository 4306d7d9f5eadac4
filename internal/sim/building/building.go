package building

import (
	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/nav"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/storage"
)

const (
	wallHalfWidth     = 1.0
	wallHalfThickness = 0.25
)

// Instance is a placed building.
type Instance struct {
	ID          int
	BlueprintID string
	Category    catalogs.Category
	Pos         geom.Vec3
	Yaw         float64
	Built       bool
	StorageID   int // 0 when the building has no storage

	Walkable bool
	Bounds   geom.AABB
	Walls    []geom.OBB
	Door     *geom.Vec3
	Beds     []geom.Vec3
}

// Footprint converts the instance to its grid contribution.
func (in *Instance) Footprint() nav.BuildingFootprint {
	fp := nav.BuildingFootprint{Walkable: in.Walkable, Bounds: in.Bounds, Walls: in.Walls}
	if in.Door != nil {
		fp.Doors = append(fp.Doors, *in.Door)
	}
	if in.Category == catalogs.CategoryDoor {
		fp.Doors = append(fp.Doors, in.Pos)
	}
	return fp
}

type TaskState uint8

const (
	TaskConstruction TaskState = iota
	TaskCompleted
	TaskCancelled
)

// Task is an in-progress construction. Materials are consumed up front.
type Task struct {
	BlueprintID string
	Pos         geom.Vec3
	Yaw         float64
	Progress    float64
	MaxProgress float64
	State       TaskState
	Workers     []string
}

func (t *Task) Active() bool { return t.State == TaskConstruction }

// Progress01 is the completed fraction.
func (t *Task) Progress01() float64 {
	if t.MaxProgress <= 0 {
		return 1
	}
	return t.Progress / t.MaxProgress
}

// System owns blueprints, construction tasks and finished buildings.
type System struct {
	cats    *catalogs.Catalogs
	storage *storage.System

	tasks     entities.Arena[Task]
	instances []*Instance
	nextID    int

	// dirty is set whenever the walkable footprint may have changed.
	dirty bool
}

func NewSystem(cats *catalogs.Catalogs, st *storage.System) *System {
	if cats == nil {
		cats = catalogs.Builtin()
	}
	return &System{cats: cats, storage: st}
}

func (s *System) Blueprint(id string) (catalogs.BlueprintDef, bool) {
	bp, ok := s.cats.Blueprints.ByID[id]
	return bp, ok
}

// CanBuild reports whether the blueprint exists and storages hold its cost.
func (s *System) CanBuild(blueprintID string, _ geom.Vec3) bool {
	bp, ok := s.Blueprint(blueprintID)
	if !ok {
		return false
	}
	for _, c := range bp.Cost {
		if s.storage.Total(c.Item) < c.Count {
			return false
		}
	}
	return true
}

// StartBuilding withdraws the blueprint cost from storages and opens a
// construction task.
func (s *System) StartBuilding(blueprintID string, pos geom.Vec3, yaw float64) (entities.Handle, error) {
	bp, ok := s.Blueprint(blueprintID)
	if !ok {
		return entities.Handle{}, simerr.Wrap(simerr.ErrTargetInvalidated, "unknown blueprint %q", blueprintID)
	}
	if !s.CanBuild(blueprintID, pos) {
		return entities.Handle{}, simerr.Wrap(simerr.ErrInsufficientResources, "blueprint %s", blueprintID)
	}
	for _, c := range bp.Cost {
		s.withdraw(c.Item, c.Count)
	}
	buildTime := bp.BuildTime
	if buildTime <= 0 {
		buildTime = 5
	}
	h := s.tasks.Insert(Task{
		BlueprintID: blueprintID,
		Pos:         pos,
		Yaw:         yaw,
		MaxProgress: buildTime * 100,
	})
	return h, nil
}

func (s *System) withdraw(r model.Resource, n int) {
	for _, st := range s.storage.All() {
		if n == 0 {
			return
		}
		k := st.Count(r)
		if k > n {
			k = n
		}
		if k == 0 {
			continue
		}
		got, _ := s.storage.RemoveResource(st.ID, r, k)
		n -= got
	}
}

func (s *System) Task(h entities.Handle) (*Task, bool) {
	t, ok := s.tasks.Get(h)
	if !ok || !t.Active() {
		return nil, false
	}
	return t, true
}

// ActiveBuildTasks returns handles of unfinished tasks in slot order.
func (s *System) ActiveBuildTasks() []entities.Handle {
	var out []entities.Handle
	s.tasks.Each(func(h entities.Handle, t *Task) bool {
		if t.Active() {
			out = append(out, h)
		}
		return true
	})
	return out
}

// PendingBuildCount counts unfinished tasks of one blueprint.
func (s *System) PendingBuildCount(blueprintID string) int {
	n := 0
	s.tasks.Each(func(_ entities.Handle, t *Task) bool {
		if t.Active() && t.BlueprintID == blueprintID {
			n++
		}
		return true
	})
	return n
}

// AddWorker records agentID on the task; duplicate adds are ignored.
func (s *System) AddWorker(h entities.Handle, agentID string) {
	t, ok := s.Task(h)
	if !ok {
		return
	}
	for _, w := range t.Workers {
		if w == agentID {
			return
		}
	}
	t.Workers = append(t.Workers, agentID)
}

func (s *System) RemoveWorker(h entities.Handle, agentID string) {
	t, ok := s.tasks.Get(h)
	if !ok {
		return
	}
	for i, w := range t.Workers {
		if w == agentID {
			t.Workers = append(t.Workers[:i], t.Workers[i+1:]...)
			return
		}
	}
}

// Advance adds construction progress. Completing the task places the
// building and removes the task, invalidating its handle.
func (s *System) Advance(h entities.Handle, amount float64) (*Instance, error) {
	t, ok := s.Task(h)
	if !ok {
		return nil, simerr.Wrap(simerr.ErrTargetInvalidated, "build task %d", h.Index)
	}
	t.Progress += amount
	if t.Progress < t.MaxProgress {
		return nil, nil
	}
	t.Progress = t.MaxProgress
	t.State = TaskCompleted
	in := s.Place(t.BlueprintID, t.Pos, t.Yaw)
	s.tasks.Remove(h)
	return in, nil
}

// Cancel abandons a task without refunding materials.
func (s *System) Cancel(h entities.Handle) bool {
	t, ok := s.Task(h)
	if !ok {
		return false
	}
	t.State = TaskCancelled
	return s.tasks.Remove(h)
}

// Place creates a finished building immediately.
func (s *System) Place(blueprintID string, pos geom.Vec3, yaw float64) *Instance {
	bp, ok := s.Blueprint(blueprintID)
	if !ok {
		return nil
	}
	s.nextID++
	in := &Instance{
		ID:          s.nextID,
		BlueprintID: bp.ID,
		Category:    bp.Category,
		Pos:         pos,
		Yaw:         yaw,
		Built:       true,
		Walkable:    bp.Walkable,
	}
	he := geom.Vec3{X: bp.HalfExtents[0], Y: bp.HalfExtents[1], Z: bp.HalfExtents[2]}
	in.Bounds = geom.OBB{Center: pos, HalfX: he.X, HalfZ: he.Z, Yaw: yaw}.Bounds()
	in.Bounds.Max.Y = pos.Y + 2*he.Y
	if bp.Door != nil {
		d := pos.Add(geom.RotateYaw(geom.Vec3{X: bp.Door[0], Y: bp.Door[1], Z: bp.Door[2]}, yaw))
		in.Door = &d
	}
	if bp.Category == catalogs.CategoryBed {
		in.Beds = append(in.Beds, pos)
	}
	for _, c := range bp.Components {
		sub, ok := s.Blueprint(c.BlueprintID)
		if !ok {
			continue
		}
		cp := pos.Add(geom.RotateYaw(geom.Vec3{X: c.Pos[0], Y: c.Pos[1], Z: c.Pos[2]}, yaw))
		switch sub.Category {
		case catalogs.CategoryWall:
			in.Walls = append(in.Walls, geom.OBB{Center: cp, HalfX: wallHalfWidth, HalfZ: wallHalfThickness, Yaw: yaw + c.Yaw})
		case catalogs.CategoryBed:
			in.Beds = append(in.Beds, cp)
		case catalogs.CategoryFloor, catalogs.CategoryDoor, catalogs.CategoryStorage, catalogs.CategoryHouse:
		}
	}
	if bp.Storage != nil && s.storage != nil {
		in.StorageID = s.storage.Create(pos, bp.Storage.Slots, bp.Storage.Stack).ID
	}
	s.instances = append(s.instances, in)
	s.dirty = true
	return in
}

// Instances returns every placed building in placement order.
func (s *System) Instances() []*Instance { return s.instances }

func (s *System) Instance(id int) (*Instance, bool) {
	for _, in := range s.instances {
		if in.ID == id {
			return in, true
		}
	}
	return nil, false
}

// Footprints lists the grid contribution of built instances.
func (s *System) Footprints() []nav.BuildingFootprint {
	out := make([]nav.BuildingFootprint, 0, len(s.instances))
	for _, in := range s.instances {
		if in.Built {
			out = append(out, in.Footprint())
		}
	}
	return out
}

// Bounds returns the boxes of blocking built instances, for line of sight.
func (s *System) Bounds() []geom.AABB {
	var out []geom.AABB
	for _, in := range s.instances {
		if !in.Built || in.Walkable {
			continue
		}
		if len(in.Walls) > 0 {
			for _, w := range in.Walls {
				out = append(out, w.Bounds())
			}
			continue
		}
		out = append(out, in.Bounds)
	}
	return out
}

// TakeDirty reports and clears the footprint-changed flag.
func (s *System) TakeDirty() bool {
	d := s.dirty
	s.dirty = false
	return d
}
