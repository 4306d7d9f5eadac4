// Package scenario loads JSON colony fixtures and builds a ready colony
// from them.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"colonysim.ai/internal/sim/colony"
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/settler"
	"colonysim.ai/schemas"
)

const (
	defaultTreeWood    = 50
	defaultRockAmount  = 100
	defaultBushBerries = 10
	defaultBushRegen   = 0.05
)

type Scenario struct {
	Name        string         `json:"name"`
	Ticks       int            `json:"ticks,omitempty"`
	Trees       []TreeSpec     `json:"trees,omitempty"`
	Rocks       []RockSpec     `json:"rocks,omitempty"`
	Bushes      []BushSpec     `json:"bushes,omitempty"`
	Animals     []AnimalSpec   `json:"animals,omitempty"`
	Buildings   []BuildingSpec `json:"buildings,omitempty"`
	Items       []ItemSpec     `json:"items,omitempty"`
	CraftOrders []CraftSpec    `json:"craft_orders,omitempty"`
	Settlers    []SettlerSpec  `json:"settlers"`
}

type TreeSpec struct {
	Pos  [3]float64 `json:"pos"`
	Wood *float64   `json:"wood,omitempty"`
}

type RockSpec struct {
	Pos    [3]float64 `json:"pos"`
	Amount *float64   `json:"amount,omitempty"`
	Regen  float64    `json:"regen,omitempty"`
}

type BushSpec struct {
	Pos     [3]float64 `json:"pos"`
	Berries *float64   `json:"berries,omitempty"`
	Regen   *float64   `json:"regen,omitempty"`
}

type AnimalSpec struct {
	Species string     `json:"species"`
	Pos     [3]float64 `json:"pos"`
}

type BuildingSpec struct {
	Blueprint         string            `json:"blueprint"`
	Pos               [3]float64        `json:"pos"`
	Yaw               float64           `json:"yaw,omitempty"`
	UnderConstruction bool              `json:"under_construction,omitempty"`
	Contents          []model.ItemStack `json:"contents,omitempty"`
}

type ItemSpec struct {
	Pos   [3]float64      `json:"pos"`
	Stack model.ItemStack `json:"stack"`
}

type CraftSpec struct {
	Recipe string `json:"recipe"`
	Count  int    `json:"count"`
}

type SettlerSpec struct {
	Name      string            `json:"name"`
	Pos       [3]float64        `json:"pos"`
	Jobs      model.JobFlags    `json:"jobs"`
	Weapon    string            `json:"weapon,omitempty"`
	Stats     StatsSpec         `json:"stats,omitempty"`
	Inventory []model.ItemStack `json:"inventory,omitempty"`
}

// StatsSpec overrides starting stats; unset fields keep their maximum.
type StatsSpec struct {
	Health  *float64 `json:"health,omitempty"`
	Energy  *float64 `json:"energy,omitempty"`
	Hunger  *float64 `json:"hunger,omitempty"`
	Stamina *float64 `json:"stamina,omitempty"`
}

func vec(p [3]float64) geom.Vec3 { return geom.V(p[0], p[1], p[2]) }

func or(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Load reads and validates a scenario file.
func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	s, err := Parse(raw)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// Parse validates raw against the scenario schema and decodes it.
func Parse(raw []byte) (Scenario, error) {
	var s Scenario
	if err := schemas.ValidateJSON(schemas.Scenario, raw); err != nil {
		return s, err
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, err
	}
	s.Name = strings.TrimSpace(s.Name)
	return s, nil
}

// Build populates c with the scenario. World objects go in first so the
// settlers see beds and storages from their first tick.
func (s Scenario) Build(c *colony.Colony) error {
	for _, t := range s.Trees {
		c.AddTree(vec(t.Pos), or(t.Wood, defaultTreeWood))
	}
	for _, r := range s.Rocks {
		c.AddRock(vec(r.Pos), or(r.Amount, defaultRockAmount), r.Regen)
	}
	for _, b := range s.Bushes {
		c.AddBush(vec(b.Pos), or(b.Berries, defaultBushBerries), or(b.Regen, defaultBushRegen))
	}
	for i, a := range s.Animals {
		sp, ok := entities.ParseSpecies(a.Species)
		if !ok {
			return fmt.Errorf("animals[%d]: unknown species %q", i, a.Species)
		}
		c.AddAnimal(sp, vec(a.Pos))
	}
	for i, b := range s.Buildings {
		if b.UnderConstruction {
			if len(b.Contents) > 0 {
				return fmt.Errorf("buildings[%d]: construction site cannot hold contents", i)
			}
			if _, err := c.StartBuilding(b.Blueprint, vec(b.Pos), b.Yaw); err != nil {
				return fmt.Errorf("buildings[%d]: %w", i, err)
			}
			continue
		}
		if _, err := c.PlaceBuilding(b.Blueprint, vec(b.Pos), b.Yaw, b.Contents...); err != nil {
			return fmt.Errorf("buildings[%d]: %w", i, err)
		}
	}
	for _, it := range s.Items {
		c.AddDroppedItem(it.Stack, vec(it.Pos))
	}
	for i, o := range s.CraftOrders {
		if _, err := c.AddCraftOrder(o.Recipe, o.Count); err != nil {
			return fmt.Errorf("craft_orders[%d]: %w", i, err)
		}
	}
	for i, sp := range s.Settlers {
		if err := addSettler(c, sp); err != nil {
			return fmt.Errorf("settlers[%d]: %w", i, err)
		}
	}
	c.RebuildGrid()
	return nil
}

func addSettler(c *colony.Colony, sp SettlerSpec) error {
	w, ok := settler.ParseWeapon(sp.Weapon)
	if !ok {
		return fmt.Errorf("unknown weapon %q", sp.Weapon)
	}
	a := c.AddSettler(sp.Name, vec(sp.Pos))
	a.SetWeapon(w)
	a.OnJobConfigurationChanged(sp.Jobs)

	st := a.Stats()
	st.Health = or(sp.Stats.Health, st.Health)
	st.Energy = or(sp.Stats.Energy, st.Energy)
	st.Hunger = or(sp.Stats.Hunger, st.Hunger)
	st.Stamina = or(sp.Stats.Stamina, st.Stamina)
	a.SetStats(st)

	for _, stack := range sp.Inventory {
		if added := a.Inventory().Add(stack.Resource, stack.Count); added < stack.Count {
			return fmt.Errorf("%s: inventory holds only %d of %d %s", sp.Name, added, stack.Count, stack.Resource)
		}
	}
	return nil
}
