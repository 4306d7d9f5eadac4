package catalogs

import (
	"encoding/json"

	"colonysim.ai/internal/sim/model"
)

func door(x, y, z float64) *[3]float64 { return &[3]float64{x, y, z} }

// Builtin mirrors configs/blueprints and configs/recipes.json so tests and
// embedders can run without a config directory.
func Builtin() *Catalogs {
	bps := []BlueprintDef{
		{ID: "floor", Name: "Floor", Category: CategoryFloor, Walkable: true,
			HalfExtents: [3]float64{1, 0.05, 1}, Cost: []ItemCount{{model.ResourceWood, 2}}, BuildTime: 1},
		{ID: "wall", Name: "Wall", Category: CategoryWall,
			HalfExtents: [3]float64{1, 1.5, 0.25}, Cost: []ItemCount{{model.ResourceWood, 4}}, BuildTime: 2},
		{ID: "door", Name: "Door", Category: CategoryDoor, Walkable: true,
			HalfExtents: [3]float64{0.5, 1.5, 0.1}, Cost: []ItemCount{{model.ResourceWood, 3}}, BuildTime: 1},
		{ID: "bed", Name: "Bed", Category: CategoryBed, Walkable: true,
			HalfExtents: [3]float64{0.5, 0.3, 1}, Cost: []ItemCount{{model.ResourceWood, 8}}, BuildTime: 2},
		{ID: "simple_storage", Name: "Simple Storage", Category: CategoryStorage, Walkable: true,
			HalfExtents: [3]float64{1, 0.5, 1}, Cost: []ItemCount{{model.ResourceWood, 10}}, BuildTime: 3,
			Storage: &StorageDef{Slots: 10, Stack: 50}},
		{ID: "storage_shed", Name: "Storage Shed", Category: CategoryStorage,
			HalfExtents: [3]float64{1.5, 1.5, 1.5}, Cost: []ItemCount{{model.ResourceWood, 20}, {model.ResourceStone, 10}}, BuildTime: 6,
			Door: door(0, 0, -1.5), Storage: &StorageDef{Slots: 20, Stack: 50}},
		{ID: "house", Name: "House", Category: CategoryHouse,
			HalfExtents: [3]float64{2, 1.5, 2}, Cost: []ItemCount{{model.ResourceWood, 40}, {model.ResourceStone, 10}}, BuildTime: 10,
			Door: door(1, 0, -2),
			Components: []Component{
				{BlueprintID: "wall", Pos: [3]float64{-1, 0, -2}},
				{BlueprintID: "wall", Pos: [3]float64{1, 0, -2}},
				{BlueprintID: "wall", Pos: [3]float64{-1, 0, 2}},
				{BlueprintID: "wall", Pos: [3]float64{1, 0, 2}},
				{BlueprintID: "wall", Pos: [3]float64{-2, 0, -1}, Yaw: 90},
				{BlueprintID: "wall", Pos: [3]float64{-2, 0, 1}, Yaw: 90},
				{BlueprintID: "wall", Pos: [3]float64{2, 0, -1}, Yaw: 90},
				{BlueprintID: "wall", Pos: [3]float64{2, 0, 1}, Yaw: 90},
				{BlueprintID: "door", Pos: [3]float64{1, 0, -2}},
				{BlueprintID: "bed", Pos: [3]float64{0, 0, 1}},
			}},
	}
	recipes := []RecipeDef{
		{RecipeID: "plank", Inputs: []ItemCount{{model.ResourceWood, 2}}, Outputs: []ItemCount{{model.ResourcePlank, 1}}, TimeSeconds: 3},
		{RecipeID: "cooked_meat", Inputs: []ItemCount{{model.ResourceMeat, 1}, {model.ResourceWood, 1}}, Outputs: []ItemCount{{model.ResourceFood, 3}}, TimeSeconds: 4},
	}
	c := &Catalogs{
		Blueprints: BlueprintCatalog{ByID: map[string]BlueprintDef{}},
		Recipes:    RecipeCatalog{ByID: map[string]RecipeDef{}},
	}
	for _, bp := range bps {
		c.Blueprints.ByID[bp.ID] = bp
	}
	for _, r := range recipes {
		c.Recipes.ByID[r.RecipeID] = r
	}
	bpJSON, _ := json.Marshal(bps)
	rJSON, _ := json.Marshal(recipes)
	c.Blueprints.Digest = sha256Hex(bpJSON)
	c.Recipes.Digest = sha256Hex(rJSON)
	return c
}
