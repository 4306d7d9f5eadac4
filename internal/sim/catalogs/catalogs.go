package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"colonysim.ai/internal/sim/model"
)

type Catalogs struct {
	Blueprints BlueprintCatalog
	Recipes    RecipeCatalog
}

type Category string

const (
	CategoryFloor   Category = "FLOOR"
	CategoryWall    Category = "WALL"
	CategoryDoor    Category = "DOOR"
	CategoryStorage Category = "STORAGE"
	CategoryBed     Category = "BED"
	CategoryHouse   Category = "HOUSE"
)

type ItemCount struct {
	Item  model.Resource `json:"item"`
	Count int            `json:"count"`
}

type BlueprintCatalog struct {
	ByID   map[string]BlueprintDef
	Digest string
}

type BlueprintDef struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Category    Category    `json:"category"`
	Walkable    bool        `json:"walkable"`
	HalfExtents [3]float64  `json:"half_extents"`
	Cost        []ItemCount `json:"cost"`
	BuildTime   float64     `json:"build_time"` // seconds at build power 100
	Door        *[3]float64 `json:"door,omitempty"`
	Storage     *StorageDef `json:"storage,omitempty"`
	Components  []Component `json:"components,omitempty"`
}

type StorageDef struct {
	Slots int `json:"slots"`
	Stack int `json:"stack"`
}

// Component places a sub-blueprint relative to the parent origin.
type Component struct {
	BlueprintID string     `json:"blueprint_id"`
	Pos         [3]float64 `json:"pos"`
	Yaw         float64    `json:"yaw"`
}

type RecipeCatalog struct {
	ByID   map[string]RecipeDef
	Digest string
}

type RecipeDef struct {
	RecipeID    string      `json:"recipe_id"`
	Inputs      []ItemCount `json:"inputs"`
	Outputs     []ItemCount `json:"outputs"`
	TimeSeconds float64     `json:"time_seconds"`
}

// Load reads blueprints/*.json and recipes.json from configDir.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlueprints(filepath.Join(configDir, "blueprints"), &c.Blueprints); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c *Catalogs) validate() error {
	for id, bp := range c.Blueprints.ByID {
		for _, comp := range bp.Components {
			if _, ok := c.Blueprints.ByID[comp.BlueprintID]; !ok {
				return fmt.Errorf("blueprint %s: unknown component %q", id, comp.BlueprintID)
			}
		}
		if bp.Category == CategoryStorage && bp.Storage == nil {
			return fmt.Errorf("blueprint %s: storage category without storage block", id)
		}
	}
	return nil
}

func loadRecipes(path string, out *RecipeCatalog) error {
	out.ByID = map[string]RecipeDef{}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	for _, r := range defs {
		if r.RecipeID == "" {
			return fmt.Errorf("recipes.json: empty recipe_id")
		}
		out.ByID[r.RecipeID] = r
	}
	return nil
}

func loadBlueprints(dir string, out *BlueprintCatalog) error {
	out.ByID = map[string]BlueprintDef{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		var bp BlueprintDef
		if err := json.Unmarshal(b, &bp); err != nil {
			return fmt.Errorf("blueprint %s: %w", filepath.Base(p), err)
		}
		if bp.ID == "" {
			return fmt.Errorf("blueprint %s: missing id", filepath.Base(p))
		}
		out.ByID[bp.ID] = bp
	}
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}
