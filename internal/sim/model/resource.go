package model

// Resource is a stackable item type.
type Resource uint8

const (
	ResourceNone Resource = iota
	ResourceWood
	ResourceStone
	ResourceFood
	ResourceMeat
	ResourceHide
	ResourcePlank

	resourceCount
)

var resourceNames = [resourceCount]string{"none", "wood", "stone", "food", "meat", "hide", "plank"}

// unit weight per resource
var resourceWeights = [resourceCount]float64{0, 1.0, 1.5, 0.2, 0.5, 0.5, 0.8}

func (r Resource) String() string {
	if r < resourceCount {
		return resourceNames[r]
	}
	return "unknown"
}

func (r Resource) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Resource) UnmarshalText(b []byte) error {
	v, ok := ParseResource(string(b))
	if !ok {
		return &unknownResourceError{name: string(b)}
	}
	*r = v
	return nil
}

type unknownResourceError struct{ name string }

func (e *unknownResourceError) Error() string { return "unknown resource " + e.name }

func ParseResource(name string) (Resource, bool) {
	for i, n := range resourceNames {
		if i > 0 && n == name {
			return Resource(i), true
		}
	}
	return ResourceNone, false
}

func (r Resource) Weight() float64 {
	if r < resourceCount {
		return resourceWeights[r]
	}
	return 0
}

// Edible reports whether the resource restores hunger.
func (r Resource) Edible() bool { return r == ResourceFood || r == ResourceMeat }

// ItemStack is a count of one resource.
type ItemStack struct {
	Resource Resource `json:"resource"`
	Count    int      `json:"count"`
}

func (s ItemStack) Weight() float64 { return s.Resource.Weight() * float64(s.Count) }
func (s ItemStack) Empty() bool     { return s.Count <= 0 || s.Resource == ResourceNone }
