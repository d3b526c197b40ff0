package model

import "gonum.org/v1/gonum/spatial/r3"

// Crossing is one distinct point where a centerline enters a surface.
type Crossing struct {
	Distance float64    `json:"distance"` // from the centerline origin
	Surface  SurfaceKey `json:"surface"`
	Point    r3.Vec     `json:"point"`
}

// Size is the width and height of an opening.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// HoleSpec fully describes a hole to be created at one crossing.
type HoleSpec struct {
	Point r3.Vec     `json:"point"`
	Size  Size       `json:"size"`
	Host  SurfaceKey `json:"host"`
}

// ---------------------------------------------------------------------------
// Host document entities
// ---------------------------------------------------------------------------

// Level is a named horizontal datum that owns walls and openings.
type Level struct {
	ID        ElementID `json:"id"`
	Name      string    `json:"name"`
	Elevation float64   `json:"elevation"`
}

// FamilySymbol is a loadable type used to create hole instances.
type FamilySymbol struct {
	ID         ElementID `json:"id"`
	FamilyName string    `json:"family_name"`
	TypeName   string    `json:"type_name,omitempty"`
	Parameters []string  `json:"parameters,omitempty"`
	Active     bool      `json:"active"`
}

// HasParameter reports whether the symbol exposes a parameter named name.
func (s FamilySymbol) HasParameter(name string) bool {
	for _, p := range s.Parameters {
		if p == name {
			return true
		}
	}
	return false
}

// View is a document view. Ray queries need a 3D view that is not a template.
type View struct {
	ID         ElementID `json:"id"`
	Name       string    `json:"name"`
	Is3D       bool      `json:"is_3d"`
	IsTemplate bool      `json:"is_template"`
}
