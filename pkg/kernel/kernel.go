// Package kernel defines the abstract geometry kernel used to model wall
// solids. Implementations (sdfx) provide signed-distance solids behind this
// interface so ray queries can be answered without knowing the backend.
package kernel

import "gonum.org/v1/gonum/spatial/r3"

// Solid is an opaque handle to a geometry kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max r3.Vec)

	// Distance returns the signed distance from p to the surface of the
	// solid: negative inside, positive outside.
	Distance(p r3.Vec) float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Box creates a box with its minimum corner at the origin.
	Box(x, y, z float64) Solid

	// Transforms
	Translate(s Solid, v r3.Vec) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
}
