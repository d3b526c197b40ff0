package model

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrMeasurementUnavailable is returned by a Measurer when a measurement is
// not defined for the element it describes.
var ErrMeasurementUnavailable = errors.New("measurement unavailable")

// ErrDegenerateCenterline is returned when a centerline has no length.
var ErrDegenerateCenterline = errors.New("degenerate centerline")

// ---------------------------------------------------------------------------
// Cross-sections
// ---------------------------------------------------------------------------

// ShapeKind distinguishes cross-section shapes.
type ShapeKind int

const (
	ShapeUnknown     ShapeKind = iota // no usable descriptor
	ShapeRound                        // diameter
	ShapeRectangular                  // width x height
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeRound:
		return "round"
	case ShapeRectangular:
		return "rectangular"
	default:
		return "unknown"
	}
}

// Measurer exposes the size measurements of a conduit. Each accessor may
// independently return ErrMeasurementUnavailable.
type Measurer interface {
	Diameter() (float64, error)
	Width() (float64, error)
	Height() (float64, error)
}

// Section is the cross-section of a conduit. Only the fields valid for Kind
// are meaningful: Dia for round sections, W and H for rectangular ones.
type Section struct {
	Kind ShapeKind `json:"kind"`
	Dia  float64   `json:"diameter,omitempty"`
	W    float64   `json:"width,omitempty"`
	H    float64   `json:"height,omitempty"`
}

// Round returns a round section of diameter d.
func Round(d float64) Section {
	return Section{Kind: ShapeRound, Dia: d}
}

// Rectangular returns a rectangular section of width w and height h.
func Rectangular(w, h float64) Section {
	return Section{Kind: ShapeRectangular, W: w, H: h}
}

// Diameter implements Measurer.
func (s Section) Diameter() (float64, error) {
	if s.Kind != ShapeRound {
		return 0, ErrMeasurementUnavailable
	}
	return s.Dia, nil
}

// Width implements Measurer.
func (s Section) Width() (float64, error) {
	if s.Kind != ShapeRectangular {
		return 0, ErrMeasurementUnavailable
	}
	return s.W, nil
}

// Height implements Measurer.
func (s Section) Height() (float64, error) {
	if s.Kind != ShapeRectangular {
		return 0, ErrMeasurementUnavailable
	}
	return s.H, nil
}

// ---------------------------------------------------------------------------
// Conduits
// ---------------------------------------------------------------------------

// ConduitKind enumerates the linear MEP elements that can cross walls.
type ConduitKind int

const (
	ConduitDuct ConduitKind = iota
	ConduitPipe
)

func (k ConduitKind) String() string {
	switch k {
	case ConduitDuct:
		return "duct"
	case ConduitPipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// Conduit is a duct or pipe with a straight centerline from Start to End.
type Conduit struct {
	ID      ElementID   `json:"id"`
	Kind    ConduitKind `json:"kind"`
	Start   r3.Vec      `json:"start"`
	End     r3.Vec      `json:"end"`
	Section Section     `json:"section"`
}

// Centerline returns the conduit's centerline.
func (c Conduit) Centerline() (Centerline, error) {
	return NewCenterline(c.Start, c.End)
}

// Centerline is a finite ray: a unit Direction from Origin over Length.
type Centerline struct {
	Origin    r3.Vec
	Direction r3.Vec
	Length    float64
}

// NewCenterline builds the centerline running from start to end.
func NewCenterline(start, end r3.Vec) (Centerline, error) {
	d := r3.Sub(end, start)
	length := r3.Norm(d)
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return Centerline{}, ErrDegenerateCenterline
	}
	return Centerline{
		Origin:    start,
		Direction: r3.Vec{X: d.X / length, Y: d.Y / length, Z: d.Z / length},
		Length:    length,
	}, nil
}

// PointAt returns Origin + Direction*d.
func (c Centerline) PointAt(d float64) r3.Vec {
	return r3.Add(c.Origin, r3.Scale(d, c.Direction))
}
