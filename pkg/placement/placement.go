// Package placement turns crossings into hole instances through the host's
// placement oracle. Each crossing is placed independently: a failure on one
// never prevents attempts on the others.
package placement

import (
	"errors"
	"fmt"

	"github.com/chazu/wallhole/pkg/host"
	"github.com/chazu/wallhole/pkg/model"
)

// ErrInvalidSize is reported for every crossing when the requested size is
// not positive in both dimensions.
var ErrInvalidSize = errors.New("hole size must be positive")

// Placement is a hole that exists in the document.
type Placement struct {
	Spec    model.HoleSpec
	Level   model.Level
	Element model.ElementHandle
}

// Warning is a non-fatal problem with an existing placement, typically a
// size parameter that could not be set.
type Warning struct {
	Spec    model.HoleSpec
	Element model.ElementHandle
	Err     error
}

// Failure is a crossing for which no element could be created.
type Failure struct {
	Spec model.HoleSpec
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("hole on %s at (%.3f, %.3f, %.3f): %v",
		f.Spec.Host, f.Spec.Point.X, f.Spec.Point.Y, f.Spec.Point.Z, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report collects the outcome of placing the crossings of one conduit.
type Report struct {
	Placements []Placement
	Warnings   []Warning
	Failures   []Failure
}

// Count returns the number of placements issued successfully.
func (r Report) Count() int {
	return len(r.Placements)
}

// Err joins all failures, or returns nil if there were none.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Placer issues one placement request per crossing.
type Placer struct {
	Levels host.DocumentOracle
	Oracle host.PlacementOracle
}

// New returns a Placer using levels to resolve hosting levels and oracle to
// create instances.
func New(levels host.DocumentOracle, oracle host.PlacementOracle) *Placer {
	return &Placer{Levels: levels, Oracle: oracle}
}

// Place creates a hole of size sz at cl.PointAt(c.Distance) for every
// crossing c.
func (p *Placer) Place(cl model.Centerline, crossings []model.Crossing, sz model.Size) Report {
	var rep Report
	for _, c := range crossings {
		spec := model.HoleSpec{
			Point: cl.PointAt(c.Distance),
			Size:  sz,
			Host:  c.Surface,
		}
		p.placeOne(spec, &rep)
	}
	return rep
}

func (p *Placer) placeOne(spec model.HoleSpec, rep *Report) {
	if !spec.Size.Valid() {
		rep.Failures = append(rep.Failures, Failure{Spec: spec, Err: ErrInvalidSize})
		return
	}

	level, err := p.Levels.ResolveLevel(spec.Host)
	if err != nil {
		rep.Failures = append(rep.Failures, Failure{Spec: spec, Err: fmt.Errorf("resolve level: %w", err)})
		return
	}

	handle, err := p.Oracle.Create(spec, level)
	var perr *host.ParameterError
	switch {
	case err == nil:
	case errors.As(err, &perr):
		rep.Warnings = append(rep.Warnings, Warning{Spec: spec, Element: handle, Err: err})
	default:
		rep.Failures = append(rep.Failures, Failure{Spec: spec, Err: fmt.Errorf("create: %w", err)})
		return
	}

	rep.Placements = append(rep.Placements, Placement{Spec: spec, Level: level, Element: handle})
}
