// Package size resolves the opening size of a conduit from whatever
// cross-section measurements it exposes.
package size

import "github.com/chazu/wallhole/pkg/model"

// DefaultSize is used when a conduit exposes no usable measurement.
var DefaultSize = model.Size{Width: 4, Height: 4}

// Resolver picks an opening size using, in order: the round diameter, the
// rectangular width and height, then Default. A measurement that is
// unavailable or not positive falls through to the next strategy.
type Resolver struct {
	Default model.Size
}

// NewResolver returns a Resolver falling back to def.
func NewResolver(def model.Size) *Resolver {
	return &Resolver{Default: def}
}

// Resolve returns the opening size for m.
func (r *Resolver) Resolve(m model.Measurer) model.Size {
	if m == nil {
		return r.Default
	}
	if d, ok := measure(m.Diameter); ok {
		return model.Size{Width: d, Height: d}
	}
	w, okW := measure(m.Width)
	h, okH := measure(m.Height)
	if okW && okH {
		return model.Size{Width: w, Height: h}
	}
	return r.Default
}

func measure(get func() (float64, error)) (float64, bool) {
	v, err := get()
	if err != nil || !(v > 0) {
		return 0, false
	}
	return v, true
}
