package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// traceEpsilon is the distance at which a ray is considered to touch
	// a surface.
	traceEpsilon = 1e-7

	// traceMaxSteps bounds the number of marching steps per ray.
	traceMaxSteps = 1 << 14
)

// Trace marches a ray from origin along direction and returns the distance
// of every boundary of s it crosses up to maxDist, in increasing order. A ray
// passing through a convex solid reports its entry and exit faces.
//
// A ray that grazes a face, running within traceEpsilon of it, never leaves
// the surface band and reports only the point where it first touched.
func Trace(s Solid, origin, direction r3.Vec, maxDist float64) []float64 {
	n := r3.Norm(direction)
	if n == 0 || maxDist < 0 {
		return nil
	}
	dir := r3.Scale(1/n, direction)

	if !rayHitsBox(s, origin, dir, maxDist) {
		return nil
	}

	var hits []float64
	onSurface := false
	t := 0.0
	for step := 0; step < traceMaxSteps && t <= maxDist; step++ {
		d := math.Abs(s.Distance(r3.Add(origin, r3.Scale(t, dir))))
		if d < traceEpsilon {
			if !onSurface {
				hits = append(hits, t)
				onSurface = true
			}
			t += traceEpsilon
			continue
		}
		onSurface = false
		t += d
	}
	return hits
}

// rayHitsBox reports whether the ray segment touches the bounding box of s,
// padded by traceEpsilon (slab test).
func rayHitsBox(s Solid, origin, dir r3.Vec, maxDist float64) bool {
	lo, hi := s.BoundingBox()
	tMin, tMax := 0.0, maxDist
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	l := [3]float64{lo.X - traceEpsilon, lo.Y - traceEpsilon, lo.Z - traceEpsilon}
	h := [3]float64{hi.X + traceEpsilon, hi.Y + traceEpsilon, hi.Z + traceEpsilon}

	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < l[i] || o[i] > h[i] {
				return false
			}
			continue
		}
		t0 := (l[i] - o[i]) / d[i]
		t1 := (h[i] - o[i]) / d[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin = math.Max(tMin, t0)
		tMax = math.Min(tMax, t1)
		if tMin > tMax {
			return false
		}
	}
	return true
}
