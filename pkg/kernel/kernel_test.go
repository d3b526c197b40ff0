package kernel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// slab is an analytic axis-aligned box used to exercise Trace without a
// kernel backend.
type slab struct {
	lo, hi r3.Vec
}

func (s slab) BoundingBox() (min, max r3.Vec) { return s.lo, s.hi }

func (s slab) Distance(p r3.Vec) float64 {
	c := r3.Scale(0.5, r3.Add(s.lo, s.hi))
	h := r3.Scale(0.5, r3.Sub(s.hi, s.lo))
	q := r3.Vec{
		X: math.Abs(p.X-c.X) - h.X,
		Y: math.Abs(p.Y-c.Y) - h.Y,
		Z: math.Abs(p.Z-c.Z) - h.Z,
	}
	outside := r3.Norm(r3.Vec{X: math.Max(q.X, 0), Y: math.Max(q.Y, 0), Z: math.Max(q.Z, 0)})
	inside := math.Min(math.Max(q.X, math.Max(q.Y, q.Z)), 0)
	return outside + inside
}

// wall is 0.5 thick along X between x=3 and x=3.5.
var wall = slab{lo: r3.Vec{X: 3, Y: -5, Z: 0}, hi: r3.Vec{X: 3.5, Y: 5, Z: 4}}

const tol = 1e-5

func TestTraceThroughWall(t *testing.T) {
	hits := Trace(wall, r3.Vec{Z: 1}, r3.Vec{X: 1}, 10)
	if len(hits) != 2 {
		t.Fatalf("expected entry and exit hits, got %v", hits)
	}
	if math.Abs(hits[0]-3) > tol || math.Abs(hits[1]-3.5) > tol {
		t.Errorf("hits = %v, want ~[3 3.5]", hits)
	}
}

func TestTraceUnnormalizedDirection(t *testing.T) {
	hits := Trace(wall, r3.Vec{Z: 1}, r3.Vec{X: 25}, 10)
	if len(hits) != 2 || math.Abs(hits[0]-3) > tol {
		t.Errorf("direction must be normalized, hits = %v", hits)
	}
}

func TestTraceOblique(t *testing.T) {
	dir := r3.Vec{X: 1, Y: 1}
	hits := Trace(wall, r3.Vec{Z: 1}, dir, 20)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %v", hits)
	}
	want := 3 * math.Sqrt2
	if math.Abs(hits[0]-want) > tol {
		t.Errorf("entry = %v, want ~%v", hits[0], want)
	}
}

func TestTraceMaxDist(t *testing.T) {
	if hits := Trace(wall, r3.Vec{Z: 1}, r3.Vec{X: 1}, 2); len(hits) != 0 {
		t.Errorf("expected no hits before the wall, got %v", hits)
	}
	hits := Trace(wall, r3.Vec{Z: 1}, r3.Vec{X: 1}, 3.2)
	if len(hits) != 1 {
		t.Errorf("expected only the entry hit, got %v", hits)
	}
}

func TestTraceMisses(t *testing.T) {
	tests := []struct {
		name      string
		origin    r3.Vec
		direction r3.Vec
	}{
		{"pointing away", r3.Vec{Z: 1}, r3.Vec{X: -1}},
		{"above the wall", r3.Vec{Z: 10}, r3.Vec{X: 1}},
		{"parallel", r3.Vec{Z: 1}, r3.Vec{Y: 1}},
		{"zero direction", r3.Vec{Z: 1}, r3.Vec{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if hits := Trace(wall, tt.origin, tt.direction, 100); len(hits) != 0 {
				t.Errorf("expected no hits, got %v", hits)
			}
		})
	}
}

func TestTraceFromInside(t *testing.T) {
	hits := Trace(wall, r3.Vec{X: 3.25, Z: 1}, r3.Vec{X: 1}, 10)
	if len(hits) != 1 || math.Abs(hits[0]-0.25) > tol {
		t.Errorf("expected a single exit hit at ~0.25, got %v", hits)
	}
}

func TestTraceGrazingFaceReportsEntryOnly(t *testing.T) {
	// Runs inside the wall just below its top face.
	hits := Trace(wall, r3.Vec{Z: 4 - 1e-9}, r3.Vec{X: 1}, 10)
	if len(hits) != 1 || math.Abs(hits[0]-3) > tol {
		t.Errorf("hits = %v, want ~[3]", hits)
	}
}
