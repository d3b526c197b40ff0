// Package crossing finds the distinct walls a conduit centerline passes
// through within its length.
package crossing

import (
	"fmt"
	"sort"

	"github.com/chazu/wallhole/pkg/host"
	"github.com/chazu/wallhole/pkg/model"
)

// Find casts the centerline against oracle and returns one crossing per
// distinct surface struck within the centerline's length, ordered by
// distance. A centerline that crosses nothing yields an empty slice.
func Find(cl model.Centerline, oracle host.SurfaceOracle) ([]model.Crossing, error) {
	hits, err := oracle.Intersect(cl.Origin, cl.Direction)
	if err != nil {
		return nil, fmt.Errorf("crossing: intersect: %w", err)
	}
	return Dedupe(cl, hits), nil
}

// Dedupe filters hits to 0 <= proximity <= cl.Length and collapses hits
// sharing a surface key into the one with the smallest proximity. The result
// is sorted by distance, ties broken by key, so it does not depend on the
// order of hits.
func Dedupe(cl model.Centerline, hits []host.Hit) []model.Crossing {
	nearest := make(map[model.SurfaceKey]float64, len(hits))
	for _, h := range hits {
		// Inclusion test so NaN proximities are dropped too.
		if !(h.Proximity >= 0 && h.Proximity <= cl.Length) {
			continue
		}
		if d, seen := nearest[h.Ref.Key]; seen && d <= h.Proximity {
			continue
		}
		nearest[h.Ref.Key] = h.Proximity
	}

	crossings := make([]model.Crossing, 0, len(nearest))
	for key, d := range nearest {
		crossings = append(crossings, model.Crossing{
			Distance: d,
			Surface:  key,
			Point:    cl.PointAt(d),
		})
	}
	sort.Slice(crossings, func(i, j int) bool {
		if crossings[i].Distance != crossings[j].Distance {
			return crossings[i].Distance < crossings[j].Distance
		}
		return crossings[i].Surface.Less(crossings[j].Surface)
	})
	return crossings
}
