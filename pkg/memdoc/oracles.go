package memdoc

import (
	"errors"
	"fmt"

	"github.com/chazu/wallhole/pkg/host"
	"github.com/chazu/wallhole/pkg/kernel"
	"github.com/chazu/wallhole/pkg/model"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrViewNotUsable  = errors.New("view is not a non-template 3D view")
	ErrSymbolInactive = errors.New("family symbol is not active")
	ErrHostReadOnly   = errors.New("host wall is read-only")
)

// ---------------------------------------------------------------------------
// Surface oracle
// ---------------------------------------------------------------------------

// intersector casts rays against the walls of a document and, optionally,
// of its links.
type intersector struct {
	doc          *Document
	includeLinks bool
}

// Intersector implements host.Document.
func (d *Document) Intersector(view model.ElementID, includeLinks bool) (host.SurfaceOracle, error) {
	for _, v := range d.views {
		if v.ID != view {
			continue
		}
		if !v.Is3D || v.IsTemplate {
			return nil, fmt.Errorf("view %q: %w", v.Name, ErrViewNotUsable)
		}
		return &intersector{doc: d, includeLinks: includeLinks}, nil
	}
	return nil, fmt.Errorf("view %d: %w", view, ErrElementNotFound)
}

// Intersect reports every wall face the ray crosses. Each face is a
// separate hit, so a wall the ray passes through is reported twice.
func (in *intersector) Intersect(origin, direction r3.Vec) ([]host.Hit, error) {
	if r3.Norm(direction) == 0 {
		return nil, errors.New("intersect: zero direction")
	}
	var hits []host.Hit
	hits = appendHits(hits, in.doc.walls, model.InvalidElementID, origin, direction)
	if in.includeLinks {
		for _, l := range in.doc.links {
			hits = appendHits(hits, l.Doc.walls, l.ID, origin, direction)
		}
	}
	return hits, nil
}

func appendHits(hits []host.Hit, walls []*Wall, link model.ElementID, origin, direction r3.Vec) []host.Hit {
	for _, w := range walls {
		key := model.SurfaceKey{Element: w.ID, Link: link}
		for face, t := range kernel.Trace(w.solid, origin, direction, reach(w.solid, origin)) {
			hits = append(hits, host.Hit{
				Proximity: t,
				Ref:       model.SurfaceRef{Key: key, Face: face},
			})
		}
	}
	return hits
}

// reach returns a distance from origin beyond which no point of s lies.
func reach(s kernel.Solid, origin r3.Vec) float64 {
	lo, hi := s.BoundingBox()
	far := 0.0
	for _, x := range []float64{lo.X, hi.X} {
		for _, y := range []float64{lo.Y, hi.Y} {
			for _, z := range []float64{lo.Z, hi.Z} {
				if d := r3.Norm(r3.Sub(r3.Vec{X: x, Y: y, Z: z}, origin)); d > far {
					far = d
				}
			}
		}
	}
	return far
}

// ---------------------------------------------------------------------------
// Placement oracle
// ---------------------------------------------------------------------------

// placer creates hole instances of one family symbol.
type placer struct {
	doc         *Document
	symbol      *model.FamilySymbol
	widthParam  string
	heightParam string
}

// Placer implements host.Document.
func (d *Document) Placer(symbol model.ElementID, widthParam, heightParam string) (host.PlacementOracle, error) {
	s, ok := d.symbol(symbol)
	if !ok {
		return nil, fmt.Errorf("family symbol %d: %w", symbol, ErrElementNotFound)
	}
	return &placer{doc: d, symbol: s, widthParam: widthParam, heightParam: heightParam}, nil
}

// Create stages a new instance in the open transaction and sets its size
// parameters. A parameter the symbol does not define is reported as a
// *host.ParameterError while the instance is kept.
func (p *placer) Create(spec model.HoleSpec, level model.Level) (model.ElementHandle, error) {
	tx := p.doc.tx
	if tx == nil {
		return "", ErrNoTransaction
	}
	if !p.symbol.Active {
		return "", fmt.Errorf("%s: %w", p.symbol.FamilyName, ErrSymbolInactive)
	}
	w, _, err := p.doc.resolveWall(spec.Host)
	if err != nil {
		return "", err
	}
	if w.ReadOnly {
		return "", fmt.Errorf("wall %s: %w", spec.Host, ErrHostReadOnly)
	}

	inst := &Instance{
		Handle: p.doc.newHandle(),
		Symbol: p.symbol.ID,
		Spec:   spec,
		Level:  level,
		Params: make(map[string]float64, 2),
	}
	tx.staged = append(tx.staged, inst)

	var errs []error
	for _, param := range []struct {
		name  string
		value float64
	}{
		{p.widthParam, spec.Size.Width},
		{p.heightParam, spec.Size.Height},
	} {
		if !p.symbol.HasParameter(param.name) {
			errs = append(errs, &host.ParameterError{
				Element:   inst.Handle,
				Parameter: param.name,
				Err:       ErrElementNotFound,
			})
			continue
		}
		inst.Params[param.name] = param.value
	}
	return inst.Handle, errors.Join(errs...)
}
