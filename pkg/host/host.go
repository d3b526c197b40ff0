// Package host defines the oracles through which hole placement talks to the
// document that owns walls, conduits, families and transactions. The host
// itself is not implemented here; see package memdoc for an in-memory one.
package host

import (
	"fmt"

	"github.com/chazu/wallhole/pkg/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// Hit is a raw ray query result: the distance from the ray origin and the
// surface that was struck.
type Hit struct {
	Proximity float64
	Ref       model.SurfaceRef
}

// SurfaceOracle casts rays against the document's wall geometry.
type SurfaceOracle interface {
	Intersect(origin, direction r3.Vec) ([]Hit, error)
}

// DocumentOracle maps a surface back to the level that owns it.
type DocumentOracle interface {
	ResolveLevel(key model.SurfaceKey) (model.Level, error)
}

// PlacementOracle creates one hole instance and sets its size parameters.
// When the instance was created but a size parameter could not be set, the
// handle is returned together with a *ParameterError.
type PlacementOracle interface {
	Create(spec model.HoleSpec, level model.Level) (model.ElementHandle, error)
}

// LinkedDocument is a document loaded as a link into the host document.
type LinkedDocument interface {
	Title() string
	Ducts() []model.Conduit
	Pipes() []model.Conduit
}

// Document is everything the batch command needs from the host.
type Document interface {
	Transactor
	DocumentOracle

	Title() string
	LinkedDocuments() []LinkedDocument
	FamilySymbols() []model.FamilySymbol
	Views() []model.View

	// ActivateSymbol makes a family symbol usable for placement. It must be
	// called inside a transaction.
	ActivateSymbol(id model.ElementID) error

	// Intersector returns a SurfaceOracle seeded by a 3D view. When
	// includeLinks is set, walls of linked documents are reported too.
	Intersector(view model.ElementID, includeLinks bool) (SurfaceOracle, error)

	// Placer returns a PlacementOracle creating instances of symbol and
	// writing the size into the named parameters.
	Placer(symbol model.ElementID, widthParam, heightParam string) (PlacementOracle, error)
}

// ParameterError reports an element that was created but whose parameter
// could not be set.
type ParameterError struct {
	Element   model.ElementHandle
	Parameter string
	Err       error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("element %s: parameter %q: %v", e.Element, e.Parameter, e.Err)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}
