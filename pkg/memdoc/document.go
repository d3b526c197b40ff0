package memdoc

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/wallhole/pkg/host"
	"github.com/chazu/wallhole/pkg/kernel"
	"github.com/chazu/wallhole/pkg/model"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrDuplicateElement = errors.New("duplicate element id")
	ErrElementNotFound  = errors.New("element not found")
	ErrInvalidWall      = errors.New("invalid wall")
)

// Compile-time interface checks.
var (
	_ host.Document       = (*Document)(nil)
	_ host.LinkedDocument = (*Document)(nil)
)

// Wall is a straight wall standing on a baseline from Start to End. The
// baseline runs along the wall's center; Base is the height of its bottom.
type Wall struct {
	ID        model.ElementID
	LevelID   model.ElementID
	Start     r3.Vec
	End       r3.Vec
	Thickness float64
	Height    float64
	Base      float64
	ReadOnly  bool // hosted openings are rejected

	solid kernel.Solid
}

// Solid returns the kernel solid of the wall.
func (w *Wall) Solid() kernel.Solid {
	return w.solid
}

// Link is a linked document placed into the host by a link instance.
type Link struct {
	ID  model.ElementID
	Doc *Document
}

// Instance is a hole element created in the document.
type Instance struct {
	Handle model.ElementHandle
	Symbol model.ElementID
	Spec   model.HoleSpec
	Level  model.Level
	Params map[string]float64
}

// Document is an in-memory host document.
type Document struct {
	title  string
	kernel kernel.Kernel

	levels   map[model.ElementID]model.Level
	levelIDs []model.ElementID
	walls    []*Wall
	wallByID map[model.ElementID]*Wall
	links    []*Link
	ducts    []model.Conduit
	pipes    []model.Conduit
	symbols  []*model.FamilySymbol
	views    []model.View

	instances []*Instance
	tx        *transaction

	newHandle func() model.ElementHandle
}

// New returns an empty document titled title whose wall solids are built
// with k.
func New(title string, k kernel.Kernel) *Document {
	return &Document{
		title:     title,
		kernel:    k,
		levels:    make(map[model.ElementID]model.Level),
		wallByID:  make(map[model.ElementID]*Wall),
		newHandle: func() model.ElementHandle { return model.ElementHandle(uuid.NewString()) },
	}
}

// Title returns the document title.
func (d *Document) Title() string {
	return d.title
}

// Kernel returns the kernel wall solids are built with.
func (d *Document) Kernel() kernel.Kernel {
	return d.kernel
}

// ---------------------------------------------------------------------------
// Population
// ---------------------------------------------------------------------------

// AddLevel registers a level.
func (d *Document) AddLevel(l model.Level) error {
	if _, exists := d.levels[l.ID]; exists {
		return fmt.Errorf("level %d: %w", l.ID, ErrDuplicateElement)
	}
	d.levels[l.ID] = l
	d.levelIDs = append(d.levelIDs, l.ID)
	return nil
}

// Level returns the level with the given id.
func (d *Document) Level(id model.ElementID) (model.Level, bool) {
	l, ok := d.levels[id]
	return l, ok
}

// LevelByName returns the first level named name, in insertion order.
func (d *Document) LevelByName(name string) (model.Level, bool) {
	for _, id := range d.levelIDs {
		if l := d.levels[id]; l.Name == name {
			return l, true
		}
	}
	return model.Level{}, false
}

// AddWall validates w, builds its solid and adds it to the document.
func (d *Document) AddWall(w Wall) (*Wall, error) {
	if _, exists := d.wallByID[w.ID]; exists {
		return nil, fmt.Errorf("wall %d: %w", w.ID, ErrDuplicateElement)
	}
	base := r3.Vec{X: w.End.X - w.Start.X, Y: w.End.Y - w.Start.Y}
	length := r3.Norm(base)
	switch {
	case length <= 0:
		return nil, fmt.Errorf("wall %d: baseline has no horizontal length: %w", w.ID, ErrInvalidWall)
	case !(w.Thickness > 0):
		return nil, fmt.Errorf("wall %d: thickness is %.4f, must be positive: %w", w.ID, w.Thickness, ErrInvalidWall)
	case !(w.Height > 0):
		return nil, fmt.Errorf("wall %d: height is %.4f, must be positive: %w", w.ID, w.Height, ErrInvalidWall)
	}

	// Box along +X centered on the baseline in Y, rotated to the baseline
	// direction and moved to its start point.
	s := d.kernel.Box(length, w.Thickness, w.Height)
	s = d.kernel.Translate(s, r3.Vec{Y: -w.Thickness / 2})
	angle := math.Atan2(base.Y, base.X) * 180 / math.Pi
	if angle != 0 {
		s = d.kernel.Rotate(s, 0, 0, angle)
	}
	w.solid = d.kernel.Translate(s, r3.Vec{X: w.Start.X, Y: w.Start.Y, Z: w.Base})

	wall := &w
	d.walls = append(d.walls, wall)
	d.wallByID[w.ID] = wall
	return wall, nil
}

// Wall returns the wall with the given id.
func (d *Document) Wall(id model.ElementID) (*Wall, bool) {
	w, ok := d.wallByID[id]
	return w, ok
}

// Walls returns the walls in insertion order.
func (d *Document) Walls() []*Wall {
	return d.walls
}

// AddConduit adds a duct or pipe.
func (d *Document) AddConduit(c model.Conduit) error {
	for _, list := range [][]model.Conduit{d.ducts, d.pipes} {
		for _, other := range list {
			if other.ID == c.ID {
				return fmt.Errorf("%s %d: %w", c.Kind, c.ID, ErrDuplicateElement)
			}
		}
	}
	switch c.Kind {
	case model.ConduitDuct:
		d.ducts = append(d.ducts, c)
	case model.ConduitPipe:
		d.pipes = append(d.pipes, c)
	default:
		return fmt.Errorf("conduit %d: unknown kind %v", c.ID, c.Kind)
	}
	return nil
}

// Ducts returns the ducts in insertion order.
func (d *Document) Ducts() []model.Conduit {
	return d.ducts
}

// Pipes returns the pipes in insertion order.
func (d *Document) Pipes() []model.Conduit {
	return d.pipes
}

// AddLink places doc into d under link instance id.
func (d *Document) AddLink(id model.ElementID, doc *Document) (*Link, error) {
	for _, l := range d.links {
		if l.ID == id {
			return nil, fmt.Errorf("link %d: %w", id, ErrDuplicateElement)
		}
	}
	link := &Link{ID: id, Doc: doc}
	d.links = append(d.links, link)
	return link, nil
}

// LinkByTitle returns the first link whose document is titled title.
func (d *Document) LinkByTitle(title string) (*Link, bool) {
	for _, l := range d.links {
		if l.Doc.Title() == title {
			return l, true
		}
	}
	return nil, false
}

// Links returns the link instances in insertion order.
func (d *Document) Links() []*Link {
	return d.links
}

// LinkedDocuments implements host.Document.
func (d *Document) LinkedDocuments() []host.LinkedDocument {
	docs := make([]host.LinkedDocument, len(d.links))
	for i, l := range d.links {
		docs[i] = l.Doc
	}
	return docs
}

// AddSymbol registers a family symbol.
func (d *Document) AddSymbol(s model.FamilySymbol) error {
	for _, other := range d.symbols {
		if other.ID == s.ID {
			return fmt.Errorf("family symbol %d: %w", s.ID, ErrDuplicateElement)
		}
	}
	d.symbols = append(d.symbols, &s)
	return nil
}

// FamilySymbols implements host.Document.
func (d *Document) FamilySymbols() []model.FamilySymbol {
	out := make([]model.FamilySymbol, len(d.symbols))
	for i, s := range d.symbols {
		out[i] = *s
	}
	return out
}

func (d *Document) symbol(id model.ElementID) (*model.FamilySymbol, bool) {
	for _, s := range d.symbols {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// AddView registers a view.
func (d *Document) AddView(v model.View) error {
	for _, other := range d.views {
		if other.ID == v.ID {
			return fmt.Errorf("view %d: %w", v.ID, ErrDuplicateElement)
		}
	}
	d.views = append(d.views, v)
	return nil
}

// Views implements host.Document.
func (d *Document) Views() []model.View {
	return d.views
}

// Instances returns the committed hole instances in creation order.
func (d *Document) Instances() []Instance {
	out := make([]Instance, len(d.instances))
	for i, inst := range d.instances {
		out[i] = *inst
	}
	return out
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// resolveWall finds the wall a surface key refers to and the document
// that owns it.
func (d *Document) resolveWall(key model.SurfaceKey) (*Wall, *Document, error) {
	owner := d
	if key.IsLinked() {
		owner = nil
		for _, l := range d.links {
			if l.ID == key.Link {
				owner = l.Doc
				break
			}
		}
		if owner == nil {
			return nil, nil, fmt.Errorf("link %d: %w", key.Link, ErrElementNotFound)
		}
	}
	w, ok := owner.wallByID[key.Element]
	if !ok {
		return nil, nil, fmt.Errorf("wall %s: %w", key, ErrElementNotFound)
	}
	return w, owner, nil
}

// ResolveLevel implements host.DocumentOracle.
func (d *Document) ResolveLevel(key model.SurfaceKey) (model.Level, error) {
	w, owner, err := d.resolveWall(key)
	if err != nil {
		return model.Level{}, err
	}
	l, ok := owner.levels[w.LevelID]
	if !ok {
		return model.Level{}, fmt.Errorf("level %d of wall %s: %w", w.LevelID, key, ErrElementNotFound)
	}
	return l, nil
}
