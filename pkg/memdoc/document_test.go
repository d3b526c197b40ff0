package memdoc

import (
	"errors"
	"testing"

	"github.com/chazu/wallhole/pkg/host"
	"github.com/chazu/wallhole/pkg/kernel/sdfx"
	"github.com/chazu/wallhole/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	viewID   model.ElementID = 700
	symbolID model.ElementID = 500
	linkID   model.ElementID = 900
)

// fixture builds a host document with two walls crossing the Y axis, a
// linked structural document with a third wall, and an HVAC link with one
// duct running along +Y.
func fixture(t *testing.T) *Document {
	t.Helper()
	k := sdfx.New()
	doc := New("AR", k)
	require.NoError(t, doc.AddLevel(model.Level{ID: 1, Name: "L1"}))
	_, err := doc.AddWall(Wall{ID: 101, LevelID: 1, Start: r3.Vec{X: -5, Y: 3}, End: r3.Vec{X: 5, Y: 3}, Thickness: 0.5, Height: 3})
	require.NoError(t, err)
	_, err = doc.AddWall(Wall{ID: 102, LevelID: 1, Start: r3.Vec{X: -5, Y: 7}, End: r3.Vec{X: 5, Y: 7}, Thickness: 0.5, Height: 3})
	require.NoError(t, err)

	structure := New("Structure", k)
	require.NoError(t, structure.AddLevel(model.Level{ID: 1, Name: "S1", Elevation: -0.1}))
	_, err = structure.AddWall(Wall{ID: 101, LevelID: 1, Start: r3.Vec{X: -5, Y: 5}, End: r3.Vec{X: 5, Y: 5}, Thickness: 0.5, Height: 3})
	require.NoError(t, err)
	_, err = doc.AddLink(linkID, structure)
	require.NoError(t, err)

	hvac := New("HVAC", k)
	require.NoError(t, hvac.AddConduit(model.Conduit{ID: 1, Kind: model.ConduitDuct, Start: r3.Vec{Z: 1.5}, End: r3.Vec{Y: 10, Z: 1.5}, Section: model.Round(0.4)}))
	_, err = doc.AddLink(901, hvac)
	require.NoError(t, err)

	require.NoError(t, doc.AddSymbol(model.FamilySymbol{ID: symbolID, FamilyName: "Rectangular opening", Parameters: []string{"Width", "Height"}}))
	require.NoError(t, doc.AddView(model.View{ID: viewID, Name: "{3D}", Is3D: true}))
	require.NoError(t, doc.AddView(model.View{ID: 701, Name: "3D template", Is3D: true, IsTemplate: true}))
	require.NoError(t, doc.AddView(model.View{ID: 702, Name: "Plan", Is3D: false}))

	n := 0
	doc.newHandle = func() model.ElementHandle {
		n++
		return model.ElementHandle(string(rune('a' + n - 1)))
	}
	return doc
}

func proximities(hits []host.Hit, key model.SurfaceKey) []float64 {
	var out []float64
	for _, h := range hits {
		if h.Ref.Key == key {
			out = append(out, h.Proximity)
		}
	}
	return out
}

func assertNear(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "index %d", i)
	}
}

// ---------------------------------------------------------------------------
// Population
// ---------------------------------------------------------------------------

func TestAddWallRejectsInvalid(t *testing.T) {
	doc := New("AR", sdfx.New())
	tests := []struct {
		name string
		w    Wall
	}{
		{"zero length", Wall{ID: 1, Start: r3.Vec{X: 1}, End: r3.Vec{X: 1, Z: 5}, Thickness: 1, Height: 1}},
		{"zero thickness", Wall{ID: 2, End: r3.Vec{X: 1}, Height: 1}},
		{"negative height", Wall{ID: 3, End: r3.Vec{X: 1}, Thickness: 1, Height: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := doc.AddWall(tt.w)
			require.ErrorIs(t, err, ErrInvalidWall)
		})
	}
	assert.Empty(t, doc.Walls())
}

func TestAddDuplicates(t *testing.T) {
	doc := fixture(t)
	_, err := doc.AddWall(Wall{ID: 101, LevelID: 1, End: r3.Vec{X: 1}, Thickness: 1, Height: 1})
	assert.ErrorIs(t, err, ErrDuplicateElement)
	assert.ErrorIs(t, doc.AddLevel(model.Level{ID: 1}), ErrDuplicateElement)
	_, err = doc.AddLink(linkID, New("again", sdfx.New()))
	assert.ErrorIs(t, err, ErrDuplicateElement)
	assert.ErrorIs(t, doc.AddSymbol(model.FamilySymbol{ID: symbolID}), ErrDuplicateElement)
	assert.ErrorIs(t, doc.AddView(model.View{ID: viewID}), ErrDuplicateElement)

	hvac, ok := doc.LinkByTitle("HVAC")
	require.True(t, ok)
	err = hvac.Doc.AddConduit(model.Conduit{ID: 1, Kind: model.ConduitPipe, End: r3.Vec{X: 1}})
	assert.ErrorIs(t, err, ErrDuplicateElement)
}

func TestLinkedDocuments(t *testing.T) {
	doc := fixture(t)
	linked := doc.LinkedDocuments()
	require.Len(t, linked, 2)
	assert.Equal(t, "Structure", linked[0].Title())
	assert.Equal(t, "HVAC", linked[1].Title())
	assert.Len(t, linked[1].Ducts(), 1)
	assert.Empty(t, linked[1].Pipes())
}

// ---------------------------------------------------------------------------
// Surface oracle
// ---------------------------------------------------------------------------

func TestIntersectHostWalls(t *testing.T) {
	doc := fixture(t)
	oracle, err := doc.Intersector(viewID, false)
	require.NoError(t, err)

	hits, err := oracle.Intersect(r3.Vec{Z: 1.5}, r3.Vec{Y: 1})
	require.NoError(t, err)
	require.Len(t, hits, 4)
	assertNear(t, []float64{2.75, 3.25}, proximities(hits, model.HostSurface(101)))
	assertNear(t, []float64{6.75, 7.25}, proximities(hits, model.HostSurface(102)))
	assert.Empty(t, proximities(hits, model.LinkedSurface(linkID, 101)))
}

func TestIntersectIncludesLinks(t *testing.T) {
	doc := fixture(t)
	oracle, err := doc.Intersector(viewID, true)
	require.NoError(t, err)

	hits, err := oracle.Intersect(r3.Vec{Z: 1.5}, r3.Vec{Y: 1})
	require.NoError(t, err)
	require.Len(t, hits, 6)
	assertNear(t, []float64{4.75, 5.25}, proximities(hits, model.LinkedSurface(linkID, 101)))

	faces := map[int]bool{}
	for _, h := range hits {
		if h.Ref.Key == model.HostSurface(101) {
			faces[h.Ref.Face] = true
		}
	}
	assert.Len(t, faces, 2, "entry and exit faces must be distinct refs")
}

func TestIntersectRotatedWall(t *testing.T) {
	doc := New("AR", sdfx.New())
	require.NoError(t, doc.AddView(model.View{ID: viewID, Is3D: true}))
	_, err := doc.AddWall(Wall{ID: 1, Start: r3.Vec{X: 3, Y: -5}, End: r3.Vec{X: 3, Y: 5}, Thickness: 0.5, Height: 3})
	require.NoError(t, err)

	oracle, err := doc.Intersector(viewID, false)
	require.NoError(t, err)
	hits, err := oracle.Intersect(r3.Vec{Z: 1}, r3.Vec{X: 1})
	require.NoError(t, err)
	assertNear(t, []float64{2.75, 3.25}, proximities(hits, model.HostSurface(1)))
}

func TestIntersectMissesAboveWall(t *testing.T) {
	doc := fixture(t)
	oracle, err := doc.Intersector(viewID, true)
	require.NoError(t, err)
	hits, err := oracle.Intersect(r3.Vec{Z: 4}, r3.Vec{Y: 1})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIntersectorViewChecks(t *testing.T) {
	doc := fixture(t)
	_, err := doc.Intersector(701, false)
	assert.ErrorIs(t, err, ErrViewNotUsable)
	_, err = doc.Intersector(702, false)
	assert.ErrorIs(t, err, ErrViewNotUsable)
	_, err = doc.Intersector(12345, false)
	assert.ErrorIs(t, err, ErrElementNotFound)
}

// ---------------------------------------------------------------------------
// Levels
// ---------------------------------------------------------------------------

func TestResolveLevel(t *testing.T) {
	doc := fixture(t)

	l, err := doc.ResolveLevel(model.HostSurface(101))
	require.NoError(t, err)
	assert.Equal(t, "L1", l.Name)

	// Same element id through the link resolves in the linked document.
	l, err = doc.ResolveLevel(model.LinkedSurface(linkID, 101))
	require.NoError(t, err)
	assert.Equal(t, "S1", l.Name)

	_, err = doc.ResolveLevel(model.LinkedSurface(4242, 101))
	assert.ErrorIs(t, err, ErrElementNotFound)
	_, err = doc.ResolveLevel(model.HostSurface(999))
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestLevelByNameFirstDeclared(t *testing.T) {
	doc := New("levels", sdfx.New())
	for _, id := range []model.ElementID{7, 3, 9, 1, 5} {
		require.NoError(t, doc.AddLevel(model.Level{ID: id, Name: "L1"}))
	}
	require.NoError(t, doc.AddLevel(model.Level{ID: 2, Name: "L2"}))

	for i := 0; i < 50; i++ {
		l, ok := doc.LevelByName("L1")
		require.True(t, ok)
		require.Equal(t, model.ElementID(7), l.ID)
	}
	_, ok := doc.LevelByName("L3")
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Transactions and placement
// ---------------------------------------------------------------------------

func spec(key model.SurfaceKey) model.HoleSpec {
	return model.HoleSpec{Point: r3.Vec{Y: 2.75, Z: 1.5}, Size: model.Size{Width: 0.4, Height: 0.4}, Host: key}
}

func activate(t *testing.T, doc *Document) {
	t.Helper()
	require.NoError(t, host.WithTransaction(doc, "activate", func() error {
		return doc.ActivateSymbol(symbolID)
	}))
}

func TestCreateRequiresTransaction(t *testing.T) {
	doc := fixture(t)
	activate(t, doc)
	p, err := doc.Placer(symbolID, "Width", "Height")
	require.NoError(t, err)

	_, err = p.Create(spec(model.HostSurface(101)), model.Level{ID: 1})
	assert.ErrorIs(t, err, ErrNoTransaction)
}

func TestCreateRequiresActiveSymbol(t *testing.T) {
	doc := fixture(t)
	p, err := doc.Placer(symbolID, "Width", "Height")
	require.NoError(t, err)

	err = host.WithTransaction(doc, "holes", func() error {
		_, err := p.Create(spec(model.HostSurface(101)), model.Level{ID: 1})
		return err
	})
	assert.ErrorIs(t, err, ErrSymbolInactive)
	assert.Empty(t, doc.Instances())
}

func TestCreateCommit(t *testing.T) {
	doc := fixture(t)
	activate(t, doc)
	p, err := doc.Placer(symbolID, "Width", "Height")
	require.NoError(t, err)

	var handle model.ElementHandle
	err = host.WithTransaction(doc, "holes", func() error {
		var err error
		handle, err = p.Create(spec(model.HostSurface(101)), model.Level{ID: 1, Name: "L1"})
		assert.Empty(t, doc.Instances(), "staged instance visible before commit")
		return err
	})
	require.NoError(t, err)
	assert.False(t, doc.InTransaction())

	insts := doc.Instances()
	require.Len(t, insts, 1)
	assert.Equal(t, handle, insts[0].Handle)
	assert.Equal(t, symbolID, insts[0].Symbol)
	assert.Equal(t, map[string]float64{"Width": 0.4, "Height": 0.4}, insts[0].Params)
}

func TestCreateRollback(t *testing.T) {
	doc := fixture(t)
	activate(t, doc)
	p, err := doc.Placer(symbolID, "Width", "Height")
	require.NoError(t, err)

	boom := errors.New("later failure")
	err = host.WithTransaction(doc, "holes", func() error {
		if _, err := p.Create(spec(model.HostSurface(101)), model.Level{ID: 1}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, doc.Instances())
	assert.False(t, doc.InTransaction())
}

func TestRollbackRevertsActivation(t *testing.T) {
	doc := fixture(t)
	_ = host.WithTransaction(doc, "activate", func() error {
		require.NoError(t, doc.ActivateSymbol(symbolID))
		return errors.New("abort")
	})
	assert.False(t, doc.FamilySymbols()[0].Active)
}

func TestCreateMissingParameter(t *testing.T) {
	doc := fixture(t)
	activate(t, doc)
	p, err := doc.Placer(symbolID, "Width", "Depth")
	require.NoError(t, err)

	var handle model.ElementHandle
	var createErr error
	require.NoError(t, host.WithTransaction(doc, "holes", func() error {
		handle, createErr = p.Create(spec(model.HostSurface(101)), model.Level{ID: 1})
		return nil
	}))

	var perr *host.ParameterError
	require.ErrorAs(t, createErr, &perr)
	assert.Equal(t, "Depth", perr.Parameter)
	assert.Equal(t, handle, perr.Element)

	insts := doc.Instances()
	require.Len(t, insts, 1, "instance must survive a parameter failure")
	assert.Equal(t, map[string]float64{"Width": 0.4}, insts[0].Params)
}

func TestCreateReadOnlyHost(t *testing.T) {
	doc := fixture(t)
	_, err := doc.AddWall(Wall{ID: 103, LevelID: 1, Start: r3.Vec{X: -5, Y: 9}, End: r3.Vec{X: 5, Y: 9}, Thickness: 0.5, Height: 3, ReadOnly: true})
	require.NoError(t, err)
	activate(t, doc)
	p, err := doc.Placer(symbolID, "Width", "Height")
	require.NoError(t, err)

	err = host.WithTransaction(doc, "holes", func() error {
		_, err := p.Create(spec(model.HostSurface(103)), model.Level{ID: 1})
		return err
	})
	assert.ErrorIs(t, err, ErrHostReadOnly)
}

func TestBeginTwice(t *testing.T) {
	doc := fixture(t)
	tx, err := doc.Begin("first")
	require.NoError(t, err)
	_, err = doc.Begin("second")
	assert.ErrorIs(t, err, ErrTransactionOpen)
	require.NoError(t, tx.Commit())
	assert.ErrorIs(t, tx.Commit(), ErrTransactionClosed)
	assert.ErrorIs(t, tx.Rollback(), ErrTransactionClosed)
}

func TestDefaultHandlesAreUUIDs(t *testing.T) {
	doc := New("AR", sdfx.New())
	a, b := doc.newHandle(), doc.newHandle()
	assert.Len(t, string(a), 36)
	assert.NotEqual(t, a, b)
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	doc := fixture(t)
	r := doc.Validate()
	assert.True(t, r.OK(), "unexpected errors: %v", r.Errors)
	assert.Empty(t, r.Warnings)

	_, err := doc.AddWall(Wall{ID: 104, LevelID: 77, End: r3.Vec{X: 1}, Thickness: 1, Height: 1})
	require.NoError(t, err)
	hvac, _ := doc.LinkByTitle("HVAC")
	require.NoError(t, hvac.Doc.AddConduit(model.Conduit{ID: 2, Kind: model.ConduitPipe, Start: r3.Vec{X: 1}, End: r3.Vec{X: 1}}))
	_, err = doc.AddLink(902, New("Empty", sdfx.New()))
	require.NoError(t, err)

	r = doc.Validate()
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "LEVEL_MISSING", r.Errors[0].Code)

	codes := map[string]bool{}
	for _, w := range r.Warnings {
		codes[w.Code] = true
	}
	assert.True(t, codes["DEGENERATE_CONDUIT"])
	assert.True(t, codes["SECTION_UNKNOWN"])
	assert.True(t, codes["EMPTY_LINK"])
}

func TestValidateHostConduitIgnored(t *testing.T) {
	doc := fixture(t)
	require.NoError(t, doc.AddConduit(model.Conduit{ID: 3, Kind: model.ConduitDuct, Start: r3.Vec{Z: 1}, End: r3.Vec{Y: 10, Z: 1}, Section: model.Round(0.2)}))

	r := doc.Validate()
	assert.True(t, r.OK())
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, "HOST_CONDUIT_IGNORED", r.Warnings[0].Code)
	assert.Equal(t, model.ElementID(3), r.Warnings[0].Element)
	assert.Equal(t, "AR", r.Warnings[0].Document)
}

func TestValidateNo3DView(t *testing.T) {
	doc := New("AR", sdfx.New())
	r := doc.Validate()
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, "NO_3D_VIEW", r.Warnings[0].Code)
}
