// Package batch runs the hole placement command over every duct and pipe of
// a linked document: pre-flight checks, then size, crossings and placement
// per conduit, each conduit inside its own transaction.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/wallhole/pkg/crossing"
	"github.com/chazu/wallhole/pkg/ctxlog"
	"github.com/chazu/wallhole/pkg/host"
	"github.com/chazu/wallhole/pkg/model"
	"github.com/chazu/wallhole/pkg/placement"
	"github.com/chazu/wallhole/pkg/size"
)

// Options configures a batch run.
type Options struct {
	LinkTitle          string // substring of the linked MEP document title
	FamilyName         string // family of the hole symbol
	TypeName           string // optional type of the hole symbol
	WidthParam         string
	HeightParam        string
	TransactionName    string
	DefaultSize        model.Size
	IncludeLinkedWalls bool
	RollbackOnFailure  bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		LinkTitle:          "HVAC",
		FamilyName:         "Rectangular opening",
		WidthParam:         "Width",
		HeightParam:        "Height",
		TransactionName:    "Create openings",
		DefaultSize:        size.DefaultSize,
		IncludeLinkedWalls: true,
		RollbackOnFailure:  true,
	}
}

// PreconditionError reports a missing prerequisite. It aborts the batch
// before any transaction starts.
type PreconditionError struct {
	What   string
	Detail string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Detail)
}

// ConduitResult is the outcome for one conduit.
type ConduitResult struct {
	Conduit    model.Conduit
	Size       model.Size
	Crossings  []model.Crossing
	Report     placement.Report
	Skipped    error // set when the conduit could not be processed
	RolledBack bool
	Err        error // placement failures, if any
}

// Created returns the handles of holes that remain in the document.
func (r ConduitResult) Created() []model.ElementHandle {
	if r.RolledBack {
		return nil
	}
	out := make([]model.ElementHandle, 0, r.Report.Count())
	for _, p := range r.Report.Placements {
		out = append(out, p.Element)
	}
	return out
}

// Summary is the outcome of a batch run.
type Summary struct {
	Link     string
	Symbol   model.FamilySymbol
	View     model.View
	Conduits []ConduitResult
}

// Created returns the handles of all holes that remain in the document.
func (s *Summary) Created() []model.ElementHandle {
	var out []model.ElementHandle
	for _, c := range s.Conduits {
		out = append(out, c.Created()...)
	}
	return out
}

// Warnings returns every non-fatal problem of the run: skipped conduits,
// unsized holes and rolled back conduits.
func (s *Summary) Warnings() []error {
	var out []error
	for _, c := range s.Conduits {
		if c.Skipped != nil {
			out = append(out, fmt.Errorf("%s %d skipped: %w", c.Conduit.Kind, c.Conduit.ID, c.Skipped))
		}
		if c.RolledBack {
			out = append(out, fmt.Errorf("%s %d rolled back: %w", c.Conduit.Kind, c.Conduit.ID, c.Err))
			continue
		}
		for _, w := range c.Report.Warnings {
			out = append(out, fmt.Errorf("%s %d: %w", c.Conduit.Kind, c.Conduit.ID, w.Err))
		}
	}
	return out
}

// RolledBack returns the number of conduits whose holes were rolled back.
func (s *Summary) RolledBack() int {
	n := 0
	for _, c := range s.Conduits {
		if c.RolledBack {
			n++
		}
	}
	return n
}

// preflight holds what the pre-flight checks found.
type preflight struct {
	link   host.LinkedDocument
	symbol model.FamilySymbol
	view   model.View
}

func check(doc host.Document, opts Options) (preflight, error) {
	var pf preflight

	for _, l := range doc.LinkedDocuments() {
		if strings.Contains(l.Title(), opts.LinkTitle) {
			pf.link = l
			break
		}
	}
	if pf.link == nil {
		return pf, &PreconditionError{What: "linked document", Detail: fmt.Sprintf("no link title contains %q", opts.LinkTitle)}
	}

	found := false
	for _, s := range doc.FamilySymbols() {
		if s.FamilyName == opts.FamilyName && (opts.TypeName == "" || s.TypeName == opts.TypeName) {
			pf.symbol, found = s, true
			break
		}
	}
	if !found {
		return pf, &PreconditionError{What: "family symbol", Detail: fmt.Sprintf("family %q", opts.FamilyName)}
	}

	found = false
	for _, v := range doc.Views() {
		if v.Is3D && !v.IsTemplate {
			pf.view, found = v, true
			break
		}
	}
	if !found {
		return pf, &PreconditionError{What: "3D view", Detail: "no non-template 3D view"}
	}
	return pf, nil
}

// Run places holes for every duct and then every pipe of the linked
// document selected by opts. Placement failures roll back the affected
// conduit when opts.RollbackOnFailure is set and never stop the batch;
// pre-flight, ray query and transaction errors do.
func Run(ctx context.Context, doc host.Document, opts Options) (*Summary, error) {
	logger := ctxlog.FromContext(ctx)

	pf, err := check(doc, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("Pre-flight checks passed.",
		"document", doc.Title(), "link", pf.link.Title(),
		"family", pf.symbol.FamilyName, "view", pf.view.Name)

	if !pf.symbol.Active {
		err := host.WithTransaction(doc, "Activate family symbol", func() error {
			return doc.ActivateSymbol(pf.symbol.ID)
		})
		if err != nil {
			return nil, fmt.Errorf("activate symbol %q: %w", pf.symbol.FamilyName, err)
		}
		pf.symbol.Active = true
		logger.Debug("Family symbol activated.", "symbol", pf.symbol.ID)
	}

	oracle, err := doc.Intersector(pf.view.ID, opts.IncludeLinkedWalls)
	if err != nil {
		return nil, fmt.Errorf("intersector: %w", err)
	}
	po, err := doc.Placer(pf.symbol.ID, opts.WidthParam, opts.HeightParam)
	if err != nil {
		return nil, fmt.Errorf("placer: %w", err)
	}

	r := &runner{
		doc:      doc,
		opts:     opts,
		resolver: size.NewResolver(opts.DefaultSize),
		oracle:   oracle,
		placer:   placement.New(doc, po),
	}

	summary := &Summary{Link: pf.link.Title(), Symbol: pf.symbol, View: pf.view}
	conduits := append(append([]model.Conduit(nil), pf.link.Ducts()...), pf.link.Pipes()...)
	for _, c := range conduits {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := r.conduit(ctx, c)
		summary.Conduits = append(summary.Conduits, res)
		if err != nil {
			return summary, err
		}
	}

	logger.Info("Batch finished.",
		"conduits", len(summary.Conduits),
		"holes", len(summary.Created()),
		"rolled_back", summary.RolledBack())
	return summary, nil
}

type runner struct {
	doc      host.Document
	opts     Options
	resolver *size.Resolver
	oracle   host.SurfaceOracle
	placer   *placement.Placer
}

func (r *runner) conduit(ctx context.Context, c model.Conduit) (ConduitResult, error) {
	logger := ctxlog.FromContext(ctx).With("kind", c.Kind.String(), "id", c.ID)
	res := ConduitResult{Conduit: c, Size: r.resolver.Resolve(c.Section)}

	cl, err := c.Centerline()
	if err != nil {
		res.Skipped = err
		logger.Warn("Conduit skipped.", "error", err)
		return res, nil
	}

	res.Crossings, err = crossing.Find(cl, r.oracle)
	if err != nil {
		return res, fmt.Errorf("%s %d: %w", c.Kind, c.ID, err)
	}
	if len(res.Crossings) == 0 {
		logger.Debug("No wall crossings.")
		return res, nil
	}

	placeFailed := false
	err = host.WithTransaction(r.doc, r.opts.TransactionName, func() error {
		res.Report = r.placer.Place(cl, res.Crossings, res.Size)
		res.Err = res.Report.Err()
		if res.Err != nil && r.opts.RollbackOnFailure {
			placeFailed = true
			return res.Err
		}
		return nil
	})
	switch {
	case err != nil && placeFailed:
		res.RolledBack = true
		logger.Warn("Placement failed, conduit rolled back.", "error", err)
	case err != nil:
		return res, fmt.Errorf("%s %d: %w", c.Kind, c.ID, err)
	default:
		for _, w := range res.Report.Warnings {
			logger.Warn("Hole placed without size.", "element", w.Element, "error", w.Err)
		}
		if res.Err != nil {
			logger.Warn("Some holes could not be placed.", "error", res.Err)
		}
		logger.Info("Holes placed.", "count", res.Report.Count(), "width", res.Size.Width, "height", res.Size.Height)
	}
	return res, nil
}

// IsPrecondition reports whether err is a *PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
