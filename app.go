package main

import (
	"context"
	"fmt"

	"github.com/chazu/wallhole/pkg/batch"
	"github.com/chazu/wallhole/pkg/ctxlog"
	"github.com/chazu/wallhole/pkg/engine"
	"github.com/chazu/wallhole/pkg/kernel"
	"github.com/chazu/wallhole/pkg/kernel/sdfx"
	"github.com/chazu/wallhole/pkg/memdoc"
)

// App runs the hole placement command over scene programs.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	opts   batch.Options
}

// ErrorData is a JSON-serializable error.
type ErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// ConduitData summarizes the outcome for one duct or pipe.
type ConduitData struct {
	Kind       string  `json:"kind"`
	ID         int64   `json:"id"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Crossings  int     `json:"crossings"`
	Holes      int     `json:"holes"`
	RolledBack bool    `json:"rolledBack"`
	Skipped    string  `json:"skipped,omitempty"`
}

// HoleData is one hole element left in the host document.
type HoleData struct {
	Handle string     `json:"handle"`
	Host   string     `json:"host"`
	Level  string     `json:"level"`
	Point  [3]float64 `json:"point"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
}

// RunResult is the full result of a run.
type RunResult struct {
	Errors   []ErrorData   `json:"errors"`
	Warnings []string      `json:"warnings"`
	Conduits []ConduitData `json:"conduits"`
	Holes    []HoleData    `json:"holes"`
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp(opts batch.Options) *App {
	k := sdfx.New()
	return &App{
		engine: engine.NewEngine(k),
		kernel: k,
		opts:   opts,
	}
}

// Run evaluates a scene, validates the resulting document and places holes
// for every conduit of the configured linked document.
func (a *App) Run(ctx context.Context, source string) RunResult {
	logger := ctxlog.FromContext(ctx)
	result := RunResult{
		Errors:   []ErrorData{},
		Warnings: []string{},
		Conduits: []ConduitData{},
		Holes:    []HoleData{},
	}

	// Step 1: Evaluate the scene into a host document.
	doc, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		logger.Error("Scene evaluation failed.", "error", err)
		result.Errors = append(result.Errors, ErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, ErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}
	logger.Debug("Scene evaluated.", "walls", len(doc.Walls()), "links", len(doc.Links()))

	// Step 2: Validate cross references before any transaction.
	vr := doc.Validate()
	for _, w := range vr.Warnings {
		result.Warnings = append(result.Warnings, w.Error())
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			result.Errors = append(result.Errors, ErrorData{Message: e.Error()})
		}
		return result
	}

	// Step 3: Run the batch.
	summary, err := batch.Run(ctx, doc, a.opts)
	if summary != nil {
		a.collect(&result, summary, doc)
	}
	if err != nil {
		logger.Error("Batch aborted.", "error", err)
		result.Errors = append(result.Errors, ErrorData{Message: err.Error()})
	}
	return result
}

func (a *App) collect(result *RunResult, summary *batch.Summary, doc *memdoc.Document) {
	for _, w := range summary.Warnings() {
		result.Warnings = append(result.Warnings, w.Error())
	}
	for _, c := range summary.Conduits {
		cd := ConduitData{
			Kind:       c.Conduit.Kind.String(),
			ID:         int64(c.Conduit.ID),
			Width:      c.Size.Width,
			Height:     c.Size.Height,
			Crossings:  len(c.Crossings),
			Holes:      len(c.Created()),
			RolledBack: c.RolledBack,
		}
		if c.Skipped != nil {
			cd.Skipped = c.Skipped.Error()
		}
		result.Conduits = append(result.Conduits, cd)
	}
	for _, in := range doc.Instances() {
		p := in.Spec.Point
		result.Holes = append(result.Holes, HoleData{
			Handle: string(in.Handle),
			Host:   in.Spec.Host.String(),
			Level:  fmt.Sprintf("%s (%d)", in.Level.Name, in.Level.ID),
			Point:  [3]float64{p.X, p.Y, p.Z},
			Width:  in.Spec.Size.Width,
			Height: in.Spec.Size.Height,
		})
	}
}
