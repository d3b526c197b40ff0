package memdoc

import (
	"fmt"

	"github.com/chazu/wallhole/pkg/model"
)

// Severity classifies a validation finding.
type Severity int

const (
	SeverityError   Severity = iota // blocks processing
	SeverityWarning                 // advisory
)

// ValidationError represents a validation finding on one element.
type ValidationError struct {
	Code     string
	Message  string
	Document string
	Element  model.ElementID
	Severity Severity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (document: %q, element: %d)", e.Code, e.Message, e.Document, e.Element)
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking error was found.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) add(e ValidationError) {
	if e.Severity == SeverityError {
		r.Errors = append(r.Errors, e)
		return
	}
	r.Warnings = append(r.Warnings, e)
}

// Validate checks cross references that cannot be enforced while the
// document is populated: wall levels, conduit geometry, conduit placement,
// link contents and view availability. Linked documents are validated too.
func (d *Document) Validate() ValidationResult {
	var r ValidationResult
	d.validateInto(&r, true)
	return r
}

func (d *Document) validateInto(r *ValidationResult, isHost bool) {
	for _, w := range d.walls {
		if _, ok := d.levels[w.LevelID]; !ok {
			r.add(ValidationError{
				Code:     "LEVEL_MISSING",
				Message:  fmt.Sprintf("wall references unknown level %d", w.LevelID),
				Document: d.title,
				Element:  w.ID,
				Severity: SeverityError,
			})
		}
	}

	for _, list := range [][]model.Conduit{d.ducts, d.pipes} {
		for _, c := range list {
			if _, err := c.Centerline(); err != nil {
				r.add(ValidationError{
					Code:     "DEGENERATE_CONDUIT",
					Message:  fmt.Sprintf("%s has a zero-length centerline and will be skipped", c.Kind),
					Document: d.title,
					Element:  c.ID,
					Severity: SeverityWarning,
				})
			}
			if c.Section.Kind == model.ShapeUnknown {
				r.add(ValidationError{
					Code:     "SECTION_UNKNOWN",
					Message:  fmt.Sprintf("%s has no cross-section; the default opening size applies", c.Kind),
					Document: d.title,
					Element:  c.ID,
					Severity: SeverityWarning,
				})
			}
		}
	}

	if !isHost {
		return
	}

	// Only conduits in linked documents are processed.
	for _, list := range [][]model.Conduit{d.ducts, d.pipes} {
		for _, c := range list {
			r.add(ValidationError{
				Code:     "HOST_CONDUIT_IGNORED",
				Message:  fmt.Sprintf("%s is in the host document; only linked conduits get openings", c.Kind),
				Document: d.title,
				Element:  c.ID,
				Severity: SeverityWarning,
			})
		}
	}

	for _, l := range d.links {
		if len(l.Doc.ducts) == 0 && len(l.Doc.pipes) == 0 && len(l.Doc.walls) == 0 {
			r.add(ValidationError{
				Code:     "EMPTY_LINK",
				Message:  fmt.Sprintf("linked document %q contains no walls or conduits", l.Doc.title),
				Document: d.title,
				Element:  l.ID,
				Severity: SeverityWarning,
			})
		}
		l.Doc.validateInto(r, false)
	}

	has3D := false
	for _, v := range d.views {
		if v.Is3D && !v.IsTemplate {
			has3D = true
			break
		}
	}
	if !has3D {
		r.add(ValidationError{
			Code:     "NO_3D_VIEW",
			Message:  "document has no non-template 3D view",
			Document: d.title,
			Element:  model.InvalidElementID,
			Severity: SeverityWarning,
		})
	}
}
