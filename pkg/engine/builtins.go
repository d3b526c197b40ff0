package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/wallhole/pkg/memdoc"
	"github.com/chazu/wallhole/pkg/model"
	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites scene source before it reaches zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: link-title -> link_title
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Line comments: ; and ;; become //.
//
// String literals are copied unchanged.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or vector.
type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpElement refers to an element created by a builtin.
type sexpElement struct {
	kind string
	id   model.ElementID
	name string
}

func (e *sexpElement) SexpString(ps *zygo.PrintState) string {
	if e.name != "" {
		return fmt.Sprintf("(%s %q :id %d)", e.kind, e.name, e.id)
	}
	return fmt.Sprintf("(%s :id %d)", e.kind, e.id)
}
func (e *sexpElement) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A
// keyword followed by another keyword, or by nothing, is a flag and maps
// to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				result.kw[name] = args[i+1]
				i += 2
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
		i++
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean. A bare keyword flag counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toID extracts an element id from an integer or an element reference.
func toID(s zygo.Sexp) (model.ElementID, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return model.ElementID(v.Val), nil
	case *sexpElement:
		return v.id, nil
	}
	return model.InvalidElementID, fmt.Errorf("expected element id, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return r3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// floatArg reads an optional numeric keyword, leaving dst unchanged when
// the keyword is absent.
func floatArg(pa kwArgs, key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// vecArg reads a required vec3 keyword.
func vecArg(pa kwArgs, key string) (r3.Vec, error) {
	v, ok := pa.kw[key]
	if !ok {
		return r3.Vec{}, fmt.Errorf(":%s is required", key)
	}
	vec, err := toVec3(v)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("%s: %w", key, err)
	}
	return vec, nil
}

// idArg reads the required :id keyword.
func idArg(pa kwArgs) (model.ElementID, error) {
	v, ok := pa.kw["id"]
	if !ok {
		return model.InvalidElementID, fmt.Errorf(":id is required")
	}
	id, err := toID(v)
	if err != nil {
		return model.InvalidElementID, fmt.Errorf("id: %w", err)
	}
	return id, nil
}

// nameArg reads the leading positional string argument.
func nameArg(pa kwArgs) (string, error) {
	if len(pa.positional) < 1 {
		return "", fmt.Errorf("a name is required")
	}
	s, err := toString(pa.positional[0])
	if err != nil {
		return "", fmt.Errorf("name: %w", err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Scene construction
// ---------------------------------------------------------------------------

// scene holds the host document being populated by builtins.
type scene struct {
	host *memdoc.Document
}

// target returns the document named by :in, or the host document.
func (s *scene) target(pa kwArgs) (*memdoc.Document, error) {
	v, ok := pa.kw["in"]
	if !ok {
		return s.host, nil
	}
	title, err := toString(v)
	if err != nil {
		return nil, fmt.Errorf("in: %w", err)
	}
	l, ok := s.host.LinkByTitle(title)
	if !ok {
		return nil, fmt.Errorf("in: no linked document titled %q", title)
	}
	return l.Doc, nil
}

// levelArg resolves :level, given as a level name or a level reference,
// in doc.
func levelArg(doc *memdoc.Document, pa kwArgs) (model.ElementID, error) {
	v, ok := pa.kw["level"]
	if !ok {
		return model.InvalidElementID, fmt.Errorf(":level is required")
	}
	if ref, ok := v.(*sexpElement); ok {
		if ref.kind != "level" {
			return model.InvalidElementID, fmt.Errorf("level: expected level, got %s", ref.kind)
		}
		if _, found := doc.Level(ref.id); !found {
			return model.InvalidElementID, fmt.Errorf("level: no level %d in %q", ref.id, doc.Title())
		}
		return ref.id, nil
	}
	name, err := toString(v)
	if err != nil {
		return model.InvalidElementID, fmt.Errorf("level: %w", err)
	}
	l, found := doc.LevelByName(name)
	if !found {
		return model.InvalidElementID, fmt.Errorf("level: no level named %q in %q", name, doc.Title())
	}
	return l.ID, nil
}

// sectionArg reads :diameter or :width with :height. Neither gives an
// unknown section.
func sectionArg(pa kwArgs) (model.Section, error) {
	_, hasDia := pa.kw["diameter"]
	_, hasW := pa.kw["width"]
	_, hasH := pa.kw["height"]
	switch {
	case hasDia && (hasW || hasH):
		return model.Section{}, fmt.Errorf(":diameter cannot be combined with :width or :height")
	case hasDia:
		var d float64
		if err := floatArg(pa, "diameter", &d); err != nil {
			return model.Section{}, err
		}
		return model.Round(d), nil
	case hasW != hasH:
		return model.Section{}, fmt.Errorf(":width and :height must be given together")
	case hasW:
		var w, h float64
		if err := floatArg(pa, "width", &w); err != nil {
			return model.Section{}, err
		}
		if err := floatArg(pa, "height", &h); err != nil {
			return model.Section{}, err
		}
		return model.Rectangular(w, h), nil
	}
	return model.Section{}, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins into a zygomys environment.
// They populate s.host while the program runs.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *scene) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		var v [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: r3.Vec{X: v[0], Y: v[1], Z: v[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (level "L1" :id 1 :elevation 0 [:in "Title"])
	// -----------------------------------------------------------------------
	env.AddFunction("level", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		levelName, err := nameArg(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("level: %w", err)
		}
		id, err := idArg(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("level: %w", err)
		}
		l := model.Level{ID: id, Name: levelName}
		if err := floatArg(pa, "elevation", &l.Elevation); err != nil {
			return zygo.SexpNull, fmt.Errorf("level: %w", err)
		}
		doc, err := s.target(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("level: %w", err)
		}
		if err := doc.AddLevel(l); err != nil {
			return zygo.SexpNull, fmt.Errorf("level: %w", err)
		}
		return &sexpElement{kind: "level", id: id, name: levelName}, nil
	})

	// -----------------------------------------------------------------------
	// (wall :id 101 :level "L1" :from v :to v :thickness t :height h
	//       [:base b] [:in "Title"] [:read-only])
	// -----------------------------------------------------------------------
	env.AddFunction("wall", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		doc, err := s.target(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("wall: %w", err)
		}

		var w memdoc.Wall
		if w.ID, err = idArg(pa); err != nil {
			return zygo.SexpNull, fmt.Errorf("wall: %w", err)
		}
		if w.LevelID, err = levelArg(doc, pa); err != nil {
			return zygo.SexpNull, fmt.Errorf("wall %d: %w", w.ID, err)
		}
		if w.Start, err = vecArg(pa, "from"); err != nil {
			return zygo.SexpNull, fmt.Errorf("wall %d: %w", w.ID, err)
		}
		if w.End, err = vecArg(pa, "to"); err != nil {
			return zygo.SexpNull, fmt.Errorf("wall %d: %w", w.ID, err)
		}
		for _, f := range []struct {
			key string
			dst *float64
		}{
			{"thickness", &w.Thickness},
			{"height", &w.Height},
			{"base", &w.Base},
		} {
			if err := floatArg(pa, f.key, f.dst); err != nil {
				return zygo.SexpNull, fmt.Errorf("wall %d: %w", w.ID, err)
			}
		}
		if v, ok := pa.kw["read-only"]; ok {
			if w.ReadOnly, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("wall %d: read-only: %w", w.ID, err)
			}
		}

		if _, err := doc.AddWall(w); err != nil {
			return zygo.SexpNull, fmt.Errorf("wall: %w", err)
		}
		return &sexpElement{kind: "wall", id: w.ID}, nil
	})

	// -----------------------------------------------------------------------
	// (link "HVAC model" :id 900)
	// -----------------------------------------------------------------------
	env.AddFunction("link", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		title, err := nameArg(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("link: %w", err)
		}
		id, err := idArg(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("link: %w", err)
		}
		if _, exists := s.host.LinkByTitle(title); exists {
			return zygo.SexpNull, fmt.Errorf("link: a linked document titled %q already exists", title)
		}
		if _, err := s.host.AddLink(id, memdoc.New(title, s.host.Kernel())); err != nil {
			return zygo.SexpNull, fmt.Errorf("link: %w", err)
		}
		return &sexpElement{kind: "link", id: id, name: title}, nil
	})

	// -----------------------------------------------------------------------
	// (duct :in "Title" :id 1 :from v :to v [:diameter d | :width w :height h])
	// (pipe :in "Title" :id 2 :from v :to v [:diameter d])
	// -----------------------------------------------------------------------
	conduit := func(kind model.ConduitKind) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			doc, err := s.target(pa)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", kind, err)
			}

			c := model.Conduit{Kind: kind}
			if c.ID, err = idArg(pa); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", kind, err)
			}
			if c.Start, err = vecArg(pa, "from"); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %d: %w", kind, c.ID, err)
			}
			if c.End, err = vecArg(pa, "to"); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %d: %w", kind, c.ID, err)
			}
			if c.Section, err = sectionArg(pa); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %d: %w", kind, c.ID, err)
			}

			if err := doc.AddConduit(c); err != nil {
				return zygo.SexpNull, err
			}
			return &sexpElement{kind: kind.String(), id: c.ID}, nil
		}
	}
	env.AddFunction("duct", conduit(model.ConduitDuct))
	env.AddFunction("pipe", conduit(model.ConduitPipe))

	// -----------------------------------------------------------------------
	// (family "Rectangular opening" :id 500 :type "Standard"
	//         :params (list "Width" "Height") :active false)
	// -----------------------------------------------------------------------
	env.AddFunction("family", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		familyName, err := nameArg(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("family: %w", err)
		}
		sym := model.FamilySymbol{FamilyName: familyName}
		if sym.ID, err = idArg(pa); err != nil {
			return zygo.SexpNull, fmt.Errorf("family: %w", err)
		}
		if v, ok := pa.kw["type"]; ok {
			if sym.TypeName, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("family: type: %w", err)
			}
		}
		if v, ok := pa.kw["params"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("family: params: %w", err)
			}
			for _, item := range items {
				p, err := toString(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("family: params entry: %w", err)
				}
				sym.Parameters = append(sym.Parameters, p)
			}
		}
		if v, ok := pa.kw["active"]; ok {
			if sym.Active, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("family: active: %w", err)
			}
		}

		if err := s.host.AddSymbol(sym); err != nil {
			return zygo.SexpNull, fmt.Errorf("family: %w", err)
		}
		return &sexpElement{kind: "family", id: sym.ID, name: familyName}, nil
	})

	// -----------------------------------------------------------------------
	// (view3d "{3D}" :id 700 [:template true])
	// -----------------------------------------------------------------------
	env.AddFunction("view3d", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		viewName, err := nameArg(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("view3d: %w", err)
		}
		v := model.View{Name: viewName, Is3D: true}
		if v.ID, err = idArg(pa); err != nil {
			return zygo.SexpNull, fmt.Errorf("view3d: %w", err)
		}
		if t, ok := pa.kw["template"]; ok {
			if v.IsTemplate, err = toBool(t); err != nil {
				return zygo.SexpNull, fmt.Errorf("view3d: template: %w", err)
			}
		}

		if err := s.host.AddView(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("view3d: %w", err)
		}
		return &sexpElement{kind: "view3d", id: v.ID, name: viewName}, nil
	})
}
