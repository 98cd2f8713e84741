package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/lattice/pkg/wire"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites a lattice script before passing it to zygomys.
// It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: vertex-ref -> vertex_ref
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Lisp ; comments become zygomys // comments.
//
// All transformations respect string literal boundaries and line comments.
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

// sexpVec wraps a point; 2D points keep Z at 0.
type sexpVec struct {
	vec v3.Vec
}

func (v *sexpVec) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec) Type() *zygo.RegisteredType { return nil }

// sexpVertex refers to a vertex of the network under construction.
type sexpVertex struct {
	index int
	name  string
}

func (v *sexpVertex) SexpString(ps *zygo.PrintState) string {
	if v.name != "" {
		return fmt.Sprintf("(vertex-ref %q)", v.name)
	}
	return fmt.Sprintf("(vertex #%d)", v.index)
}
func (v *sexpVertex) Type() *zygo.RegisteredType { return nil }

// sexpEdge refers to an edge of the network under construction.
type sexpEdge struct {
	index int
}

func (e *sexpEdge) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(edge #%d)", e.index)
}
func (e *sexpEdge) Type() *zygo.RegisteredType { return nil }

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

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// A trailing keyword with no value is a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
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

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec extracts a point from a sexpVec.
func toVec(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toPoint reads either a single vec argument or 2 or 3 coordinates.
func toPoint(args []zygo.Sexp) (v3.Vec, error) {
	if len(args) == 1 {
		return toVec(args[0])
	}
	if len(args) != 2 && len(args) != 3 {
		return v3.Vec{}, fmt.Errorf("expected a vec3 or 2-3 coordinates, got %d arguments", len(args))
	}
	var c [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return v3.Vec{}, fmt.Errorf("coordinate %d: %w", i, err)
		}
		c[i] = f
	}
	return v3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
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

// ---------------------------------------------------------------------------
// Network builder
// ---------------------------------------------------------------------------

// errNoSuchVertex is returned when a script names a vertex it never defined.
var errNoSuchVertex = errors.New("no such vertex")

// builder accumulates the network while a script runs.
type builder struct {
	dim       int
	vertices  []v3.Vec
	names     map[string]int
	edges     [][2]int
	cell      *sdf.Box3
	thickness float64
}

func newBuilder() *builder {
	return &builder{dim: 3, names: make(map[string]int)}
}

func (b *builder) addVertex(p v3.Vec, name string) (int, error) {
	if name != "" {
		if _, dup := b.names[name]; dup {
			return 0, fmt.Errorf("vertex %q defined twice", name)
		}
		b.names[name] = len(b.vertices)
	}
	b.vertices = append(b.vertices, p)
	return len(b.vertices) - 1, nil
}

// vertexOf resolves a vertex reference or a vertex name.
func (b *builder) vertexOf(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *sexpVertex:
		return v.index, nil
	case *zygo.SexpStr:
		i, ok := b.names[v.S]
		if !ok {
			return 0, fmt.Errorf("%w: %q", errNoSuchVertex, v.S)
		}
		return i, nil
	}
	return 0, fmt.Errorf("expected vertex or vertex name, got %T (%s)", s, s.SexpString(nil))
}

func (b *builder) addEdge(u, v zygo.Sexp) (int, error) {
	i, err := b.vertexOf(u)
	if err != nil {
		return 0, err
	}
	j, err := b.vertexOf(v)
	if err != nil {
		return 0, err
	}
	b.edges = append(b.edges, [2]int{i, j})
	return len(b.edges) - 1, nil
}

// network builds the wire network, applying the cell when one was set.
func (b *builder) network() (*wire.Network, error) {
	n, err := wire.New(b.dim, b.vertices, b.edges)
	if err != nil {
		return nil, err
	}
	if b.cell != nil {
		c := *b.cell
		if b.dim == 2 {
			c.Min.Z, c.Max.Z = 0, 0
		}
		n.SetCell(c)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the lattice builtins into a zygomys environment.
// They populate b while the script runs.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (dim 2)
	// -----------------------------------------------------------------------
	env.AddFunction("dim", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("dim requires exactly 1 argument, got %d", len(args))
		}
		d, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dim: %w", err)
		}
		if d != 2 && d != 3 {
			return zygo.SexpNull, fmt.Errorf("dim: must be 2 or 3, got %d", d)
		}
		b.dim = d
		return &zygo.SexpInt{Val: int64(d)}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3) and (vec2 1 2)
	// -----------------------------------------------------------------------
	for _, n := range []int{2, 3} {
		n := n
		fname := fmt.Sprintf("vec%d", n)
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != n {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly %d arguments, got %d", fname, n, len(args))
			}
			p, err := toPoint(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fname, err)
			}
			return &sexpVec{vec: p}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (vertex 0 0 0 :name "a") or (vertex (vec3 0 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("vertex", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		p, err := toPoint(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex: %w", err)
		}
		var vname string
		if v, ok := pa.kw["name"]; ok {
			if vname, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("vertex: name: %w", err)
			}
		}
		i, err := b.addVertex(p, vname)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex: %w", err)
		}
		return &sexpVertex{index: i, name: vname}, nil
	})

	// -----------------------------------------------------------------------
	// (vertex-ref "a")
	// -----------------------------------------------------------------------
	env.AddFunction("vertex_ref", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("vertex-ref requires a name argument")
		}
		vname, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex-ref: %w", err)
		}
		i, err := b.vertexOf(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex-ref: %w", err)
		}
		return &sexpVertex{index: i, name: vname}, nil
	})

	// -----------------------------------------------------------------------
	// (edge a b) with vertex references or names
	// -----------------------------------------------------------------------
	env.AddFunction("edge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("edge requires exactly 2 vertices, got %d", len(args))
		}
		e, err := b.addEdge(args[0], args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("edge: %w", err)
		}
		return &sexpEdge{index: e}, nil
	})

	// -----------------------------------------------------------------------
	// (path a b c ...) and (cycle a b c ...): edges between consecutive
	// vertices; cycle also joins the last to the first. Vertices may be
	// given inline or as one list.
	// -----------------------------------------------------------------------
	chain := func(closed bool) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) == 1 {
				items, err := sexpListToSlice(args[0])
				if err == nil {
					args = items
				}
			}
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 vertices, got %d", name, len(args))
			}
			n := len(args) - 1
			if closed {
				n = len(args)
			}
			edges := make([]zygo.Sexp, 0, n)
			for k := 0; k < n; k++ {
				e, err := b.addEdge(args[k], args[(k+1)%len(args)])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
				}
				edges = append(edges, &sexpEdge{index: e})
			}
			return zygo.MakeList(edges), nil
		}
	}
	env.AddFunction("path", chain(false))
	env.AddFunction("cycle", chain(true))

	// -----------------------------------------------------------------------
	// (cell (vec3 0 0 0) (vec3 1 1 1)) or (cell :min ... :max ...)
	// -----------------------------------------------------------------------
	env.AddFunction("cell", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		minArg, maxArg := pa.kw["min"], pa.kw["max"]
		if len(pa.positional) == 2 {
			minArg, maxArg = pa.positional[0], pa.positional[1]
		}
		if minArg == nil || maxArg == nil {
			return zygo.SexpNull, fmt.Errorf("cell requires a min and a max corner")
		}
		lo, err := toVec(minArg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cell: min: %w", err)
		}
		hi, err := toVec(maxArg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cell: max: %w", err)
		}
		b.cell = &sdf.Box3{Min: lo, Max: hi}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (thickness 0.1)
	// -----------------------------------------------------------------------
	env.AddFunction("thickness", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("thickness requires exactly 1 argument, got %d", len(args))
		}
		t, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("thickness: %w", err)
		}
		if !(t > 0) {
			return zygo.SexpNull, fmt.Errorf("thickness: must be positive, got %g", t)
		}
		b.thickness = t
		return &zygo.SexpFloat{Val: t}, nil
	})
}
