package engine

import (
	"strings"
	"testing"

	"github.com/chazu/lattice/pkg/wire"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(vertex 0 0 0 :name "a")`,
			expect: `(vertex 0 0 0 "__kw_name" "a")`,
		},
		{
			name:   "multiple keywords",
			input:  `(cell :min lo :max hi)`,
			expect: `(cell "__kw_min" lo "__kw_max" hi)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(vertex-ref "a")`,
			expect: `(vertex_ref "a")`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vertex -1 0 0)`,
			expect: `(vertex -1 0 0)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// mustEvaluate runs source and fails the test on any error.
func mustEvaluate(t *testing.T, source string) *Program {
	t.Helper()
	p, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if p == nil {
		t.Fatal("expected non-nil program")
	}
	return p
}

// ---------------------------------------------------------------------------
// Network construction
// ---------------------------------------------------------------------------

func TestSingleEdge(t *testing.T) {
	p := mustEvaluate(t, `
(def a (vertex 0 0 0))
(def b (vertex 1 0 0))
(edge a b)
`)
	n := p.Network
	if n.Dim != 3 {
		t.Errorf("expected dim 3, got %d", n.Dim)
	}
	if n.VertexCount() != 2 || n.EdgeCount() != 1 {
		t.Fatalf("expected 2 vertices and 1 edge, got %d and %d", n.VertexCount(), n.EdgeCount())
	}
	if n.Edges[0] != [2]int{0, 1} {
		t.Errorf("expected edge {0 1}, got %v", n.Edges[0])
	}
	if n.Vertices[1] != (v3.Vec{X: 1}) {
		t.Errorf("expected vertex 1 at (1,0,0), got %v", n.Vertices[1])
	}
}

func TestNamedVertices(t *testing.T) {
	p := mustEvaluate(t, `
(vertex (vec3 0 0 0) :name "origin")
(vertex 0.5 0.5 0.5 :name "center")
(edge "origin" "center")
(edge (vertex-ref "center") (vertex 1 1 1))
`)
	n := p.Network
	if n.VertexCount() != 3 || n.EdgeCount() != 2 {
		t.Fatalf("expected 3 vertices and 2 edges, got %d and %d", n.VertexCount(), n.EdgeCount())
	}
	if n.Edges[1] != [2]int{1, 2} {
		t.Errorf("expected edge {1 2}, got %v", n.Edges[1])
	}
	if !p.Validation.OK() {
		t.Errorf("unexpected validation errors: %v", p.Validation.Err())
	}
}

func TestPathAndCycle(t *testing.T) {
	p := mustEvaluate(t, `
(dim 2)
(def a (vertex 0 0))
(def b (vertex 1 0))
(def c (vertex 1 1))
(def d (vertex 0 1))
(cycle a b c d)
(path (list a c))
`)
	n := p.Network
	if n.Dim != 2 {
		t.Errorf("expected dim 2, got %d", n.Dim)
	}
	if n.EdgeCount() != 5 {
		t.Fatalf("expected 4 cycle edges and 1 path edge, got %d", n.EdgeCount())
	}
	if n.Edges[3] != [2]int{3, 0} {
		t.Errorf("expected closing edge {3 0}, got %v", n.Edges[3])
	}
	if n.Edges[4] != [2]int{0, 2} {
		t.Errorf("expected diagonal {0 2}, got %v", n.Edges[4])
	}
}

func TestCellAndThickness(t *testing.T) {
	p := mustEvaluate(t, `
(thickness 0.3)
(cell (vec3 0 0 0) (vec3 1 1 1))
(vertex 0.5 0.5 0.5)
`)
	if p.Thickness != 0.3 {
		t.Errorf("expected thickness 0.3, got %g", p.Thickness)
	}
	if p.Network.Cell == nil {
		t.Fatal("expected an explicit cell")
	}
	if p.Network.Bounds().Max != (v3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Errorf("unexpected cell %v", p.Network.Bounds())
	}
	if !p.Validation.OK() {
		t.Errorf("unexpected validation errors: %v", p.Validation.Err())
	}
	if len(p.Validation.Warnings) != 1 || p.Validation.Warnings[0].Element != wire.ElementVertex {
		t.Errorf("expected one isolated-vertex warning, got %v", p.Validation.Warnings)
	}
}

func TestCellKeywordsIn2D(t *testing.T) {
	p := mustEvaluate(t, `
(dim 2)
(cell :min (vec2 -1 -1) :max (vec2 1 1))
(edge (vertex -1 0) (vertex 1 0))
`)
	b := p.Network.Bounds()
	if b.Min != (v3.Vec{X: -1, Y: -1}) || b.Max != (v3.Vec{X: 1, Y: 1}) {
		t.Errorf("unexpected cell %v", b)
	}
}

func TestArithmeticInCoordinates(t *testing.T) {
	p := mustEvaluate(t, `
(def h 0.5)
(edge (vertex 0 0 0) (vertex (* 2 h) (+ h h) 1))
`)
	if p.Network.Vertices[1] != (v3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Errorf("expected (1,1,1), got %v", p.Network.Vertices[1])
	}
}

func TestValidationFindings(t *testing.T) {
	p := mustEvaluate(t, `
(def a (vertex 0 0 0))
(def b (vertex 1 1 1))
(edge a b)
(edge b a)
`)
	if p.Validation.OK() {
		t.Fatal("expected a duplicate-edge validation error")
	}
	if !strings.Contains(p.Validation.Err().Error(), "duplicates edge 0") {
		t.Errorf("unexpected validation error: %v", p.Validation.Err())
	}
}

// ---------------------------------------------------------------------------
// Script errors
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"unknown vertex name", `(vertex 0 0 0) (edge "a" "b")`, "no such vertex"},
		{"duplicate name", `(vertex 0 0 0 :name "a") (vertex 1 0 0 :name "a")`, "defined twice"},
		{"bad dimension", `(dim 4)`, "must be 2 or 3"},
		{"bad thickness", `(thickness -1)`, "must be positive"},
		{"edge arity", `(edge (vertex 0 0 0))`, "exactly 2 vertices"},
		{"vertex arity", `(vertex 1 2 3 4)`, "2-3 coordinates"},
		{"cell corners", `(cell (vec3 0 0 0))`, "min and a max"},
		{"vec3 arity", `(vec3 1 2)`, "exactly 3 arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if p != nil {
				t.Fatal("expected nil program on eval error")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected at least one eval error")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.want)
			}
		})
	}
}

func TestEvaluationsAreIndependent(t *testing.T) {
	eng := NewEngine()
	if _, _, err := eng.Evaluate(`(vertex 0 0 0 :name "a")`); err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	// The name from the previous run must not leak into this one.
	p, evalErrs, err := eng.Evaluate(`(vertex 0 0 0 :name "a")`)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("unexpected errors: %v %v", err, evalErrs)
	}
	if p.Network.VertexCount() != 1 {
		t.Errorf("expected 1 vertex, got %d", p.Network.VertexCount())
	}
}
