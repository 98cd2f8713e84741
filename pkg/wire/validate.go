package wire

import (
	"errors"
	"fmt"

	"github.com/chazu/lattice/pkg/kernel"
)

// ValidationSeverity indicates whether a validation finding blocks
// inflation or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks inflation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ElementKind identifies what a validation finding refers to.
type ElementKind int

const (
	ElementNetwork ElementKind = iota
	ElementVertex
	ElementEdge
)

func (k ElementKind) String() string {
	switch k {
	case ElementVertex:
		return "vertex"
	case ElementEdge:
		return "edge"
	default:
		return "network"
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Element  ElementKind
	Index    int // element index; unused for network-level findings
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Element == ElementNetwork {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s %d: %s", e.Severity, e.Element, e.Index, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking errors were found.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Err joins the blocking errors, or returns nil.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Validate runs the structural and geometric checks on a network. It never
// mutates the network.
func Validate(n *Network) ValidationResult {
	var all []ValidationError
	all = append(all, validateDimension(n)...)
	all = append(all, validateEdges(n)...)
	all = append(all, validateVertices(n)...)
	all = append(all, validateCell(n)...)

	var r ValidationResult
	for _, e := range all {
		if e.Severity == SeverityWarning {
			r.Warnings = append(r.Warnings, e)
		} else {
			r.Errors = append(r.Errors, e)
		}
	}
	return r
}

func validateDimension(n *Network) []ValidationError {
	if n.Dim == 2 || n.Dim == 3 {
		return nil
	}
	return []ValidationError{{
		Message:  fmt.Sprintf("dimension must be 2 or 3, got %d", n.Dim),
		Severity: SeverityError,
	}}
}

// validateEdges checks references, self loops, duplicates and zero length.
func validateEdges(n *Network) []ValidationError {
	var errs []ValidationError
	tol := n.DefaultTolerance()
	seen := make(map[kernel.Edge]int)
	for i, e := range n.Edges {
		if e[0] < 0 || e[0] >= len(n.Vertices) || e[1] < 0 || e[1] >= len(n.Vertices) {
			errs = append(errs, ValidationError{
				Element: ElementEdge, Index: i,
				Message:  fmt.Sprintf("references vertex outside [0, %d)", len(n.Vertices)),
				Severity: SeverityError,
			})
			continue
		}
		if e[0] == e[1] {
			errs = append(errs, ValidationError{
				Element: ElementEdge, Index: i,
				Message:  fmt.Sprintf("self loop on vertex %d", e[0]),
				Severity: SeverityError,
			})
			continue
		}
		key := kernel.MakeEdge(e[0], e[1])
		if j, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Element: ElementEdge, Index: i,
				Message:  fmt.Sprintf("duplicates edge %d", j),
				Severity: SeverityError,
			})
			continue
		}
		seen[key] = i
		if n.EdgeLength(i) <= tol {
			errs = append(errs, ValidationError{
				Element: ElementEdge, Index: i,
				Message:  "zero length",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateVertices reports isolated vertices. They inflate to a ball, which
// is legal but usually unintended.
func validateVertices(n *Network) []ValidationError {
	used := make([]bool, len(n.Vertices))
	for _, e := range n.Edges {
		for _, v := range e {
			if v >= 0 && v < len(used) {
				used[v] = true
			}
		}
	}
	var errs []ValidationError
	for i, u := range used {
		if !u {
			errs = append(errs, ValidationError{
				Element: ElementVertex, Index: i,
				Message:  "isolated vertex",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func validateCell(n *Network) []ValidationError {
	if len(n.Vertices) == 0 {
		return []ValidationError{{Message: "network has no vertices", Severity: SeverityError}}
	}
	var errs []ValidationError
	b := n.Bounds()
	size := b.Size()
	for a := 0; a < n.Dim && a < 3; a++ {
		if kernel.Coord(size, a) <= 0 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("cell has no extent along axis %d", a),
				Severity: SeverityWarning,
			})
		}
	}
	if n.Cell == nil {
		return errs
	}
	tol := n.DefaultTolerance()
	for i, v := range n.Vertices {
		for a := 0; a < n.Dim; a++ {
			x := kernel.Coord(v, a)
			if x < kernel.Coord(b.Min, a)-tol || x > kernel.Coord(b.Max, a)+tol {
				errs = append(errs, ValidationError{
					Element: ElementVertex, Index: i,
					Message:  "lies outside the cell",
					Severity: SeverityWarning,
				})
				break
			}
		}
	}
	return errs
}
