package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrSyntax is returned for malformed .wire input.
var ErrSyntax = errors.New("wire: syntax error")

// Read parses the .wire text format: "v x y [z]" vertex lines and "l i j"
// edge lines with 1-based indices. Lines starting with # are comments. The
// dimension is 2 when every vertex has two coordinates, 3 otherwise.
func Read(r io.Reader) (*Network, error) {
	var verts []v3.Vec
	var edges [][2]int
	dim := 2
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) != 3 && len(fields) != 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 2 or 3 coordinates", ErrSyntax, line)
			}
			var c [3]float64
			for k, f := range fields[1:] {
				x, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, line, err)
				}
				c[k] = x
			}
			if len(fields) == 4 {
				dim = 3
			}
			verts = append(verts, v3.Vec{X: c[0], Y: c[1], Z: c[2]})
		case "l":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: line %d: edge needs 2 indices", ErrSyntax, line)
			}
			var e [2]int
			for k, f := range fields[1:] {
				i, err := strconv.Atoi(f)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, line, err)
				}
				e[k] = i - 1
			}
			edges = append(edges, e)
		default:
			return nil, fmt.Errorf("%w: line %d: unknown record %q", ErrSyntax, line, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("wire: read: %w", err)
	}
	return New(dim, verts, edges)
}

// Load reads a .wire file.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Write emits n in the .wire text format.
func Write(w io.Writer, n *Network) error {
	bw := bufio.NewWriter(w)
	for _, v := range n.Vertices {
		if n.Dim == 2 {
			fmt.Fprintf(bw, "v %s %s\n", fmtFloat(v.X), fmtFloat(v.Y))
		} else {
			fmt.Fprintf(bw, "v %s %s %s\n", fmtFloat(v.X), fmtFloat(v.Y), fmtFloat(v.Z))
		}
	}
	for _, e := range n.Edges {
		fmt.Fprintf(bw, "l %d %d\n", e[0]+1, e[1]+1)
	}
	return bw.Flush()
}

// Save writes n to a .wire file.
func Save(path string, n *Network) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wire: %w", err)
	}
	if err := Write(f, n); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
