package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/chazu/lattice/pkg/kernel"
)

// Document is the JSON form of a Result.
type Document struct {
	Dim        int         `json:"dim"`
	Vertices   [][]float64 `json:"vertices"`
	Faces      [][3]int    `json:"faces"`
	FaceSource []int       `json:"face_source,omitempty"`
	Velocities []Velocity  `json:"shape_velocities,omitempty"`
}

// Velocity is the per-vertex velocity field of one design parameter.
type Velocity struct {
	Parameter string      `json:"parameter"`
	Rows      [][]float64 `json:"rows"`
}

// NewDocument flattens r into a Document.
func NewDocument(r Result) Document {
	m := r.Mesh
	doc := Document{Dim: m.Dim}
	for i := 0; i < m.VertexCount(); i++ {
		doc.Vertices = append(doc.Vertices, append([]float64(nil), m.Vertices[i*m.Dim:(i+1)*m.Dim]...))
	}
	for i := 0; i < m.FaceCount(); i++ {
		doc.Faces = append(doc.Faces, m.Face(i))
	}
	if src, err := m.Attribute(kernel.FaceSourceAttribute); err == nil {
		for _, s := range src {
			doc.FaceSource = append(doc.FaceSource, int(s))
		}
	}
	for k, v := range r.Velocities {
		name := fmt.Sprintf("p%d", k)
		if k < len(r.Parameters) {
			name = r.Parameters[k]
		}
		rows, cols := v.Dims()
		vel := Velocity{Parameter: name, Rows: make([][]float64, rows)}
		for i := 0; i < rows; i++ {
			vel.Rows[i] = make([]float64, cols)
			for c := 0; c < cols; c++ {
				vel.Rows[i][c] = v.At(i, c)
			}
		}
		doc.Velocities = append(doc.Velocities, vel)
	}
	return doc
}

// WriteJSON encodes doc with indentation.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export: json: %w", err)
	}
	return nil
}

// SaveJSON writes doc to path.
func SaveJSON(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := WriteJSON(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
