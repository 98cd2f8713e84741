// Package config loads inflation jobs from YAML or TOML files and maps them
// onto inflate parameters and options.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chazu/lattice/pkg/inflate"
	"github.com/chazu/lattice/pkg/kernel"
	"github.com/chazu/lattice/pkg/profile"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("config: invalid configuration")
	// ErrUnknownFormat is returned for files that are neither YAML nor TOML.
	ErrUnknownFormat = errors.New("config: unknown format")
)

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Config is one inflation job.
type Config struct {
	Mode string `yaml:"mode" toml:"mode"`
	// Dimension overrides the network dimension when non-zero.
	Dimension   int               `yaml:"dimension,omitempty" toml:"dimension,omitempty"`
	Profile     ProfileConfig     `yaml:"profile" toml:"profile"`
	Thickness   ThicknessConfig   `yaml:"thickness" toml:"thickness"`
	Offsets     []OffsetConfig    `yaml:"offsets,omitempty" toml:"offsets,omitempty"`
	Subdivision SubdivisionConfig `yaml:"subdivision" toml:"subdivision"`
	Correction  CorrectionConfig  `yaml:"correction" toml:"correction"`
	// FailOnShortEdge is a pointer so that an absent key keeps the default.
	FailOnShortEdge       *bool   `yaml:"fail_on_short_edge,omitempty" toml:"fail_on_short_edge,omitempty"`
	BooleanEngine         string  `yaml:"boolean_engine" toml:"boolean_engine"`
	Tolerance             float64 `yaml:"tolerance,omitempty" toml:"tolerance,omitempty"`
	MaxBoundaryEdgeLength float64 `yaml:"max_boundary_edge_length" toml:"max_boundary_edge_length"`
	ComputeShapeVelocity  bool    `yaml:"compute_shape_velocity" toml:"compute_shape_velocity"`

	// dir resolves relative paths; set by Load.
	dir string
}

// ProfileConfig names the beam cross-section.
type ProfileConfig struct {
	Shape string `yaml:"shape" toml:"shape"`
	Sides int    `yaml:"sides,omitempty" toml:"sides,omitempty"`
}

// ThicknessConfig holds the default thickness and per-orbit overrides.
type ThicknessConfig struct {
	Type    string             `yaml:"type" toml:"type"`
	Default float64            `yaml:"default" toml:"default"`
	Orbits  []OrbitToThickness `yaml:"orbits,omitempty" toml:"orbits,omitempty"`
}

// OrbitToThickness sets the thickness of one orbit.
type OrbitToThickness struct {
	Orbit int     `yaml:"orbit" toml:"orbit"`
	Value float64 `yaml:"value" toml:"value"`
}

// OffsetConfig displaces every vertex of one orbit.
type OffsetConfig struct {
	Orbit  int       `yaml:"orbit" toml:"orbit"`
	Offset []float64 `yaml:"offset" toml:"offset"`
}

// SubdivisionConfig selects mesh refinement.
type SubdivisionConfig struct {
	Algorithm string `yaml:"algorithm" toml:"algorithm"`
	Order     int    `yaml:"order" toml:"order"`
}

// CorrectionConfig points at a calibration table.
type CorrectionConfig struct {
	Table string  `yaml:"table,omitempty" toml:"table,omitempty"`
	Max   float64 `yaml:"max,omitempty" toml:"max,omitempty"`
}

// DefaultConfig returns a simple inflation with thickness 0.1.
func DefaultConfig() *Config {
	failOnShort := true
	return &Config{
		Mode:                  string(inflate.ModeSimple),
		Profile:               ProfileConfig{Shape: "square"},
		Thickness:             ThicknessConfig{Type: "vertex", Default: 0.1},
		Subdivision:           SubdivisionConfig{Algorithm: inflate.SubdivisionSimple},
		FailOnShortEdge:       &failOnShort,
		BooleanEngine:         inflate.DefaultOptions().BooleanEngine,
		MaxBoundaryEdgeLength: inflate.DefaultOptions().MaxBoundaryEdgeLength,
	}
}

// Load reads a configuration file, choosing the syntax by extension, and
// fills unset fields with defaults.
func Load(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Read decodes a configuration in the given format.
func Read(r io.Reader, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Write encodes c in the given format.
func (c *Config) Write(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("config: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(c); err != nil {
			return fmt.Errorf("config: encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.Profile.Shape == "" {
		c.Profile.Shape = def.Profile.Shape
	}
	if c.Thickness.Type == "" {
		c.Thickness.Type = def.Thickness.Type
	}
	if c.Thickness.Default == 0 {
		c.Thickness.Default = def.Thickness.Default
	}
	if c.Subdivision.Algorithm == "" {
		c.Subdivision.Algorithm = def.Subdivision.Algorithm
	}
	if c.FailOnShortEdge == nil {
		c.FailOnShortEdge = def.FailOnShortEdge
	}
	if c.BooleanEngine == "" {
		c.BooleanEngine = def.BooleanEngine
	}
	if c.MaxBoundaryEdgeLength == 0 {
		c.MaxBoundaryEdgeLength = def.MaxBoundaryEdgeLength
	}
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, err := inflate.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Dimension != 0 && c.Dimension != 2 && c.Dimension != 3 {
		bad("dimension %d", c.Dimension)
	}
	if _, _, err := profile.ParseShape(c.Profile.Shape, c.Profile.Sides); err != nil {
		errs = append(errs, err)
	}
	if _, err := inflate.ParseThicknessType(c.Thickness.Type); err != nil {
		errs = append(errs, err)
	}
	if !(c.Thickness.Default > 0) {
		bad("default thickness %g", c.Thickness.Default)
	}
	for _, o := range c.Thickness.Orbits {
		if o.Orbit < 0 || !(o.Value > 0) {
			bad("thickness %g for orbit %d", o.Value, o.Orbit)
		}
	}
	for _, o := range c.Offsets {
		if o.Orbit < 0 || len(o.Offset) < 2 || len(o.Offset) > 3 {
			bad("offset %v for orbit %d", o.Offset, o.Orbit)
		}
	}
	switch c.Subdivision.Algorithm {
	case inflate.SubdivisionSimple, inflate.SubdivisionLoop:
	default:
		bad("subdivision algorithm %q", c.Subdivision.Algorithm)
	}
	if c.Subdivision.Order < 0 {
		bad("subdivision order %d", c.Subdivision.Order)
	}
	if c.Correction.Max < 0 {
		bad("correction max %g", c.Correction.Max)
	}
	if !lo.Contains(kernel.BooleanEngines(), c.BooleanEngine) {
		bad("boolean engine %q (have %v)", c.BooleanEngine, kernel.BooleanEngines())
	}
	if c.Tolerance < 0 {
		bad("tolerance %g", c.Tolerance)
	}
	if !(c.MaxBoundaryEdgeLength > 0) {
		bad("max boundary edge length %g", c.MaxBoundaryEdgeLength)
	}
	return errors.Join(errs...)
}

// InflateMode returns the parsed inflation mode.
func (c *Config) InflateMode() (inflate.Mode, error) {
	return inflate.ParseMode(c.Mode)
}

// Parameters builds the design parameters.
func (c *Config) Parameters() (*inflate.Parameters, error) {
	tt, err := inflate.ParseThicknessType(c.Thickness.Type)
	if err != nil {
		return nil, err
	}
	p := inflate.NewParameters(c.Thickness.Default)
	p.ThicknessType = tt
	if len(c.Thickness.Orbits) > 0 {
		p.Thickness = lo.SliceToMap(c.Thickness.Orbits, func(o OrbitToThickness) (int, float64) {
			return o.Orbit, o.Value
		})
	}
	if len(c.Offsets) > 0 {
		p.Offsets = lo.SliceToMap(c.Offsets, func(o OffsetConfig) (int, v3.Vec) {
			var d v3.Vec
			for a, x := range lo.Slice(o.Offset, 0, 3) {
				d = kernel.WithCoord(d, a, x)
			}
			return o.Orbit, d
		})
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Options builds inflator options for a network of dimension dim, loading
// the correction table when one is configured. A nil logger selects the
// standard logger.
func (c *Config) Options(dim int, logger logrus.FieldLogger) (inflate.Options, error) {
	opts := inflate.DefaultOptions()
	if logger != nil {
		opts.Logger = logger
	}
	if c.Dimension != 0 {
		dim = c.Dimension
	}

	shape, sides, err := profile.ParseShape(c.Profile.Shape, c.Profile.Sides)
	if err != nil {
		return opts, err
	}
	if dim == 2 {
		shape, sides = profile.ShapeSegment, 2
	}
	if opts.Profile, err = profile.New(shape, sides); err != nil {
		return opts, err
	}

	if c.Correction.Table != "" {
		path := c.Correction.Table
		if !filepath.IsAbs(path) && c.dir != "" {
			path = filepath.Join(c.dir, path)
		}
		table, err := profile.LoadCorrectionTable(path)
		if err != nil {
			return opts, fmt.Errorf("config: correction table: %w", err)
		}
		opts.Correction = &profile.Correction{Table: table, Max: c.Correction.Max}
	}

	if c.FailOnShortEdge != nil {
		opts.FailOnShortEdge = *c.FailOnShortEdge
	}
	opts.Subdivision = inflate.Subdivision{Algorithm: c.Subdivision.Algorithm, Order: c.Subdivision.Order}
	opts.BooleanEngine = c.BooleanEngine
	opts.Tolerance = c.Tolerance
	opts.MaxBoundaryEdgeLength = c.MaxBoundaryEdgeLength
	opts.ComputeShapeVelocity = c.ComputeShapeVelocity
	return opts, nil
}
