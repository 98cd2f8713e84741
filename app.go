package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/lattice/pkg/config"
	"github.com/chazu/lattice/pkg/engine"
	"github.com/chazu/lattice/pkg/export"
	"github.com/chazu/lattice/pkg/inflate"
	"github.com/chazu/lattice/pkg/wire"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownInput is returned for input files that are neither .wire
	// networks nor .lat scripts.
	ErrUnknownInput = errors.New("unknown input format")
	// ErrScript wraps the evaluation errors of a lattice script.
	ErrScript = errors.New("script error")
	// ErrInvalidNetwork is returned when network validation finds errors.
	ErrInvalidNetwork = errors.New("invalid network")
)

// App runs the inflation pipeline: load a network, inflate it, export the
// result.
type App struct {
	engine *engine.Engine
	log    logrus.FieldLogger
}

// Input is a loaded wire network with the settings its script made.
type Input struct {
	Network    *wire.Network
	Thickness  float64 // zero when the script did not set one
	Validation wire.ValidationResult
}

// NewApp creates an App. A nil logger selects the standard logger.
func NewApp(log logrus.FieldLogger) *App {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &App{engine: engine.NewEngine(), log: log}
}

// Load reads a network from a .wire file or evaluates a .lat script.
func (a *App) Load(path string) (*Input, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wire":
		net, err := wire.Load(path)
		if err != nil {
			return nil, err
		}
		in := &Input{Network: net, Validation: wire.Validate(net)}
		a.logLoaded(path, in)
		return in, nil
	case ".lat", ".lisp":
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		in, err := a.LoadScript(string(source))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		a.logLoaded(path, in)
		return in, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownInput, path)
}

// LoadScript evaluates lattice script source.
func (a *App) LoadScript(source string) (*Input, error) {
	p, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		msgs := lo.Map(evalErrs, func(e engine.EvalError, _ int) string { return e.Error() })
		return nil, fmt.Errorf("%w: %s", ErrScript, strings.Join(msgs, "; "))
	}
	return &Input{Network: p.Network, Thickness: p.Thickness, Validation: p.Validation}, nil
}

func (a *App) logLoaded(path string, in *Input) {
	a.log.WithFields(logrus.Fields{
		"input":    path,
		"dim":      in.Network.Dim,
		"vertices": in.Network.VertexCount(),
		"edges":    in.Network.EdgeCount(),
	}).Info("loaded network")
	for _, w := range in.Validation.Warnings {
		a.log.WithField("input", path).Warn(w.Error())
	}
}

// Inflate runs the configured inflator on in. A thickness set by the
// script replaces the configured default thickness.
func (a *App) Inflate(in *Input, cfg *config.Config) (export.Result, error) {
	if err := in.Validation.Err(); err != nil {
		return export.Result{}, fmt.Errorf("%w: %v", ErrInvalidNetwork, err)
	}
	if err := cfg.Validate(); err != nil {
		return export.Result{}, err
	}
	mode, err := cfg.InflateMode()
	if err != nil {
		return export.Result{}, err
	}
	params, err := cfg.Parameters()
	if err != nil {
		return export.Result{}, err
	}
	if in.Thickness > 0 {
		params.DefaultThickness = in.Thickness
	}
	opts, err := cfg.Options(in.Network.Dim, a.log)
	if err != nil {
		return export.Result{}, err
	}

	inf, err := inflate.New(mode, in.Network, params, opts)
	if err != nil {
		return export.Result{}, err
	}
	if err := inf.Inflate(); err != nil {
		return export.Result{}, err
	}

	r := export.Result{Mesh: inf.Mesh(), Velocities: inf.ShapeVelocities()}
	if d, ok := inf.(interface {
		DesignParameters() []inflate.DesignParameter
	}); ok {
		r.Parameters = lo.Map(d.DesignParameters(), func(p inflate.DesignParameter, _ int) string {
			return p.String()
		})
	}
	fields := logrus.Fields{
		"mode":     mode,
		"vertices": r.Mesh.VertexCount(),
		"faces":    r.Mesh.FaceCount(),
	}
	if r.Mesh.Dim == 3 {
		vol, err := r.Mesh.TriMesh().CheckedVolume()
		if err != nil {
			return export.Result{}, err
		}
		fields["volume"] = vol
	}
	a.log.WithFields(fields).Info("inflated")
	return r, nil
}

// Run loads input, inflates it with the configuration at configPath (the
// defaults when empty) and writes the mesh to output.
func (a *App) Run(input, configPath, output string) error {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	if _, err := export.FormatOf(output); err != nil {
		return err
	}
	in, err := a.Load(input)
	if err != nil {
		return err
	}
	r, err := a.Inflate(in, cfg)
	if err != nil {
		return err
	}
	if err := export.Save(output, r); err != nil {
		return err
	}
	a.log.WithField("output", output).Info("saved mesh")
	return nil
}
