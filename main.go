// Command latticeinflate inflates wire networks into solid meshes.
package main

import (
	"fmt"
	"io"
	"os"

	_ "github.com/chazu/lattice/pkg/kernel/manifold" // registers the manifold boolean engine
	"github.com/chazu/lattice/pkg/wire"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		logLevel string
		logJSON  bool
	)
	log := logrus.New()

	root := &cobra.Command{
		Use:          "latticeinflate",
		Short:        "Inflate wire networks into solid meshes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			log.SetOutput(cmd.ErrOrStderr())
			if logJSON {
				log.SetFormatter(&logrus.JSONFormatter{})
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")

	root.AddCommand(
		newInflateCommand(log),
		newValidateCommand(log),
		newOrbitsCommand(log),
	)
	return root
}

func newInflateCommand(log *logrus.Logger) *cobra.Command {
	var configPath, output string
	cmd := &cobra.Command{
		Use:   "inflate <input.wire|input.lat>",
		Short: "Inflate a network and write the mesh",
		Long: "Inflate a network and write the mesh. The output format follows the\n" +
			"extension of --output: .stl, .3mf, .dxf (2D only) or .json.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewApp(log).Run(args[0], configPath, output)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML or TOML job configuration")
	cmd.Flags().StringVarP(&output, "output", "o", "out.stl", "output mesh path")
	return cmd
}

func newValidateCommand(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <input.wire|input.lat>",
		Short: "Report problems in a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := NewApp(log).Load(args[0])
			if err != nil {
				return err
			}
			writeValidation(cmd.OutOrStdout(), in.Validation)
			if err := in.Validation.Err(); err != nil {
				return fmt.Errorf("%w: %d errors", ErrInvalidNetwork, len(in.Validation.Errors))
			}
			return nil
		},
	}
}

func writeValidation(w io.Writer, r wire.ValidationResult) {
	for _, e := range r.Errors {
		fmt.Fprintln(w, e.Error())
	}
	for _, e := range r.Warnings {
		fmt.Fprintln(w, e.Error())
	}
	fmt.Fprintf(w, "%d errors, %d warnings\n", len(r.Errors), len(r.Warnings))
}

func newOrbitsCommand(log *logrus.Logger) *cobra.Command {
	var tol float64
	cmd := &cobra.Command{
		Use:   "orbits <input.wire|input.lat>",
		Short: "Print the periodic vertex and edge orbits of a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := NewApp(log).Load(args[0])
			if err != nil {
				return err
			}
			vo, eo := in.Network.PeriodicOrbits(tol)
			writeOrbits(cmd.OutOrStdout(), vo, eo)
			return nil
		},
	}
	cmd.Flags().Float64Var(&tol, "tolerance", 0, "matching tolerance (0 picks one from the cell size)")
	return cmd
}

func writeOrbits(w io.Writer, vertexOrbits, edgeOrbits []int) {
	fmt.Fprintf(w, "%d vertex orbits, %d edge orbits\n",
		wire.OrbitCount(vertexOrbits), wire.OrbitCount(edgeOrbits))
	for i, o := range vertexOrbits {
		fmt.Fprintf(w, "v %d %d\n", i, o)
	}
	for i, o := range edgeOrbits {
		fmt.Fprintf(w, "l %d %d\n", i, o)
	}
}
