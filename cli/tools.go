package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/morphogen/config"
	"github.com/pthm-cable/morphogen/creature"
	"github.com/pthm-cable/morphogen/evolution"
	"github.com/pthm-cable/morphogen/experiment"
	"github.com/pthm-cable/morphogen/population"
	"github.com/pthm-cable/morphogen/sim"
)

// loadIndividual reads one chromosome CSV.
func loadIndividual(cfg *config.Config, path string) (*creature.Individual, error) {
	c, err := population.ReadChromosome(path)
	if err != nil {
		return nil, err
	}
	return creature.New(cfg.Derived.Spec, c)
}

var renderOut string

var renderCmd = &cobra.Command{
	Use:   "render <chromosome.csv>",
	Short: "Write the robot description for a chromosome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ind, err := loadIndividual(cfg, args[0])
		if err != nil {
			return err
		}
		doc, err := ind.URDF(cfg.Simulation.RobotName)
		if err != nil {
			return err
		}
		if renderOut == "" {
			_, err = cmd.OutOrStdout().Write(doc)
			return err
		}
		return os.WriteFile(renderOut, doc, 0644)
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <chromosome.csv>",
	Short: "Summarize the body plan of a chromosome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ind, err := loadIndividual(cfg, args[0])
		if err != nil {
			return err
		}
		return writeInspection(cmd.OutOrStdout(), ind)
	},
}

func writeInspection(w io.Writer, ind *creature.Individual) error {
	flat, err := ind.FlatSegments()
	if err != nil {
		return err
	}
	expanded, err := ind.ExpandedSegments()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "genes\t%d\n", ind.Chromosome().Len())
	fmt.Fprintf(tw, "flat segments\t%d\n", len(flat))
	fmt.Fprintf(tw, "expanded segments\t%d\n\n", len(expanded))
	fmt.Fprintln(tw, "SEGMENT\tPARENT\tREPEAT")
	for _, s := range flat {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Name, s.ParentName, s.Repeat)
	}
	return tw.Flush()
}

var replayOut string

var replayCmd = &cobra.Command{
	Use:   "replay [generation-dir]",
	Short: "Re-evaluate a saved generation and export its fittest individual",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		id := cfg.Output.Identifier

		dir := ""
		if len(args) == 1 {
			dir = args[0]
		} else if dir, _, err = population.LatestGenerationDir(cfg.Output.Dir, id); err != nil {
			return err
		}
		inds, err := population.LoadIndividuals(cfg.Derived.Spec, dir, id)
		if err != nil {
			return err
		}
		if len(inds) == 0 {
			return fmt.Errorf("%w: no %s chromosomes in %s", population.ErrEmpty, id, dir)
		}

		factory, err := experiment.NewEngineFactory(cfg)
		if err != nil {
			return err
		}
		pool, err := sim.NewPool(min(cfg.Derived.Workers, len(inds)), factory, cfg.Simulation.Episode)
		if err != nil {
			return err
		}
		defer pool.Close()

		evaluated, err := pool.Evaluate(cmd.Context(), inds)
		if err != nil {
			return err
		}
		fits := evolution.FitnessAll(evaluated)

		best := 0
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tID\tDISTANCE\tFITNESS")
		for i, ind := range evaluated {
			fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\n", i, ind.ID, ind.Displacement(), fits[i])
			if fits[i] > fits[best] {
				best = i
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if err := os.MkdirAll(replayOut, 0755); err != nil {
			return err
		}
		fittest := evaluated[best]
		if err := population.WriteChromosome(filepath.Join(replayOut, "fittest.csv"), fittest.Chromosome()); err != nil {
			return err
		}
		doc, err := fittest.URDF(cfg.Simulation.RobotName)
		if err != nil {
			slog.Warn("fittest individual has no robot description", "id", fittest.ID, "error", err)
			return nil
		}
		return os.WriteFile(filepath.Join(replayOut, "fittest.urdf"), doc, 0644)
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "", "Output file (default: stdout)")
	replayCmd.Flags().StringVarP(&replayOut, "output", "o", ".", "Directory for fittest.csv and fittest.urdf")

	rootCmd.AddCommand(renderCmd, inspectCmd, replayCmd)
}
