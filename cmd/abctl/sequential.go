package main

import (
	"fmt"
	"math/rand/v2"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/simulation"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/types"
)

// sequentialFile is the on-disk form of a sequence of batches.
type sequentialFile struct {
	types.InferenceOptions `yaml:",inline"`
	Observations           []types.ObservationRequest `yaml:"observations"`
}

type sequentialReport struct {
	History          []analysis.HistoryRow              `json:"history" yaml:"history"`
	Final            map[string]analysis.GroupPosterior `json:"final" yaml:"final"`
	Curve            []analysis.ProbabilityPoint        `json:"curve" yaml:"curve"`
	Threshold        float64                            `json:"threshold" yaml:"threshold"`
	StepsToThreshold *int                               `json:"steps_to_threshold,omitempty" yaml:"steps_to_threshold,omitempty"`
	Seed             *uint64                            `json:"seed,omitempty" yaml:"seed,omitempty"`
}

func newSequentialCmd(global *globalOptions) *cobra.Command {
	var (
		file      string
		batches   int
		maxTrials int
		threshold float64
		inference inferenceFlags
	)
	a := &countsValue{in: &types.GroupInput{}}
	b := &countsValue{in: &types.GroupInput{}}

	cmd := &cobra.Command{
		Use:   "sequential",
		Short: "Accumulate batches and track P(B > A) after each step",
		Long: `Replays observations batch by batch. With --a and --b the totals are split
into --batches batches drawn without replacement; with --file the batches
are read from an "observations" list of {group, successes, trials}.`,
		Example: `  abctl sequential --a 100/1000 --b 130/1000 --batches 10 --seed 7
  abctl sequential --file batches.yaml --threshold 0.99`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in sequentialFile
			if file != "" {
				if err := readFile(file, &in); err != nil {
					return err
				}
			} else if !a.set || !b.set {
				return fmt.Errorf("give --a and --b, or --file")
			}
			inference.apply(cmd, &in.InferenceOptions)

			test, err := analysis.NewSequentialTest(*in.Prior, options(in.InferenceOptions)...)
			if err != nil {
				return err
			}
			if file != "" {
				for _, obs := range in.Observations {
					if _, err := test.AddObservation(obs.Group, obs.Successes, obs.Trials); err != nil {
						return err
					}
				}
			} else {
				seed := rand.Uint64()
				if in.Seed != nil {
					seed = *in.Seed
				}
				in.Seed = &seed
				data := simulation.Dataset{
					A: simulation.GroupCounts{Successes: a.in.Successes, Trials: a.in.Trials},
					B: simulation.GroupCounts{Successes: b.in.Successes, Trials: b.in.Trials},
				}
				if _, err := simulation.RunSequential(cmd.Context(), test, data, batches, seed, maxTrials); err != nil {
					return err
				}
			}

			report := sequentialReport{
				History:   test.HistoryTable(),
				Final:     map[string]analysis.GroupPosterior{},
				Threshold: threshold,
				Seed:      in.Seed,
			}
			for _, g := range test.Groups() {
				report.Final[g] = test.Current(g)
			}
			if report.Curve, err = test.ProbabilityCurve(in.Samples); err != nil {
				return err
			}
			if step, ok := analysis.StepsToThreshold(report.Curve, threshold); ok {
				report.StepsToThreshold = &step
			}

			return render(cmd.OutOrStdout(), global.output, report, func(tw *tabwriter.Writer) {
				printSequential(tw, report)
			})
		},
	}
	cmd.Flags().Var(a, "a", "group A totals as successes/trials")
	cmd.Flags().Var(b, "b", "group B totals as successes/trials")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file of observations")
	cmd.Flags().IntVar(&batches, "batches", simulation.DefaultBatches, "number of batches to split totals into")
	cmd.Flags().IntVar(&maxTrials, "max-trials", simulation.DefaultMaxTrials, "per-group cap on simulated trials; 0 removes it")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.95, "decision threshold for P(B > A)")
	inference.register(cmd)
	return cmd
}

func printSequential(tw *tabwriter.Writer, r sequentialReport) {
	fmt.Fprintln(tw, "Group\tStep\tBatch\tCumulative\tPosterior mean")
	for _, row := range r.History {
		fmt.Fprintf(tw, "%s\t%d\t%d/%d\t%d/%d\t%.4f\n", row.Group, row.Step,
			row.BatchSuccesses, row.BatchTrials, row.CumulativeSuccesses, row.CumulativeTrials, row.PosteriorMean)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Step\tP(B > A)")
	for _, p := range r.Curve {
		fmt.Fprintf(tw, "%d\t%.4f\n", p.Step, p.ProbabilityBBeatsA)
	}

	fmt.Fprintln(tw)
	if r.StepsToThreshold != nil {
		fmt.Fprintf(tw, "Threshold %.2f reached at step\t%d\n", r.Threshold, *r.StepsToThreshold)
	} else {
		fmt.Fprintf(tw, "Threshold %.2f\tnot reached\n", r.Threshold)
	}
}
