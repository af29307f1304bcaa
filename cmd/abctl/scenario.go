package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/simulation"
)

func newScenarioCmd(global *globalOptions) *cobra.Command {
	var (
		file    string
		showRun bool
		maxRuns int
	)
	cfg := simulation.DefaultScenario()

	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Compare Bayesian and frequentist decision accuracy at known rates",
		Example: `  abctl scenario --rate-a 0.10 --rate-b 0.12 --trials 1000 --runs 200 --seed 1
  abctl scenario --file scenario.yaml --show-runs -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			run := cfg
			if file != "" {
				run = simulation.DefaultScenario()
				if err := readFile(file, &run); err != nil {
					return err
				}
				// Flags given alongside a file override it.
				for _, name := range scenarioFlags {
					if cmd.Flags().Changed(name) {
						overlayScenario(&run, cfg, name)
					}
				}
			}

			start := time.Now()
			res, err := simulation.RunScenario(cmd.Context(), run, maxRuns)
			if err != nil {
				return err
			}
			slog.Debug("Scenario complete", "runs", run.Runs, "duration_ms", time.Since(start).Milliseconds())
			if !showRun {
				res.Runs = nil
			}

			return render(cmd.OutOrStdout(), global.output, res, func(tw *tabwriter.Writer) {
				printScenario(tw, res)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON scenario file")
	cmd.Flags().Float64Var(&cfg.RateA, "rate-a", cfg.RateA, "true conversion rate of A")
	cmd.Flags().Float64Var(&cfg.RateB, "rate-b", cfg.RateB, "true conversion rate of B")
	cmd.Flags().IntVar(&cfg.TrialsPerGroup, "trials", cfg.TrialsPerGroup, "trials per group per run")
	cmd.Flags().IntVar(&cfg.Runs, "runs", cfg.Runs, "number of simulated experiments")
	cmd.Flags().IntVar(&cfg.Samples, "samples", cfg.Samples, "posterior draws per group per run")
	cmd.Flags().Float64Var(&cfg.DecisionThreshold, "decision-threshold", cfg.DecisionThreshold, "Bayesian decision threshold")
	cmd.Flags().Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "frequentist significance level")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "base seed; run i uses seed+i")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "runs evaluated in parallel")
	cmd.Flags().BoolVar(&showRun, "show-runs", false, "include per-run outcomes")
	cmd.Flags().IntVar(&maxRuns, "max-runs", 0, "reject scenarios with more runs (0 for no limit)")
	return cmd
}

var scenarioFlags = []string{"rate-a", "rate-b", "trials", "runs", "samples", "decision-threshold", "alpha", "seed", "concurrency"}

func overlayScenario(dst *simulation.ScenarioConfig, flags simulation.ScenarioConfig, name string) {
	switch name {
	case "rate-a":
		dst.RateA = flags.RateA
	case "rate-b":
		dst.RateB = flags.RateB
	case "trials":
		dst.TrialsPerGroup = flags.TrialsPerGroup
	case "runs":
		dst.Runs = flags.Runs
	case "samples":
		dst.Samples = flags.Samples
	case "decision-threshold":
		dst.DecisionThreshold = flags.DecisionThreshold
	case "alpha":
		dst.Alpha = flags.Alpha
	case "seed":
		dst.Seed = flags.Seed
	case "concurrency":
		dst.Concurrency = flags.Concurrency
	}
}

func printScenario(tw *tabwriter.Writer, res simulation.ScenarioResult) {
	c := res.Config
	fmt.Fprintf(tw, "True rates\tA %.4f, B %.4f\n", c.RateA, c.RateB)
	fmt.Fprintf(tw, "Runs\t%d x %d trials per group\n", c.Runs, c.TrialsPerGroup)
	fmt.Fprintf(tw, "Correct decision\t%s\n", res.Truth)
	fmt.Fprintf(tw, "Bayesian accuracy\t%.1f%% (%d/%d)\n", res.BayesianAccuracy*100, res.BayesianCorrect, c.Runs)
	fmt.Fprintf(tw, "Frequentist accuracy\t%.1f%% (%d/%d)\n", res.FrequentistAccuracy*100, res.FrequentistCorrect, c.Runs)
	if len(res.Runs) == 0 {
		return
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Run\tA\tB\tP(B > A)\tp-value\tBayesian\tFrequentist")
	for _, r := range res.Runs {
		fmt.Fprintf(tw, "%d\t%d/%d\t%d/%d\t%.4f\t%.4f\t%s\t%s\n", r.Run,
			r.Data.A.Successes, r.Data.A.Trials, r.Data.B.Successes, r.Data.B.Trials,
			r.ProbabilityBBeatsA, r.PValue, r.BayesianDecision, r.FrequentistDecision)
	}
}
