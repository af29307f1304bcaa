package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/analysis"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/api"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/types"
)

// inferenceFlags are the Monte Carlo flags shared by analyze and sequential.
type inferenceFlags struct {
	samples    int
	seed       uint64
	priorAlpha float64
	priorBeta  float64
}

func (f *inferenceFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.samples, "samples", 100_000, "posterior draws per group")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "seed for reproducible draws")
	cmd.Flags().Float64Var(&f.priorAlpha, "prior-alpha", 1, "Beta prior alpha")
	cmd.Flags().Float64Var(&f.priorBeta, "prior-beta", 1, "Beta prior beta")
}

// apply overlays explicitly set flags onto in.
func (f *inferenceFlags) apply(cmd *cobra.Command, in *types.InferenceOptions) {
	if cmd.Flags().Changed("samples") || in.Samples == 0 {
		in.Samples = f.samples
	}
	if cmd.Flags().Changed("seed") {
		seed := f.seed
		in.Seed = &seed
	}
	if cmd.Flags().Changed("prior-alpha") || cmd.Flags().Changed("prior-beta") || in.Prior == nil {
		in.Prior = &analysis.Prior{Alpha: f.priorAlpha, Beta: f.priorBeta}
	}
}

func options(in types.InferenceOptions) []analysis.Option {
	opts := []analysis.Option{analysis.WithSamples(in.Samples)}
	if in.Seed != nil {
		opts = append(opts, analysis.WithSeed(*in.Seed))
	}
	if in.EquivalenceThreshold != nil {
		opts = append(opts, analysis.WithEquivalenceThreshold(*in.EquivalenceThreshold))
	}
	return opts
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	var (
		req       types.AnalyzeRequest
		file      string
		inference inferenceFlags
		threshold float64
		level     float64
		yates     bool
		minUplift float64
	)
	a := &countsValue{in: &types.GroupInput{}}
	b := &countsValue{in: &types.GroupInput{}}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Posteriors, risk, Bayes factor and frequentist tests for two arms",
		Example: `  abctl analyze --a 100/1000 --b 120/1000
  abctl analyze --file experiment.yaml -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				if err := readFile(file, &req); err != nil {
					return err
				}
			}
			if a.set {
				req.A = *a.in
			}
			if b.set {
				req.B = *b.in
			}
			if !a.set && !b.set && file == "" {
				return fmt.Errorf("give --a and --b, or --file")
			}
			inference.apply(cmd, &req.InferenceOptions)
			if cmd.Flags().Changed("threshold") {
				req.EquivalenceThreshold = &threshold
			}
			if cmd.Flags().Changed("level") || req.CredibleLevel == 0 {
				req.CredibleLevel = level
			}
			if cmd.Flags().Changed("yates") {
				req.Yates = yates
			}
			if cmd.Flags().Changed("min-uplift") {
				req.MinUplift = &minUplift
			}

			start := time.Now()
			resp, err := api.RunAnalysis(req, options(req.InferenceOptions)...)
			if err != nil {
				return err
			}
			resp.Seed = req.Seed
			slog.Debug("Analysis complete", "samples", req.Samples, "duration_ms", time.Since(start).Milliseconds())

			return render(cmd.OutOrStdout(), global.output, resp, func(tw *tabwriter.Writer) {
				printAnalysis(tw, resp)
			})
		},
	}
	cmd.Flags().Var(a, "a", "group A counts as successes/trials")
	cmd.Flags().Var(b, "b", "group B counts as successes/trials")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON request file")
	inference.register(cmd)
	cmd.Flags().Float64Var(&threshold, "threshold", 0.01, "Bayes factor equivalence threshold")
	cmd.Flags().Float64Var(&level, "level", 0.95, "credible interval level")
	cmd.Flags().BoolVar(&yates, "yates", false, "apply Yates continuity correction to chi-squared")
	cmd.Flags().Float64Var(&minUplift, "min-uplift", analysis.DefaultMinUplift, "relative uplift in percent that counts as meaningful")
	return cmd
}

func printAnalysis(tw *tabwriter.Writer, resp types.AnalyzeResponse) {
	fmt.Fprintln(tw, "Group\tSuccesses\tTrials\tRate\tPosterior\tMean\tCredible interval")
	for i, p := range resp.Posteriors {
		ci := ""
		if i < len(resp.CredibleIntervals) {
			c := resp.CredibleIntervals[i]
			ci = fmt.Sprintf("%.0f%% [%.4f, %.4f]", c.Level*100, c.Lower, c.Upper)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\tBeta(%g, %g)\t%.4f\t%s\n",
			p.Group, p.Successes, p.Trials, p.ConversionRate, p.Alpha, p.Beta, p.PosteriorMean, ci)
	}

	fmt.Fprintln(tw)
	risk := types.FormatRisk(resp.Risk)
	for _, label := range types.RiskLabels {
		fmt.Fprintf(tw, "%s\t%s\n", label, risk[label])
	}
	if m := resp.MeaningfulEffect; m != nil {
		fmt.Fprintf(tw, "P(uplift > %g%%)\t%.3f\n", m.MinUplift, m.Probability)
	}
	fmt.Fprintf(tw, "Bayes factor\t%.3f (%s)\n", resp.BayesFactor.BayesFactor, resp.BayesFactor.Interpretation)
	if c := resp.ChiSquared; c != nil {
		fmt.Fprintf(tw, "Chi-squared\t%.4f (p = %.4f)\n", c.Chi2, c.PValue)
	}
	if z := resp.Proportion; z != nil {
		fmt.Fprintf(tw, "z-test\t%.4f (p = %.4f)\n", z.ZStatistic, z.PValue)
	}
	if a := resp.Agreement; a != nil {
		fmt.Fprintf(tw, "Agreement\t%s\n", a.Interpretation)
	}
	for _, w := range resp.Warnings {
		fmt.Fprintf(tw, "Warning\t%s\n", w)
	}
}
