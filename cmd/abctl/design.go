package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/design"
	"github.com/ZanzyTHEbar/bayesian-ab/internal/types"
)

type effectFlags struct {
	baseline float64
	mde      float64
	alpha    float64
}

func (f *effectFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.baseline, "baseline", 0, "baseline conversion rate")
	cmd.Flags().Float64Var(&f.mde, "mde", 0, "minimum detectable effect, relative to the baseline")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0.05, "two-sided significance level")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("mde")
}

func newSampleSizeCmd(global *globalOptions) *cobra.Command {
	var (
		effect effectFlags
		power  float64
	)
	cmd := &cobra.Command{
		Use:     "sample-size",
		Short:   "Per-group sample size for a target power",
		Example: `  abctl sample-size --baseline 0.1 --mde 0.1 --power 0.9`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := design.RequiredSampleSize(effect.mde, effect.baseline, effect.alpha, power)
			if err != nil {
				return err
			}
			resp := types.SampleSizeResponse{
				SampleSizePerGroup: n,
				TotalSampleSize:    2 * n,
				EffectSize:         design.EffectSize(effect.baseline, effect.mde),
			}
			return render(cmd.OutOrStdout(), global.output, resp, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Sample size per group\t%d\n", resp.SampleSizePerGroup)
				fmt.Fprintf(tw, "Total sample size\t%d\n", resp.TotalSampleSize)
				fmt.Fprintf(tw, "Effect size (Cohen's h)\t%.4f\n", resp.EffectSize)
			})
		},
	}
	effect.register(cmd)
	cmd.Flags().Float64Var(&power, "power", 0.8, "target power")
	return cmd
}

func newPowerCmd(global *globalOptions) *cobra.Command {
	var (
		effect effectFlags
		n      int
		sizes  []int
		curve  bool
	)
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Power at a sample size, or over a range of sizes",
		Example: `  abctl power --baseline 0.1 --mde 0.2 --n 2000
  abctl power --baseline 0.1 --mde 0.2 --curve --sizes 500,1000,2000,4000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if curve || len(sizes) > 0 {
				points, err := design.PowerCurve(effect.baseline, effect.mde, effect.alpha, sizes)
				if err != nil {
					return err
				}
				resp := types.PowerCurveResponse{Points: points}
				return render(cmd.OutOrStdout(), global.output, resp, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "Sample size\tPower")
					for _, p := range points {
						fmt.Fprintf(tw, "%d\t%.4f\n", p.SampleSize, p.Power)
					}
				})
			}

			if !cmd.Flags().Changed("n") {
				return fmt.Errorf("give --n, or --curve")
			}
			p, err := design.PowerAt(n, effect.baseline, effect.mde, effect.alpha)
			if err != nil {
				return err
			}
			resp := types.PowerResponse{Power: p, EffectSize: design.EffectSize(effect.baseline, effect.mde)}
			return render(cmd.OutOrStdout(), global.output, resp, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Power\t%.4f\n", resp.Power)
				fmt.Fprintf(tw, "Effect size (Cohen's h)\t%.4f\n", resp.EffectSize)
			})
		},
	}
	effect.register(cmd)
	cmd.Flags().IntVarP(&n, "n", "n", 0, "sample size per group")
	cmd.Flags().IntSliceVar(&sizes, "sizes", nil, "sample sizes for the curve (default 100 to 4900 by 100)")
	cmd.Flags().BoolVar(&curve, "curve", false, "print the power curve")
	return cmd
}
