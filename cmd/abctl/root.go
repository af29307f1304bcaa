package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/types"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
	outputText = "text"
)

type globalOptions struct {
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "abctl",
		Short: "Bayesian and frequentist analysis of two-proportion A/B tests",
		Long: `abctl computes conjugate Beta posteriors, Monte Carlo risk metrics,
Bayes factors, chi-squared and z-tests, sequential probability curves and
sample-size plans for conversion experiments.

Examples:
  abctl analyze --a 100/1000 --b 120/1000 --seed 42
  abctl sequential --a 100/1000 --b 130/1000 --batches 10 -o yaml
  abctl sample-size --baseline 0.1 --mde 0.1
  abctl power --baseline 0.1 --mde 0.2 --n 2000
  abctl scenario --runs 200 --seed 1`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case outputJSON, outputYAML, outputText:
			default:
				return fmt.Errorf("unknown output format %q (want json, yaml or text)", opts.output)
			}
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "output format: json, yaml or text")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log timings to stderr")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newSequentialCmd(opts),
		newSampleSizeCmd(opts),
		newPowerCmd(opts),
		newScenarioCmd(opts),
	)
	return root
}

// render writes v in the selected format; text falls back to the caller's
// table writer.
func render(w io.Writer, format string, v any, text func(tw *tabwriter.Writer)) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

// countsValue parses "successes/trials" into a GroupInput.
type countsValue struct {
	in  *types.GroupInput
	set bool
}

func (v *countsValue) String() string {
	if v.in == nil || !v.set {
		return ""
	}
	return fmt.Sprintf("%d/%d", v.in.Successes, v.in.Trials)
}

func (v *countsValue) Set(s string) error {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return fmt.Errorf("want successes/trials, got %q", s)
	}
	successes, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return fmt.Errorf("successes: %w", err)
	}
	trials, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return fmt.Errorf("trials: %w", err)
	}
	*v.in = types.GroupInput{Successes: successes, Trials: trials}
	v.set = true
	return nil
}

func (v *countsValue) Type() string { return "counts" }

// readFile decodes a YAML or JSON document into v.
func readFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
