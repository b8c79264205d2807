package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/lifespan/internal/domain/intake"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
	"github.com/okian/lifespan/internal/domain/types"
)

// scoreFlags are named after the intake fields they fill.
var scoreFlags = []struct {
	name, usage string
}{
	{"age", "age in years (required)"},
	{"sex", "female, male or unspecified"},
	{"bmi", "body mass index"},
	{"diabetic", "true if diabetic"},
	{"systolic_bp", "systolic blood pressure, mmHg"},
	{"blood_pressure", "high, normal or low (instead of --systolic_bp)"},
	{"smoker", "true if smoking"},
	{"sleep_hours", "hours of sleep per night"},
	{"exercise_minutes", "minutes of exercise per week"},
	{"alcohol_units", "units of alcohol per week"},
	{"fruit_veg_servings", "servings of fruit and vegetables per day"},
	{"stress_level", "stress from 1 to 10"},
	{"cholesterol", "total cholesterol, mg/dL"},
	{"junk_food", "true if eating junk food regularly"},
}

func newScoreCmd() *cobra.Command {
	var (
		ruleset string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:     "score",
		Short:   "Score a profile and explain the result",
		Example: `  lifespan score --age 45 --sex male --bmi 27 --smoker true
  lifespan score --age 30 --ruleset simple --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			reg, err := newRegistry(cfg)
			if err != nil {
				return err
			}

			fields := intake.Fields{}
			for _, f := range scoreFlags {
				if cmd.Flags().Changed(f.name) {
					fields[f.name], _ = cmd.Flags().GetString(f.name)
				}
			}
			if err := intake.Validate(fields); err != nil {
				return err
			}

			engine := reg.Active()
			if ruleset != "" {
				if engine, err = reg.Engine(ruleset); err != nil {
					return err
				}
			}
			preview := types.Preview{Evaluation: engine.Evaluate(intake.Coerce(fields)), Disclaimer: scoring.Disclaimer}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(preview)
			}
			return printPreview(cmd.OutOrStdout(), preview)
		},
	}
	for _, f := range scoreFlags {
		cmd.Flags().String(f.name, "", f.usage)
	}
	cmd.Flags().StringVar(&ruleset, "ruleset", "", "rule set to score with (default: active)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printPreview(w io.Writer, p types.Preview) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "rule set\t%s\n", p.RuleSet)
	fmt.Fprintf(tw, "base\t%.1f\n", p.Base)
	for _, a := range p.Adjustments {
		fmt.Fprintf(tw, "  %s\t%+.1f\n", a.Rule, a.Delta)
	}
	fmt.Fprintf(tw, "raw total\t%.1f\n", p.RawTotal)
	fmt.Fprintf(tw, "life expectancy\t%.1f\n", p.Result.PredictedLifeExpectancy)
	fmt.Fprintf(tw, "years left\t%.1f\n", p.Result.YearsLeft)
	fmt.Fprintf(tw, "days left\t%d\n", p.Result.DaysLeft)
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", p.Disclaimer)
	return err
}
