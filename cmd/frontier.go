package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/yieldgap-cli/internal/export"
	"github.com/sells-group/yieldgap-cli/internal/frontier"
	"github.com/sells-group/yieldgap-cli/internal/survey"
)

var (
	frontierSurvey string
	frontierSpec   string
	frontierForm   string
	frontierVIF    bool
)

var frontierCmd = &cobra.Command{
	Use:   "frontier",
	Short: "Fit the stochastic production frontier only",
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := frontier.ParseForm(frontierForm)
		if err != nil {
			return err
		}

		spec, err := loadSpec(frontierSpec)
		if err != nil {
			return err
		}

		raw, rowErrs, err := survey.ReadObservationsFile(frontierSurvey, spec)
		if err != nil {
			return eris.Wrap(err, "read survey")
		}
		if len(rowErrs) > 0 {
			zap.L().Warn("survey rows skipped at decode", zap.Int("rows", len(rowErrs)))
		}

		prep := survey.Prepare(raw, spec)
		if len(prep.Observations) == 0 {
			return eris.New("no observations survived preparation")
		}

		design, err := frontier.BuildDesign(prep.Observations, spec, form)
		if err != nil {
			return eris.Wrap(err, "build design")
		}

		if frontierVIF {
			vif, err := frontier.VIF(design)
			if err != nil {
				return eris.Wrap(err, "collinearity check")
			}
			printVIF(vif)
		}

		fit, err := frontier.Fit(design, frontier.Options{
			MaxIterations: cfg.Frontier.MaxIterations,
			Tolerance:     cfg.Frontier.Tolerance,
		})
		if err != nil {
			return err
		}

		return export.JSON(os.Stdout, fit)
	},
}

func printVIF(vif map[string]float64) {
	names := make([]string, 0, len(vif))
	for n := range vif {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintln(os.Stderr, "variance inflation factors:")
	for _, n := range names {
		fmt.Fprintf(os.Stderr, "  %-32s %8.2f\n", n, vif[n])
	}
}

func init() {
	frontierCmd.Flags().StringVar(&frontierSurvey, "survey", "", "survey CSV file (required)")
	frontierCmd.Flags().StringVar(&frontierSpec, "spec", "", "variable spec YAML (defaults to survey.spec_path)")
	frontierCmd.Flags().StringVar(&frontierForm, "form", string(frontier.FormCobbDouglas), "functional form: cobb_douglas or translog")
	frontierCmd.Flags().BoolVar(&frontierVIF, "vif", false, "print variance inflation factors before fitting")
	_ = frontierCmd.MarkFlagRequired("survey")
	rootCmd.AddCommand(frontierCmd)
}
