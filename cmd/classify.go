package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/yieldgap-cli/internal/export"
	"github.com/sells-group/yieldgap-cli/internal/stratify"
	"github.com/sells-group/yieldgap-cli/internal/survey"
)

var (
	classifySurvey string
	classifySpec   string
	classifyKeys   []string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Stratified field classification only",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := loadSpec(classifySpec)
		if err != nil {
			return err
		}

		raw, rowErrs, err := survey.ReadObservationsFile(classifySurvey, spec)
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

		keys := classifyKeys
		if len(keys) == 0 {
			keys = cfg.Classify.Keys
		}
		if len(keys) == 0 {
			keys = spec.StratumKeys
		}

		res, err := stratify.Classify(cmd.Context(), prep.Observations, stratify.Options{
			Keys:     keys,
			LowerPct: cfg.Classify.LowerPct,
			UpperPct: cfg.Classify.UpperPct,
		})
		if err != nil {
			return err
		}

		for _, serr := range res.Errors {
			zap.L().Warn("stratum without defined Y_HF", zap.Error(serr))
		}
		return export.JSON(os.Stdout, res.Strata)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifySurvey, "survey", "", "survey CSV file (required)")
	classifyCmd.Flags().StringVar(&classifySpec, "spec", "", "variable spec YAML (defaults to survey.spec_path)")
	classifyCmd.Flags().StringSliceVar(&classifyKeys, "by", nil, "stratum keys (defaults to spec stratum_keys)")
	_ = classifyCmd.MarkFlagRequired("survey")
	rootCmd.AddCommand(classifyCmd)
}
