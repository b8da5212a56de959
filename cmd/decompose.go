package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/yieldgap-cli/internal/ceiling"
	"github.com/sells-group/yieldgap-cli/internal/config"
	"github.com/sells-group/yieldgap-cli/internal/export"
	"github.com/sells-group/yieldgap-cli/internal/frontier"
	"github.com/sells-group/yieldgap-cli/internal/pipeline"
	"github.com/sells-group/yieldgap-cli/internal/stratify"
	"github.com/sells-group/yieldgap-cli/internal/store"
	"github.com/sells-group/yieldgap-cli/internal/survey"
)

var (
	decomposeSurvey   string
	decomposeCeilings string
	decomposeSpec     string
	decomposeOutDir   string
	decomposeGroupBy  []string
	decomposeTranslog bool
	decomposePersist  bool
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose",
	Short: "Run the full yield gap decomposition",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		spec, err := loadSpec(decomposeSpec)
		if err != nil {
			return err
		}

		raw, rowErrs, err := survey.ReadObservationsFile(decomposeSurvey, spec)
		if err != nil {
			return eris.Wrap(err, "read survey")
		}
		if len(rowErrs) > 0 {
			zap.L().Warn("survey rows skipped at decode", zap.Int("rows", len(rowErrs)))
		}

		ceilings, err := ceiling.LoadInput(decomposeCeilings)
		if err != nil {
			return eris.Wrap(err, "read ceilings")
		}

		p, err := pipeline.New(pipelineOptions(cfg, spec))
		if err != nil {
			return err
		}

		var st store.Store
		if decomposePersist {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		result, err := p.Run(ctx, raw, ceilings)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		if st != nil {
			if err := persistResult(ctx, st, result); err != nil {
				return err
			}
		}

		if err := writeArtifacts(decomposeOutDir, result); err != nil {
			return err
		}

		zap.L().Info("decomposition complete",
			zap.String("run_id", result.RunID),
			zap.Int("records", len(result.Records)),
			zap.Int("groups", len(result.Aggregates)),
		)
		return export.JSON(os.Stdout, result.Stages)
	},
}

// pipelineOptions maps app config plus command flags onto stage options.
func pipelineOptions(c *config.Config, spec *survey.Spec) pipeline.Options {
	opts := pipeline.Options{
		Spec: spec,
		Frontier: frontier.Options{
			MaxIterations: c.Frontier.MaxIterations,
			Tolerance:     c.Frontier.Tolerance,
		},
		FitTranslog: decomposeTranslog || c.Frontier.FitTranslog,
		Stratify: stratify.Options{
			Keys:     c.Classify.Keys,
			LowerPct: c.Classify.LowerPct,
			UpperPct: c.Classify.UpperPct,
		},
		ThresholdKM: c.Ceiling.ThresholdKM,
		GroupBy:     c.Aggregate.GroupBy,
	}
	if len(decomposeGroupBy) > 0 {
		opts.GroupBy = decomposeGroupBy
	}
	return opts
}

func loadSpec(flagPath string) (*survey.Spec, error) {
	path := flagPath
	if path == "" {
		path = cfg.Survey.SpecPath
	}
	if path == "" {
		return nil, eris.New("a variable spec is required (--spec or survey.spec_path)")
	}
	spec, err := survey.LoadSpec(path)
	if err != nil {
		return nil, err
	}
	if cfg.Survey.Epsilon > 0 {
		spec.Epsilon = cfg.Survey.Epsilon
	}
	return spec, nil
}

func persistResult(ctx context.Context, st store.Store, result *pipeline.Result) error {
	if _, err := st.CreateRun(ctx, result.RunID); err != nil {
		return eris.Wrap(err, "create run")
	}
	if err := st.SaveRecords(ctx, result.RunID, result.Records); err != nil {
		return eris.Wrap(err, "save records")
	}
	if err := st.SaveAggregates(ctx, result.RunID, result.Aggregates); err != nil {
		return eris.Wrap(err, "save aggregates")
	}
	summary, err := json.Marshal(map[string]any{
		"stages":     result.Stages,
		"records":    len(result.Records),
		"aggregates": len(result.Aggregates),
		"config": map[string]any{
			"translog":     decomposeTranslog || cfg.Frontier.FitTranslog,
			"threshold_km": cfg.Ceiling.ThresholdKM,
			"group_by":     decomposeGroupBy,
		},
	})
	if err != nil {
		return eris.Wrap(err, "marshal run summary")
	}
	return eris.Wrap(st.CompleteRun(ctx, result.RunID, store.RunStatusComplete, summary), "complete run")
}

func writeArtifacts(dir string, result *pipeline.Result) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "create output dir %s", dir)
	}
	if err := writeFile(filepath.Join(dir, "gap_records.csv"), func(f *os.File) error {
		return export.RecordsCSV(f, result.Records)
	}); err != nil {
		return err
	}
	if len(result.Aggregates) > 0 {
		if err := writeFile(filepath.Join(dir, "aggregates.csv"), func(f *os.File) error {
			return export.AggregatesCSV(f, result.Aggregates)
		}); err != nil {
			return err
		}
	}
	return writeFile(filepath.Join(dir, "result.json"), func(f *os.File) error {
		return export.JSON(f, result)
	})
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return err
	}
	return eris.Wrapf(f.Sync(), "sync %s", path)
}

func init() {
	decomposeCmd.Flags().StringVar(&decomposeSurvey, "survey", "", "survey CSV file (required)")
	decomposeCmd.Flags().StringVar(&decomposeCeilings, "ceilings", "", "yield-ceiling candidates JSON file (required)")
	decomposeCmd.Flags().StringVar(&decomposeSpec, "spec", "", "variable spec YAML (defaults to survey.spec_path)")
	decomposeCmd.Flags().StringVar(&decomposeOutDir, "out", "", "directory for CSV/JSON artifacts")
	decomposeCmd.Flags().StringSliceVar(&decomposeGroupBy, "group-by", nil, "grouping keys for the aggregate table")
	decomposeCmd.Flags().BoolVar(&decomposeTranslog, "translog", false, "also fit the translog form")
	decomposeCmd.Flags().BoolVar(&decomposePersist, "persist", false, "persist the run to the configured store")
	_ = decomposeCmd.MarkFlagRequired("survey")
	_ = decomposeCmd.MarkFlagRequired("ceilings")
	rootCmd.AddCommand(decomposeCmd)
}
