package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/yieldgap-cli/internal/ceiling"
	"github.com/sells-group/yieldgap-cli/internal/export"
)

var resolveCeilings string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the Yw source for each field only",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := ceiling.LoadInput(resolveCeilings)
		if err != nil {
			return eris.Wrap(err, "read ceilings")
		}

		resolver := ceiling.NewResolver(in.National)
		if cfg.Ceiling.ThresholdKM > 0 {
			resolver.ThresholdKM = cfg.Ceiling.ThresholdKM
		}

		resolved, dropped := resolver.Resolve(in.Fields)
		for _, derr := range dropped {
			zap.L().Warn("field dropped from resolution", zap.Error(derr))
		}
		return export.JSON(os.Stdout, resolved)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveCeilings, "ceilings", "", "yield-ceiling candidates JSON file (required)")
	_ = resolveCmd.MarkFlagRequired("ceilings")
	rootCmd.AddCommand(resolveCmd)
}
