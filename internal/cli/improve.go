package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/fjglira/srd-testgen/internal/report"
)

var improveSession string

var improveCmd = &cobra.Command{
	Use:   "improve <instruction>",
	Short: "Revise the last generated test cases with a follow-up instruction",
	Long: `Sends the last response stored in the session file back to the model together
with the instruction, normalizes the answer, records the turn and rewrites
the report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.DryRun {
			return errors.New("improve needs the model and cannot run with --dry-run")
		}

		s, err := loadSession(improveSession, cfg.Pipeline.HistoryLimit)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		pipeline, err := newPipeline(ctx, cfg, "")
		if err != nil {
			return err
		}
		collection, diag, err := pipeline.Improve(ctx, s.History, args[0])
		if err != nil {
			return err
		}
		if err := s.save(improveSession); err != nil {
			return err
		}
		if diag != nil {
			log.Warn(diag.String())
			return nil
		}

		paths, err := report.NewRenderer(cfg.Output.Directory, cfg.Output.Format, false).Render(collection, s.Label, s.RunID)
		if err != nil {
			return err
		}
		for _, p := range paths {
			log.Infof("Writing: %s", p)
		}
		if cfg.Output.Preview {
			report.WriteTable(os.Stdout, collection, 40)
		}
		return nil
	},
}

func init() {
	improveCmd.Flags().StringVar(&improveSession, "session", "srdgen-session.yaml", "session file written by generate --session")
	rootCmd.AddCommand(improveCmd)
}
