package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <file>...",
	Short: "Store historical test cases in the vector store",
	Long: `Splits each file into "Test Case N:" chunks, classifies and embeds them,
and stores them in the configured vector store so later generate runs can
use them as reference examples.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.DryRun {
			for _, f := range args {
				log.Infof("[DRY-RUN] Would index: %s", f)
			}
			return nil
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		_, embedder, err := newModel(ctx, cfg)
		if err != nil {
			return err
		}
		retriever, err := newRetriever(cfg, embedder)
		if err != nil {
			return err
		}
		if retriever == nil {
			return errors.New("vector_store.driver must be chroma or pgvector to index")
		}

		for _, f := range args {
			content, err := os.ReadFile(f)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", f, err)
			}
			ids, err := retriever.Index(ctx, string(content), map[string]any{"source": filepath.Base(f)})
			if err != nil {
				return fmt.Errorf("failed to index %s: %w", f, err)
			}
			log.WithField("chunks", len(ids)).Infof("Indexed: %s", f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
