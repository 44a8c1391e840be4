package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fjglira/srd-testgen/internal/config"
	"github.com/fjglira/srd-testgen/internal/domain"
	"github.com/fjglira/srd-testgen/internal/generator"
	"github.com/fjglira/srd-testgen/internal/report"
	"github.com/fjglira/srd-testgen/internal/source"
)

var (
	generateDir     string
	generateSession string
)

var generateCmd = &cobra.Command{
	Use:   "generate [document]",
	Short: "Generate test cases from an SRD",
	Long: `Extracts the sections of an SRD, generates test cases per section and writes
a report. Without a document argument every SRD under --dir (or
input.directory) is processed, one report per document.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if len(args) == 1 {
			return runGenerate(ctx, cfg, []string{args[0]})
		}

		dir := cfg.Input.Directory
		if generateDir != "" {
			dir = generateDir
		}
		log.Infof("Scanning directory: %s", dir)
		files, err := source.Discover(dir, cfg.Input.Include, cfg.Input.Exclude, cfg.IsRecursive())
		if err != nil {
			return err
		}
		if len(files) == 0 {
			log.Warn("No SRD files found")
			return nil
		}
		log.Infof("Found %d SRD file(s)", len(files))
		return runGenerate(ctx, cfg, files)
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateDir, "dir", "", "directory to scan for SRDs (default input.directory)")
	generateCmd.Flags().StringVar(&generateSession, "session", "", "save the generated test cases as an improve session (single document only)")
	rootCmd.AddCommand(generateCmd)
}

// runGenerate processes each document independently. A failing document is
// logged and skipped; the command fails only when every document failed.
func runGenerate(ctx context.Context, cfg *config.Config, documents []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pipeline, err := newPipeline(ctx, cfg, "")
	if err != nil {
		return err
	}
	renderer := report.NewRenderer(cfg.Output.Directory, cfg.Output.Format, cfg.DryRun)

	failed := 0
	for _, doc := range documents {
		log.Infof("Processing: %s", doc)
		result, err := pipeline.Run(ctx, doc)
		printDiagnostics(result)
		if err != nil {
			failed++
			log.WithError(err).Errorf("Failed to generate test cases for %s", doc)
			continue
		}
		if cfg.DryRun {
			log.Infof("[DRY-RUN] Built %d prompt(s) for %s", len(result.Prompts), doc)
			continue
		}

		label := result.Title
		if label == "" {
			label = strings.TrimSuffix(filepath.Base(doc), filepath.Ext(doc))
		}
		paths, err := renderer.Render(result.Collection, label, result.RunID)
		if err != nil {
			return err
		}
		for _, p := range paths {
			log.Infof("Writing: %s", p)
		}
		if cfg.Output.Preview {
			report.WriteTable(os.Stdout, result.Collection, 40)
		}

		if generateSession != "" && len(documents) == 1 {
			if err := startSession(cfg, doc, result); err != nil {
				return err
			}
		}
	}

	if failed == len(documents) {
		return fmt.Errorf("no test cases generated for %d document(s): %w", failed, domain.ErrNoUsableSections)
	}
	log.Info("Generation complete")
	return nil
}

// startSession seeds an improve session with the assembled collection.
func startSession(cfg *config.Config, doc string, result *generator.Result) error {
	raw, err := json.MarshalIndent(result.Collection, "", "  ")
	if err != nil {
		return err
	}
	history := domain.NewHistory(cfg.Pipeline.HistoryLimit)
	history.Add("generate "+doc, string(raw))
	s := &session{Label: result.Title, RunID: result.RunID, History: history}
	return s.save(generateSession)
}

func printDiagnostics(result *generator.Result) {
	if result == nil {
		return
	}
	for _, d := range result.Diagnostics {
		if d.Kind == domain.KindRetrievalUnavailable {
			log.Debug(d.String())
			continue
		}
		log.Warn(d.String())
	}
}
