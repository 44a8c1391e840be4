package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fjglira/srd-testgen/internal/config"
)

var (
	cfgFile string
	verbose bool
	dryRun  bool
	log     = logrus.New()
)

// rootCmd is the base command for srdgen.
var rootCmd = &cobra.Command{
	Use:   "srdgen",
	Short: "Generate QA test cases from service requirement documents",
	Long: `srdgen reads a service requirement document (SRD), extracts its typed
sections, asks a language model for test cases per section and writes a
spreadsheet-ready report.

Everything is driven by a YAML configuration file (srdgen.yaml); secrets are
read from the environment or a .env file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetOutput(os.Stderr)
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "srdgen.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "extract and build prompts but don't call the model or write files")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file and environment and applies the global
// flags. A missing config file falls back to the defaults unless --config
// was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if _, err := os.Stat(cfgFile); err == nil || cmd.Flags().Changed("config") {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		log.Debugf("No config file at %s, using defaults", cfgFile)
	}

	if err := config.LoadEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if dryRun {
		cfg.DryRun = true
	}
	if err := setupLogger(cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(lc config.LoggingConfig) error {
	if !verbose && lc.Level != "" {
		level, err := logrus.ParseLevel(lc.Level)
		if err != nil {
			return err
		}
		log.SetLevel(level)
	}
	if lc.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if lc.File != "" {
		f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	return nil
}
