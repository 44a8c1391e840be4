package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fjglira/srd-testgen/internal/config"
)

var requireKeys bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the settings and credentials a generate run would use",
	Long: `Resolves srdgen.yaml over the built-in defaults, applies .env and environment
credentials, and prints the model, vector store and report settings that
generate would run with. Missing credentials are warnings unless
--require-keys is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		writeSettings(out, cfg)

		missing := missingCredentials(cfg)
		for _, m := range missing {
			log.Warn(m)
		}
		if requireKeys && len(missing) > 0 {
			return fmt.Errorf("missing credentials: %s", strings.Join(missing, "; "))
		}
		fmt.Fprintf(out, "Settings from %q are ready for srdgen generate.\n", cfgFile)
		return nil
	},
}

func writeSettings(w io.Writer, cfg *config.Config) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Setting", "Value"})
	table.SetAutoWrapText(false)
	table.AppendBulk([][]string{
		{"llm", cfg.LLM.Provider + " / " + cfg.LLM.Model},
		{"llm api key", presence(cfg.LLM.APIKey)},
		{"structured output", fmt.Sprintf("%t", cfg.LLM.StructuredOutput)},
		{"vector store", cfg.VectorStore.Driver},
		{"collection", cfg.VectorStore.Collection},
		{"concurrency", fmt.Sprintf("%d", cfg.Pipeline.Concurrency)},
		{"report", cfg.Output.Directory + " (" + cfg.Output.Format + ")"},
	})
	table.Render()
}

// missingCredentials lists the secrets the configured backends need but
// did not receive.
func missingCredentials(cfg *config.Config) []string {
	var missing []string
	if cfg.LLM.APIKey == "" {
		missing = append(missing, fmt.Sprintf("%s API key not set (export %s)", cfg.LLM.Provider, config.APIKeyEnv(cfg.LLM.Provider)))
	}
	if cfg.VectorStore.Driver == "pgvector" && cfg.VectorStore.DSN == "" {
		missing = append(missing, "pgvector DSN not set (export DATABASE_URL)")
	}
	return missing
}

func presence(secret string) string {
	if secret == "" {
		return "missing"
	}
	return "set"
}

func init() {
	validateCmd.Flags().BoolVar(&requireKeys, "require-keys", false, "fail when an API key or DSN is missing")
	rootCmd.AddCommand(validateCmd)
}
