package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fjglira/srd-testgen/internal/parser"
)

var extractCmd = &cobra.Command{
	Use:   "extract <document>",
	Short: "Print the typed sections extracted from an SRD",
	Long:  `Runs only the section extractor and prints the result as JSON. Diagnostics go to stderr.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		srd, diagnostics := parser.ExtractWithDiagnostics(string(content))
		for _, d := range diagnostics {
			log.Debug(d.String())
		}
		if outline, err := parser.Outline(content); err == nil {
			log.Infof("Title: %q, %d heading(s), %d image(s)", outline.Title(), len(outline.Headings), len(outline.Images))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(srd)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
