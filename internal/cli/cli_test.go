package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/fjglira/srd-testgen/internal/domain"
)

var testdata = filepath.Join("..", "..", "testdata")

// resetFlags restores flag defaults between executions of the shared root command.
func resetFlags() {
	for _, c := range append(rootCmd.Commands(), rootCmd) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
	}
}

func run(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

var _ = Describe("CLI", func() {
	BeforeEach(func() {
		resetFlags()
		log.SetOutput(io.Discard)
	})

	It("should print the resolved settings", func() {
		GinkgoT().Setenv("GEMINI_API_KEY", "from-env")
		out, err := run("validate", "-c", filepath.Join(testdata, "configs", "full.yaml"))
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(ContainSubstring("gemini / gemini-2.5-flash"))
		Expect(out).To(ContainSubstring("chroma"))
		Expect(out).To(ContainSubstring("out/reports (csv)"))
		Expect(out).To(ContainSubstring("ready for srdgen generate"))
		Expect(out).ToNot(ContainSubstring("from-env"))
	})

	It("should fail on a missing API key only when keys are required", func() {
		GinkgoT().Setenv("GEMINI_API_KEY", "")
		cfg := filepath.Join(testdata, "configs", "full.yaml")
		_, err := run("validate", "-c", cfg)
		Expect(err).ToNot(HaveOccurred())

		_, err = run("validate", "-c", cfg, "--require-keys")
		Expect(err).To(MatchError(ContainSubstring("export GEMINI_API_KEY")))
	})

	It("should reject an invalid config file", func() {
		_, err := run("validate", "-c", filepath.Join(testdata, "configs", "invalid.yaml"))
		Expect(err).To(MatchError(ContainSubstring("llm.provider")))
	})

	It("should print the extracted sections as JSON", func() {
		out, err := run("extract", filepath.Join(testdata, "srd", "full.md"))
		Expect(err).ToNot(HaveOccurred())

		var sections map[string]json.RawMessage
		Expect(json.Unmarshal([]byte(out), &sections)).To(Succeed())
		for _, kind := range domain.ExtractionOrder {
			Expect(sections).To(HaveKey(string(kind)))
		}
	})

	It("should build prompts without writing reports in dry-run mode", func() {
		outDir := filepath.Join(GinkgoT().TempDir(), "reports")
		cfg := filepath.Join(GinkgoT().TempDir(), "srdgen.yaml")
		Expect(os.WriteFile(cfg, []byte("llm:\n  provider: openai\n  model: gpt-4o-mini\noutput:\n  directory: "+outDir+"\n"), 0644)).To(Succeed())

		_, err := run("generate", "--dry-run", "-c", cfg, filepath.Join(testdata, "srd", "full.md"))
		Expect(err).ToNot(HaveOccurred())
		_, statErr := os.Stat(outDir)
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	It("should fail when no document yields test cases", func() {
		_, err := run("generate", "--dry-run", filepath.Join(testdata, "srd", "empty.md"))
		Expect(err).To(MatchError(domain.ErrNoUsableSections))
	})

	It("should round-trip an improve session", func() {
		path := filepath.Join(GinkgoT().TempDir(), "session.yaml")
		history := domain.NewHistory(3)
		history.Add("generate full.md", `[{"Use Case":"A","Test Scenario":"B"}]`)
		Expect((&session{Label: "Issue Trade License", RunID: "run-1", History: history}).save(path)).To(Succeed())

		s, err := loadSession(path, 10)
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Label).To(Equal("Issue Trade License"))
		Expect(s.History.Limit).To(Equal(3))
		last, ok := s.History.LastResponse()
		Expect(ok).To(BeTrue())
		Expect(last).To(ContainSubstring(`"Use Case":"A"`))
	})

	It("should refuse improve in dry-run mode", func() {
		_, err := run("improve", "--dry-run", "add more")
		Expect(err).To(MatchError(ContainSubstring("--dry-run")))
	})
})
