package prompt_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fjglira/srd-testgen/internal/domain"
	"github.com/fjglira/srd-testgen/internal/parser"
	"github.com/fjglira/srd-testgen/internal/prompt"
)

func loadSRD(name string) domain.ExtractedSRD {
	content, err := os.ReadFile(filepath.Join("..", "..", "testdata", "srd", name))
	Expect(err).ToNot(HaveOccurred())
	return parser.Extract(string(content))
}

var pairLine = regexp.MustCompile(`(?m)^- \((email|sms), ([^)]+)\)$`)

var _ = Describe("Builder", func() {
	var (
		builder *prompt.Builder
		srd     domain.ExtractedSRD
	)

	BeforeEach(func() {
		engine, err := prompt.NewEngine("")
		Expect(err).ToNot(HaveOccurred())
		builder = prompt.NewBuilder(engine, nil)
		srd = loadSRD("full.md")
	})

	Describe("BuildAll", func() {
		It("should build one unit per present kind in report order", func() {
			units, err := builder.BuildAll(srd, "")
			Expect(err).ToNot(HaveOccurred())
			kinds := make([]domain.SectionKind, 0, len(units))
			for _, u := range units {
				kinds = append(kinds, u.Kind)
			}
			Expect(kinds).To(Equal(domain.ReportOrder))
		})

		It("should skip absent kinds", func() {
			units, err := builder.BuildAll(loadSRD("minimal.md"), "")
			Expect(err).ToNot(HaveOccurred())
			Expect(units).To(HaveLen(1))
			Expect(units[0].Kind).To(Equal(domain.SectionWorkflow))
		})

		It("should require the fenced JSON array contract in every unit", func() {
			units, err := builder.BuildAll(srd, "")
			Expect(err).ToNot(HaveOccurred())
			for _, u := range units {
				Expect(u.Instruction).To(ContainSubstring("```json"))
				Expect(u.Instruction).To(ContainSubstring(`"Use Case"`))
				Expect(u.Instruction).To(ContainSubstring(`"Expected Results"`))
			}
		})
	})

	Describe("Build", func() {
		It("should return nil for a kind without its own prompt", func() {
			unit, err := builder.Build(domain.SectionSLA, srd, "")
			Expect(err).ToNot(HaveOccurred())
			Expect(unit).To(BeNil())
		})

		It("should embed form fields verbatim with the positive and negative rule", func() {
			unit, err := builder.Build(domain.SectionFormFields, srd, "")
			Expect(err).ToNot(HaveOccurred())
			Expect(unit.Instruction).To(ContainSubstring("Max 100 characters"))
			Expect(unit.Instruction).To(ContainSubstring("Name is required"))
			Expect(unit.Instruction).To(ContainSubstring("at least one positive test"))
			Expect(unit.Instruction).To(ContainSubstring("at least one negative test"))
			Expect(unit.ReasoningEffort).To(Equal("high"))
		})

		It("should keep comparison and ampersand characters in rule text", func() {
			doc := "## Form Elements\n\n" +
				"| Section | Block | Field name | Type | Hint | Tooltip | Placeholder | Widget | Validation Rule | Display Rule | Error Message |\n" +
				"|---|---|---|---|---|---|---|---|---|---|---|\n" +
				"| Applicant | Personal | Age | Number | | | | Required | Age >= 18 & <= 65 | Always | Must be <18> |\n"
			unit, err := builder.Build(domain.SectionFormFields, parser.Extract(doc), "")
			Expect(err).ToNot(HaveOccurred())
			Expect(unit.Instruction).To(ContainSubstring(`"Validation Rule": "Age >= 18 & <= 65"`))
			Expect(unit.Instruction).To(ContainSubstring(`"Error Message": "Must be <18>"`))
			Expect(unit.Instruction).ToNot(ContainSubstring(`\u003e`))
			Expect(unit.Instruction).ToNot(ContainSubstring(`\u0026`))
		})

		It("should embed the SLA into the service details prompt", func() {
			unit, err := builder.Build(domain.SectionServiceDetails, srd, "")
			Expect(err).ToNot(HaveOccurred())
			Expect(unit.Instruction).To(ContainSubstring("Processing within 3 working days after payment."))
			Expect(unit.ReasoningEffort).To(Equal("low"))
		})

		It("should require one workflow record per status label", func() {
			unit, err := builder.Build(domain.SectionWorkflow, srd, "")
			Expect(err).ToNot(HaveOccurred())
			Expect(unit.Instruction).To(ContainSubstring("1. Applicant submits the application"))
			Expect(unit.Instruction).To(ContainSubstring(`- under_review: "Under Review"`))
			Expect(unit.MinRecords).To(Equal(3))
		})

		It("should state the fixed price rule for pricing", func() {
			unit, err := builder.Build(domain.SectionPricing, srd, "")
			Expect(err).ToNot(HaveOccurred())
			Expect(unit.Instruction).To(ContainSubstring("exactly one test case confirming the displayed price"))
			Expect(unit.Instruction).To(ContainSubstring("48 hours"))
		})

		It("should enumerate exactly five notification pairs", func() {
			unit, err := builder.Build(domain.SectionNotifications, srd, "")
			Expect(err).ToNot(HaveOccurred())

			matches := pairLine.FindAllStringSubmatch(unit.Instruction, -1)
			distinct := map[string]bool{}
			for _, m := range matches {
				distinct[m[1]+"/"+m[2]] = true
			}
			Expect(matches).To(HaveLen(5))
			Expect(distinct).To(HaveLen(5))
			Expect(unit.MinRecords).To(Equal(5))
			Expect(unit.Instruction).To(ContainSubstring("5 in total"))
		})

		It("should embed the context snippet", func() {
			unit, err := builder.Build(domain.SectionNextSteps, srd, "Example 1:\nContent: previous case...")
			Expect(err).ToNot(HaveOccurred())
			Expect(unit.Instruction).To(ContainSubstring("previous case"))
			Expect(unit.Context).To(Equal("Example 1:\nContent: previous case..."))
		})

		It("should honour reasoning effort overrides", func() {
			engine, err := prompt.NewEngine("")
			Expect(err).ToNot(HaveOccurred())
			b := prompt.NewBuilder(engine, map[domain.SectionKind]string{domain.SectionNextSteps: "medium"})
			unit, err := b.Build(domain.SectionNextSteps, srd, "")
			Expect(err).ToNot(HaveOccurred())
			Expect(unit.ReasoningEffort).To(Equal("medium"))
		})
	})

	Describe("BuildImprove", func() {
		It("should embed the previous answer verbatim", func() {
			history := domain.NewHistory(0)
			history.Add("first", `[{"Use Case":"A"}]`)
			text, err := builder.BuildImprove(history, "Add negative cases.")
			Expect(err).ToNot(HaveOccurred())
			Expect(text).To(HavePrefix("Add negative cases. Update the test cases"))
			Expect(text).To(ContainSubstring(`[{"Use Case":"A"}]`))
		})

		It("should fail on an empty history", func() {
			_, err := builder.BuildImprove(domain.NewHistory(0), "more")
			Expect(err).To(MatchError(domain.ErrNoPreviousResponse))
		})
	})
})

var _ = Describe("NotificationPairs", func() {
	It("should deduplicate by channel and status", func() {
		n := &domain.Notifications{
			Emails: []domain.NotificationEntry{{Channel: domain.ChannelEmail, Status: "a"}},
			SMS: []domain.NotificationEntry{
				{Channel: domain.ChannelSMS, Status: "a"},
				{Channel: domain.ChannelSMS, Status: "a"},
			},
		}
		Expect(prompt.NotificationPairs(n)).To(Equal([]prompt.Pair{
			{Channel: domain.ChannelEmail, Status: "a"},
			{Channel: domain.ChannelSMS, Status: "a"},
		}))
	})
})

var _ = Describe("ContextSnippet", func() {
	It("should keep at most three truncated examples", func() {
		long := strings.Repeat("x", 600)
		similar := []domain.SimilarContent{{Content: long}, {Content: "b"}, {Content: "c"}, {Content: "d"}}
		snippet := prompt.ContextSnippet(similar, 3, 500)
		Expect(snippet).To(HavePrefix("Here are some examples of test cases from similar services:"))
		Expect(snippet).To(ContainSubstring("Example 3:"))
		Expect(snippet).ToNot(ContainSubstring("Example 4:"))
		Expect(snippet).To(ContainSubstring(strings.Repeat("x", 500) + "..."))
		Expect(snippet).ToNot(ContainSubstring(strings.Repeat("x", 501)))
	})

	It("should be empty without results", func() {
		Expect(prompt.ContextSnippet(nil, 3, 500)).To(BeEmpty())
	})
})
