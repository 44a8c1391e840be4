package parser_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fjglira/srd-testgen/internal/domain"
	"github.com/fjglira/srd-testgen/internal/parser"
)

func loadSRD(name string) string {
	content, err := os.ReadFile(filepath.Join("..", "..", "testdata", "srd", name))
	Expect(err).ToNot(HaveOccurred())
	return string(content)
}

func expectKind(err error, kind domain.ErrorKind) {
	var srdErr *domain.SRDError
	Expect(errors.As(err, &srdErr)).To(BeTrue())
	Expect(srdErr.Kind).To(Equal(kind))
}

var _ = Describe("Section rules", func() {
	var doc string

	BeforeEach(func() {
		doc = loadSRD("full.md")
	})

	Describe("ExtractServiceDetails", func() {
		It("should key rows by the header row and skip blank rows", func() {
			details, err := parser.ExtractServiceDetails(doc)
			Expect(err).ToNot(HaveOccurred())
			Expect(details.Headers).To(Equal([]string{"Service name", "Description", "Institution", "SLA"}))
			Expect(details.Rows).To(HaveLen(1))
			Expect(details.Rows[0]).To(HaveKeyWithValue("Institution", "Ministry of Commerce"))
		})

		It("should accept a plain Service details heading", func() {
			details, err := parser.ExtractServiceDetails("### Service details\n| a | b |\n|---|---|\n| 1 | 2 |\n")
			Expect(err).ToNot(HaveOccurred())
			Expect(details.Rows).To(ConsistOf(map[string]string{"a": "1", "b": "2"}))
		})

		It("should report SectionNotFound when the marker is missing", func() {
			details, err := parser.ExtractServiceDetails("# Nothing here")
			Expect(details).To(BeNil())
			expectKind(err, domain.KindSectionNotFound)
		})
	})

	Describe("ExtractFormFields", func() {
		It("should map full rows onto every attribute", func() {
			fields, _ := parser.ExtractFormFields(doc)
			Expect(fields.Fields).To(HaveLen(3))
			f := fields.Fields[0]
			Expect(f.Section).To(Equal("Applicant"))
			Expect(f.FieldName).To(Equal("Full name"))
			Expect(f.ValidationRule).To(Equal("Max 100 characters"))
			Expect(f.ErrorMessage).To(Equal("Name is required"))
		})

		It("should keep the leading columns of short rows and leave the rest empty", func() {
			fields, err := parser.ExtractFormFields(doc)
			expectKind(err, domain.KindMalformedTable)
			short := fields.Fields[2]
			Expect(short.Section).To(Equal("Business"))
			Expect(short.Block).To(Equal("Details"))
			Expect(short.FieldName).To(Equal("Trade name"))
			Expect(short.Type).To(BeEmpty())
			Expect(short.ErrorMessage).To(BeEmpty())
		})

		It("should never panic on rows of any width", func() {
			for width := 0; width <= 12; width++ {
				row := "|"
				for i := 0; i < width; i++ {
					row += " c |"
				}
				table := "## Form Elements\n| h |\n|---|\n" + row + "\n"
				Expect(func() { _, _ = parser.ExtractFormFields(table) }).ToNot(Panic())
			}
		})
	})

	Describe("ExtractWorkflowSteps", func() {
		It("should keep numbered lines verbatim", func() {
			steps, err := parser.ExtractWorkflowSteps(doc)
			Expect(err).ToNot(HaveOccurred())
			Expect(steps.Steps).To(HaveLen(3))
			Expect(steps.Steps[0]).To(Equal(domain.WorkflowStep{Ordinal: 1, Text: "1. Applicant submits the application"}))
			Expect(steps.Steps[2].Ordinal).To(Equal(3))
		})

		It("should stop at the next heading", func() {
			steps, _ := parser.ExtractWorkflowSteps(doc)
			for _, s := range steps.Steps {
				Expect(s.Text).ToNot(ContainSubstring("Pay the fees"))
			}
		})
	})

	Describe("ExtractStatusLabels", func() {
		It("should produce one entry per distinct status", func() {
			labels, err := parser.ExtractStatusLabels(doc)
			Expect(err).ToNot(HaveOccurred())
			Expect(labels.Map()).To(Equal(map[string]string{
				"submitted":    "Application Submitted",
				"under_review": "Under Review",
				"approved":     "Approved",
			}))
		})

		It("should let a repeated status replace the earlier label", func() {
			labels, _ := parser.ExtractStatusLabels("### Labels of status\n| S | L |\n|---|---|\n| a | One |\n| a | Two |\n")
			Expect(labels.Entries).To(Equal([]domain.StatusLabel{{Status: "a", Label: "Two"}}))
		})
	})

	Describe("ExtractPricing", func() {
		It("should find every payment fact independently", func() {
			p, err := parser.ExtractPricing(doc)
			Expect(err).ToNot(HaveOccurred())
			Expect(p.Currency).To(Equal("BHD"))
			Expect(p.PaymentExpiration).To(Equal("48 hours"))
			Expect(p.Merchant).To(Equal("Ministry of Commerce"))
			Expect(p.AccountID).To(Equal("MOC-001"))
			Expect(p.PaymentCode).To(Equal("**UAT:** SPC-UAT-1234"))
			Expect(p.ServicePricing).To(ContainSubstring("License fee"))
			Expect(p.ServicePricing).ToNot(ContainSubstring("SPC-UAT"))
		})

		It("should fall back to the Service Payment Code heading", func() {
			p, err := parser.ExtractPricing("## Service Payment Code\n\nSPC-77\n")
			Expect(err).ToNot(HaveOccurred())
			Expect(p.PaymentCode).To(ContainSubstring("SPC-77"))
			Expect(p.Currency).To(BeEmpty())
		})

		It("should be absent when no fact is present", func() {
			p, err := parser.ExtractPricing("# Nothing")
			Expect(p).To(BeNil())
			expectKind(err, domain.KindSectionNotFound)
		})
	})

	Describe("ExtractNextSteps", func() {
		It("should map three-column rows", func() {
			steps, err := parser.ExtractNextSteps(doc)
			Expect(err).ToNot(HaveOccurred())
			Expect(steps.Steps).To(Equal([]domain.NextStep{
				{Step: "1", Title: "Pay the fees", Description: "Complete the payment within 48 hours"},
				{Step: "2", Title: "Download license", Description: "The license is available in your account"},
			}))
		})

		It("should drop rows with fewer than three columns", func() {
			steps, err := parser.ExtractNextSteps("### Next steps\n| S | T | D |\n|---|---|---|\n| 1 | only |\n| 2 | t | d |\n")
			expectKind(err, domain.KindMalformedTable)
			Expect(steps.Steps).To(HaveLen(1))
			Expect(steps.Steps[0].Step).To(Equal("2"))
		})
	})

	Describe("Notifications", func() {
		It("should read the English SMS column only", func() {
			sms, err := parser.ExtractSMSNotifications(doc)
			Expect(err).ToNot(HaveOccurred())
			Expect(sms).To(HaveLen(2))
			Expect(sms[0].Channel).To(Equal(domain.ChannelSMS))
			Expect(sms[0].Status).To(Equal("submitted"))
			Expect(sms[0].Body).To(ContainSubstring("$applicant_name"))
		})

		It("should read status, subject and English body for emails", func() {
			emails, err := parser.ExtractEmailNotifications(doc)
			Expect(err).ToNot(HaveOccurred())
			Expect(emails).To(HaveLen(3))
			Expect(emails[1].Subject).To(Equal("Request under review"))
			Expect(emails[0].Body).To(ContainSubstring("$request_no"))
		})

		It("should combine both channels", func() {
			n, err := parser.ExtractNotifications(doc)
			Expect(err).ToNot(HaveOccurred())
			Expect(n.All()).To(HaveLen(5))
		})

		It("should be present when only one channel exists", func() {
			n, err := parser.ExtractNotifications("**SMS**\n| Status | SMS |\n|---|---|\n| done | Bye |\n")
			Expect(err).ToNot(HaveOccurred())
			Expect(n.SMS).To(HaveLen(1))
			Expect(n.Emails).To(BeEmpty())
		})
	})

	Describe("ExtractSLA", func() {
		It("should capture the text up to the Notifications heading", func() {
			sla, err := parser.ExtractSLA(doc)
			Expect(err).ToNot(HaveOccurred())
			Expect(sla.Text).To(Equal("Processing within 3 working days after payment."))
		})
	})
})
