package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fjglira/srd-testgen/internal/domain"
)

var (
	serviceDetailsStart = regexp.MustCompile(`(?i)#+\s*(?:Database:\s*)?Service details`)
	formElementsStart   = regexp.MustCompile(`(?i)#+\s*\**Form Elements\**`)
	workflowStart       = regexp.MustCompile(`(?i)##+\s*Workflow`)
	statusLabelsStart   = regexp.MustCompile(`(?i)###\s*Labels of status`)
	nextStepsStart      = regexp.MustCompile(`(?i)###\s*Next steps`)
	slaStart            = regexp.MustCompile(`(?i)##\s*SLAs\s*\n+`)
	smsStart            = regexp.MustCompile(`(?i)\*\*SMS\*\*`)
	emailStart          = regexp.MustCompile(`(?i)\*\*Email\*\*`)
	servicePricingStart = regexp.MustCompile(`(?i)##\s*\**Service Pricing\**`)

	nextLevel2     = regexp.MustCompile(`\n##`)
	anyLevel2      = regexp.MustCompile(`##`)
	anyLevel3      = regexp.MustCompile(`###`)
	notifyHeading  = regexp.MustCompile(`(?i)##\s*Notifications`)
	paymentCodeEnd = regexp.MustCompile(`(?i)##\s*\**Service Payment Code`)
	channelEnd     = regexp.MustCompile(`(?i)\n###|\*\*(?:SMS|Email)\*\*`)

	numberedLine = regexp.MustCompile(`^\s*([1-9]\d*)\.`)

	currencyField   = regexp.MustCompile(`(?i)##\s*\**Currency\**\s*\n+([^\n]+)`)
	expirationField = regexp.MustCompile(`(?i)##\s*\**Payment Expiration Time\**\s*\n+([^\n]+)`)
	merchantField   = regexp.MustCompile(`(?i)##\s*Payment merchant\s*\n+([^\n]+)`)
	accountField    = regexp.MustCompile(`(?i)Payment account identifier\s*\n+([^\n]+)`)
	uatCodeField    = regexp.MustCompile(`(?i)(?:\*\*UAT:\*\*|UAT:)[ \t]*([^\n]+)`)
	paymentCodeLine = regexp.MustCompile(`(?i)Service Payment Code\s*\n+([^\n]+)`)
)

func notFound(section domain.SectionKind, marker string) error {
	return domain.NewError("extract", section, domain.KindSectionNotFound,
		fmt.Sprintf("marker %q not found", marker), nil)
}

func malformed(section domain.SectionKind, rows int, want int) error {
	return domain.NewError("extract", section, domain.KindMalformedTable,
		fmt.Sprintf("%d row(s) with fewer than %d columns", rows, want), nil)
}

// ExtractServiceDetails parses the service details table. The first row
// supplies the headers; blank rows are skipped.
func ExtractServiceDetails(doc string) (*domain.ServiceDetails, error) {
	body, ok := sectionBody(doc, serviceDetailsStart, nextLevel2)
	if !ok {
		return nil, notFound(domain.SectionServiceDetails, "Service details")
	}

	rows := pipeRows(body)
	if len(rows) < 3 {
		return nil, notFound(domain.SectionServiceDetails, "Service details table")
	}
	headers := splitCells(rows[0])
	details := &domain.ServiceDetails{Headers: headers}
	for _, row := range dataRows(rows) {
		cells := splitCells(row)
		if len(cells) == 0 || blankRow(cells) {
			continue
		}
		n := min(len(headers), len(cells))
		entry := make(map[string]string, n)
		for i := 0; i < n; i++ {
			entry[headers[i]] = cells[i]
		}
		details.Rows = append(details.Rows, entry)
	}
	return details, nil
}

// ExtractFormFields maps each "Form Elements" row positionally onto the
// form field attributes. Short rows leave trailing attributes empty and are
// reported as MalformedTable alongside the result.
func ExtractFormFields(doc string) (*domain.FormFields, error) {
	body, ok := sectionBody(doc, formElementsStart, anyLevel2)
	if !ok {
		return nil, notFound(domain.SectionFormFields, "Form Elements")
	}
	rows := pipeRows(strings.TrimSpace(body))
	if len(rows) < 3 {
		return nil, notFound(domain.SectionFormFields, "Form Elements table")
	}

	fields := &domain.FormFields{}
	short := 0
	for _, row := range dataRows(rows) {
		c := splitCells(row)
		if len(c) == 0 {
			continue
		}
		if len(c) < domain.FormFieldColumns {
			short++
		}
		fields.Fields = append(fields.Fields, domain.FormField{
			Section:           cell(c, 0),
			Block:             cell(c, 1),
			FieldName:         cell(c, 2),
			Type:              cell(c, 3),
			Hint:              cell(c, 4),
			Tooltip:           cell(c, 5),
			Placeholder:       cell(c, 6),
			WidgetRequirement: cell(c, 7),
			ValidationRule:    cell(c, 8),
			DisplayRule:       cell(c, 9),
			ErrorMessage:      cell(c, 10),
		})
	}
	if short > 0 {
		return fields, malformed(domain.SectionFormFields, short, domain.FormFieldColumns)
	}
	return fields, nil
}

// ExtractWorkflowSteps collects the numbered lines under the Workflow
// heading, verbatim, until the next heading.
func ExtractWorkflowSteps(doc string) (*domain.WorkflowSteps, error) {
	body, ok := sectionBody(doc, workflowStart, nextLevel2)
	if !ok {
		return nil, notFound(domain.SectionWorkflow, "Workflow")
	}
	steps := &domain.WorkflowSteps{}
	for _, line := range strings.Split(body, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ordinal, _ := strconv.Atoi(m[1])
		steps.Steps = append(steps.Steps, domain.WorkflowStep{
			Ordinal: ordinal,
			Text:    strings.TrimRight(line, "\r"),
		})
	}
	if len(steps.Steps) == 0 {
		return nil, notFound(domain.SectionWorkflow, "numbered workflow steps")
	}
	return steps, nil
}

// ExtractStatusLabels reads the "Labels of status" table into a mapping
// keyed by the literal status text.
func ExtractStatusLabels(doc string) (*domain.StatusLabels, error) {
	body, ok := sectionBody(doc, statusLabelsStart, anyLevel3)
	if !ok {
		return nil, notFound(domain.SectionStatusLabels, "Labels of status")
	}
	labels := &domain.StatusLabels{}
	short := 0
	for _, row := range dataRows(pipeRows(body)) {
		c := splitCells(row)
		if len(c) < 2 {
			short++
			continue
		}
		labels.Set(c[0], c[1])
	}
	if short > 0 {
		return labels, malformed(domain.SectionStatusLabels, short, 2)
	}
	return labels, nil
}

// ExtractPricing searches the whole document for each payment fact
// independently. A missing fact leaves its field empty.
func ExtractPricing(doc string) (*domain.Pricing, error) {
	p := &domain.Pricing{
		Currency:          firstGroup(currencyField, doc),
		PaymentExpiration: firstGroup(expirationField, doc),
		Merchant:          firstGroup(merchantField, doc),
		AccountID:         firstGroup(accountField, doc),
	}

	if m := uatCodeField.FindString(doc); m != "" {
		p.PaymentCode = strings.TrimSpace(m)
	} else if m := paymentCodeLine.FindString(doc); m != "" {
		p.PaymentCode = strings.TrimSpace(m)
	}

	if body, ok := sectionBody(doc, servicePricingStart, paymentCodeEnd); ok {
		p.ServicePricing = strings.TrimSpace(body)
	}

	if p.Empty() {
		return nil, notFound(domain.SectionPricing, "pricing fields")
	}
	return p, nil
}

func firstGroup(re *regexp.Regexp, doc string) string {
	m := re.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ExtractNextSteps reads the "Next steps" table. Rows need step, title
// and description.
func ExtractNextSteps(doc string) (*domain.NextSteps, error) {
	body, ok := sectionBody(doc, nextStepsStart, anyLevel2)
	if !ok {
		return nil, notFound(domain.SectionNextSteps, "Next steps")
	}
	steps := &domain.NextSteps{}
	short := 0
	for _, row := range dataRows(pipeRows(body)) {
		c := splitCells(row)
		if len(c) < 3 {
			short++
			continue
		}
		steps.Steps = append(steps.Steps, domain.NextStep{Step: c[0], Title: c[1], Description: c[2]})
	}
	if short > 0 {
		return steps, malformed(domain.SectionNextSteps, short, 3)
	}
	return steps, nil
}

// ExtractSMSNotifications reads the table under the bold SMS marker.
// Only the status and English message columns are kept.
func ExtractSMSNotifications(doc string) ([]domain.NotificationEntry, error) {
	body, ok := sectionBody(doc, smsStart, channelEnd)
	if !ok {
		return nil, notFound(domain.SectionNotifications, "**SMS**")
	}
	var out []domain.NotificationEntry
	for _, c := range markdownTable(body) {
		if len(c) < 2 {
			continue
		}
		out = upsertNotification(out, domain.NotificationEntry{
			Channel: domain.ChannelSMS,
			Status:  c[0],
			Body:    c[1],
		})
	}
	return out, nil
}

// ExtractEmailNotifications reads the table under the bold Email marker.
// Only the status, subject and English body columns are kept.
func ExtractEmailNotifications(doc string) ([]domain.NotificationEntry, error) {
	body, ok := sectionBody(doc, emailStart, channelEnd)
	if !ok {
		return nil, notFound(domain.SectionNotifications, "**Email**")
	}
	var out []domain.NotificationEntry
	for _, c := range markdownTable(body) {
		if len(c) < 3 {
			continue
		}
		out = upsertNotification(out, domain.NotificationEntry{
			Channel: domain.ChannelEmail,
			Status:  c[0],
			Subject: c[1],
			Body:    c[2],
		})
	}
	return out, nil
}

// upsertNotification keeps one entry per status; a later row replaces an
// earlier one in place.
func upsertNotification(list []domain.NotificationEntry, e domain.NotificationEntry) []domain.NotificationEntry {
	for i := range list {
		if list[i].Status == e.Status {
			list[i] = e
			return list
		}
	}
	return append(list, e)
}

// ExtractNotifications combines the SMS and Email tables. The section is
// absent only when both tables are missing or empty.
func ExtractNotifications(doc string) (*domain.Notifications, error) {
	sms, smsErr := ExtractSMSNotifications(doc)
	emails, emailErr := ExtractEmailNotifications(doc)
	n := &domain.Notifications{SMS: sms, Emails: emails}
	if n.Empty() {
		if smsErr != nil && emailErr != nil {
			return nil, notFound(domain.SectionNotifications, "**SMS** or **Email**")
		}
		return nil, notFound(domain.SectionNotifications, "notification rows")
	}
	return n, nil
}

// ExtractSLA captures the raw text under the SLAs heading up to the
// Notifications heading.
func ExtractSLA(doc string) (*domain.SLA, error) {
	body, ok := sectionBody(doc, slaStart, notifyHeading)
	if !ok {
		return nil, notFound(domain.SectionSLA, "SLAs")
	}
	text := strings.TrimSpace(body)
	if text == "" {
		return nil, notFound(domain.SectionSLA, "SLA text")
	}
	return &domain.SLA{Text: text}, nil
}
