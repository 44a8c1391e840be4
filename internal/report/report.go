// Package report renders a test case collection into an xlsx workbook or
// CSV files.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// DefaultPriority fills the priority column when the model gave none.
const DefaultPriority = "P2"

// TestCaseColumns is the header of the test case sheet. The last four
// columns are left blank for the tester.
var TestCaseColumns = []string{
	"Use Case",
	"Test Scenario",
	"Priority",
	"Preconditions",
	"Input",
	"Expected Result",
	"Test Result",
	"Comments",
	"Tester",
	"Execution Date",
}

// SummaryColumns is the header of the summary sheet.
var SummaryColumns = []string{"Service", "# P1 Total Tests", "# Total Tests", "Run ID"}

// Summary is the one-row overview of a run.
type Summary struct {
	Service string
	P1Total int
	Total   int
	RunID   string
}

// Summarize counts the collection.
func Summarize(collection domain.TestCaseCollection, service, runID string) Summary {
	return Summary{
		Service: service,
		P1Total: collection.CountPriority("P1", DefaultPriority),
		Total:   len(collection),
		RunID:   runID,
	}
}

// Report formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Sheet names of the xlsx workbook, in workbook order.
const (
	SummarySheet   = "Summary"
	TestCasesSheet = "Test Cases"
)

// Renderer writes report files into Directory.
type Renderer struct {
	Directory string
	Format    string
	DryRun    bool
}

// NewRenderer creates a Renderer writing format files into dir. An empty
// format means xlsx.
func NewRenderer(dir, format string, dryRun bool) *Renderer {
	if format == "" {
		format = FormatXLSX
	}
	return &Renderer{Directory: dir, Format: format, DryRun: dryRun}
}

// Render writes the report and returns the written paths. The xlsx format
// produces <label>-testcases.xlsx holding the Summary and Test Cases
// sheets; csv produces <label>-testcases.csv and <label>-summary.csv.
// In dry-run mode the paths are returned without writing.
func (r *Renderer) Render(collection domain.TestCaseCollection, label, runID string) ([]string, error) {
	name := FileLabel(label)
	var paths []string
	switch r.Format {
	case FormatXLSX:
		paths = []string{filepath.Join(r.Directory, name+"-testcases.xlsx")}
	case FormatCSV:
		paths = []string{
			filepath.Join(r.Directory, name+"-testcases.csv"),
			filepath.Join(r.Directory, name+"-summary.csv"),
		}
	default:
		return nil, domain.NewErrorWithSuggestion("report", "", "",
			fmt.Sprintf("unknown report format %q", r.Format),
			"set output.format to xlsx or csv", nil)
	}
	if r.DryRun {
		return paths, nil
	}

	if err := os.MkdirAll(r.Directory, 0755); err != nil {
		return nil, domain.NewErrorWithSuggestion("report", "", "",
			"failed to create output directory",
			"check that the parent directory exists and has write permissions",
			err)
	}
	summary := Summarize(collection, label, runID)
	if r.Format == FormatXLSX {
		if err := WriteWorkbook(paths[0], collection, summary); err != nil {
			return nil, err
		}
		return paths, nil
	}
	if err := writeFile(paths[0], func(w io.Writer) error { return WriteTestCases(w, collection) }); err != nil {
		return nil, err
	}
	if err := writeFile(paths[1], func(w io.Writer) error { return WriteSummary(w, summary) }); err != nil {
		return nil, err
	}
	return paths, nil
}

// WriteWorkbook saves the Summary and Test Cases sheets to path. Header
// rows are bold and frozen.
func WriteWorkbook(path string, collection domain.TestCaseCollection, s Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return workbookError(path, err)
	}
	if _, err := f.NewSheet(TestCasesSheet); err != nil {
		return workbookError(path, err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return workbookError(path, err)
	}

	summaryRows := [][]any{
		toCells(SummaryColumns),
		{s.Service, s.P1Total, s.Total, s.RunID},
	}
	if err := writeSheet(f, SummarySheet, summaryRows, header, 20); err != nil {
		return workbookError(path, err)
	}

	caseRows := make([][]any, 0, len(collection)+1)
	caseRows = append(caseRows, toCells(TestCaseColumns))
	for _, tc := range collection {
		caseRows = append(caseRows, toCells(row(tc)))
	}
	if err := writeSheet(f, TestCasesSheet, caseRows, header, 30); err != nil {
		return workbookError(path, err)
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return domain.NewErrorWithSuggestion("report", "", "",
			"failed to save "+path,
			"check disk space and write permissions for the output directory",
			err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any, headerStyle int, width float64) error {
	for i, cells := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	last, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", last, width); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func workbookError(path string, err error) error {
	return domain.NewError("report", "", "", "failed to build workbook "+path, err)
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// WriteTestCases writes the test case sheet as CSV.
func WriteTestCases(w io.Writer, collection domain.TestCaseCollection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TestCaseColumns); err != nil {
		return err
	}
	for _, tc := range collection {
		if err := cw.Write(row(tc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary writes the summary sheet as CSV.
func WriteSummary(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll([][]string{
		SummaryColumns,
		{s.Service, strconv.Itoa(s.P1Total), strconv.Itoa(s.Total), s.RunID},
	}); err != nil {
		return err
	}
	return cw.Error()
}

// WriteTable prints a console preview of the collection, with long cells
// cut to width runes.
func WriteTable(w io.Writer, collection domain.TestCaseCollection, width int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Use Case", "Test Scenario", "Priority", "Expected Result"})
	table.SetAutoWrapText(false)
	for i, tc := range collection {
		table.Append([]string{
			strconv.Itoa(i + 1),
			clip(tc.UseCase, width),
			clip(tc.TestScenario, width),
			tc.PriorityOr(DefaultPriority),
			clip(tc.ExpectedResult, width),
		})
	}
	table.SetFooter([]string{"", "", "Total", strconv.Itoa(len(collection)), ""})
	table.Render()
}

func row(tc domain.TestCaseRecord) []string {
	return []string{
		tc.UseCase,
		tc.TestScenario,
		tc.PriorityOr(DefaultPriority),
		tc.Preconditions,
		tc.InputData,
		tc.ExpectedResult,
		"", "", "", "",
	}
}

func clip(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// FileLabel converts a service name into a file name component.
// e.g. "Issue Trade License" → "issue_trade_license"
func FileLabel(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	var b strings.Builder
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			b.WriteRune(c)
		}
	}
	result := b.String()
	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}
	result = strings.Trim(result, "_")
	if result == "" {
		return "srd_report"
	}
	return result
}
