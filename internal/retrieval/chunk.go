package retrieval

import (
	"regexp"
	"strings"
)

// Chunk types attached to indexed knowledge base entries.
const (
	ChunkServiceDescription = "service_description"
	ChunkAPI                = "API"
	ChunkWorkflow           = "workflow"
	ChunkCertificate        = "certificate"
	ChunkSummaryPage        = "summary_page"
	ChunkValidationRule     = "validation_rule"
	ChunkNextSteps          = "next_steps"
	ChunkNotifications      = "notifications"
	ChunkFormSpecification  = "form_specification"
	ChunkGeneral            = "general"

	// DocumentTypeKnowledgeBase marks entries written by Index.
	DocumentTypeKnowledgeBase = "knowledge_base"

	// minChunkChars drops marker-only fragments.
	minChunkChars = 30
)

var (
	testCaseMarker = regexp.MustCompile(`Test Case\s*\d+:`)
	lineBreak      = regexp.MustCompile(`\s*\n\s*`)
)

// chunkRules are checked in order; the first matching keyword wins.
var chunkRules = []struct {
	kind     string
	keywords []string
}{
	{ChunkServiceDescription, []string{"service name", "details"}},
	{ChunkAPI, []string{"request type", "result_code"}},
	{ChunkWorkflow, []string{"application workflow", "application processing"}},
	{ChunkCertificate, []string{"certificate"}},
	{ChunkSummaryPage, []string{"summary", "page"}},
	{ChunkValidationRule, []string{"validation", "rule", "error message", "error"}},
	{ChunkNextSteps, []string{"next steps"}},
	{ChunkNotifications, []string{"notification", "sms", "email"}},
	{ChunkFormSpecification, []string{"details", "attachments", "phone number"}},
}

// ChunkTestCases splits a test case document into one chunk per
// "Test Case N:" marker. Each chunk runs up to the next marker, chunks of
// 30 characters or fewer are dropped and line breaks become " | ".
// Text before the first marker is ignored.
func ChunkTestCases(text string) []string {
	marks := testCaseMarker.FindAllStringIndex(text, -1)
	chunks := make([]string, 0, len(marks))
	for i, m := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		chunk := strings.TrimSpace(text[m[0]:end])
		if len(chunk) <= minChunkChars {
			continue
		}
		chunks = append(chunks, lineBreak.ReplaceAllString(chunk, QuerySeparator))
	}
	return chunks
}

// ClassifyChunk labels a chunk by the first keyword group it mentions.
func ClassifyChunk(chunk string) string {
	lower := strings.ToLower(chunk)
	for _, rule := range chunkRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.kind
			}
		}
	}
	return ChunkGeneral
}
