package normalizer

import (
	"strings"
	"unicode"
)

type field int

const (
	fieldUseCase field = iota
	fieldTestScenario
	fieldPriority
	fieldPreconditions
	fieldInput
	fieldExpectedResult
	fieldTestType
)

// aliases lists accepted key spellings per canonical field, most specific
// first. Keys are compared after normalizeKey.
var aliases = map[field][]string{
	fieldUseCase:        {"use case", "usecase", "use cases"},
	fieldTestScenario:   {"test scenario", "scenario", "testscenario", "test scenarios"},
	fieldPriority:       {"priority"},
	fieldPreconditions:  {"preconditions", "precondition", "pre conditions", "pre condition"},
	fieldInput:          {"input", "inputs", "input data", "test data"},
	fieldExpectedResult: {"expected result", "expected results", "expected result(s)", "expected", "expected outcome"},
	fieldTestType:       {"test type", "testtype", "type"},
}

// normalizeKey splits camelCase words, lower-cases k, treats underscores
// and dashes as spaces and collapses runs of whitespace.
func normalizeKey(k string) string {
	k = strings.ToLower(splitCamel(k))
	k = strings.NewReplacer("_", " ", "-", " ").Replace(k)
	return strings.Join(strings.Fields(k), " ")
}

// splitCamel inserts a space at every lower-to-upper case boundary, so
// "expectedResult" becomes "expected Result".
func splitCamel(k string) string {
	var b strings.Builder
	prev := rune(0)
	for _, r := range k {
		if unicode.IsUpper(r) && unicode.IsLower(prev) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
