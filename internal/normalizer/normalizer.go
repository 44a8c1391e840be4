package normalizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// Parse extracts test case records from raw model output. It never returns
// an error: when nothing usable is found it returns no records and a
// ParseFailure diagnostic.
func Parse(raw string) ([]domain.TestCaseRecord, *domain.Diagnostic) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, failure("no JSON array found in response")
	}

	var doc any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &doc); err != nil {
		return nil, failure(fmt.Sprintf("invalid JSON array: %v", err))
	}
	if err := validateShape(doc); err != nil {
		return nil, failure(fmt.Sprintf("response is not an array of objects: %v", err))
	}

	items, _ := doc.([]any)
	records := make([]domain.TestCaseRecord, 0, len(items))
	for _, item := range items {
		obj, _ := item.(map[string]any)
		rec := mapRecord(obj)
		if !rec.Valid() {
			continue
		}
		records = append(records, rec)
	}

	if len(items) > 0 && len(records) == 0 {
		return nil, failure(fmt.Sprintf("none of %d object(s) carried a use case or test scenario", len(items)))
	}
	return records, nil
}

// Reparse serializes records and runs them through Parse again.
func Reparse(records []domain.TestCaseRecord) ([]domain.TestCaseRecord, *domain.Diagnostic) {
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, failure(err.Error())
	}
	return Parse(string(raw))
}

func failure(msg string) *domain.Diagnostic {
	return &domain.Diagnostic{Kind: domain.KindParseFailure, Message: msg}
}

// mapRecord picks, for every canonical field, the first alias present with
// a non-empty value. Unrecognized keys are ignored.
func mapRecord(obj map[string]any) domain.TestCaseRecord {
	normalized := make(map[string]string, len(obj))
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		nk := normalizeKey(k)
		if _, seen := normalized[nk]; seen {
			continue
		}
		normalized[nk] = stringify(obj[k])
	}

	get := func(f field) string {
		for _, alias := range aliases[f] {
			if v := normalized[alias]; v != "" {
				return v
			}
		}
		return ""
	}

	return domain.TestCaseRecord{
		UseCase:        get(fieldUseCase),
		TestScenario:   get(fieldTestScenario),
		Priority:       optional(get(fieldPriority)),
		Preconditions:  get(fieldPreconditions),
		InputData:      get(fieldInput),
		ExpectedResult: get(fieldExpectedResult),
		TestType:       optional(get(fieldTestType)),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// stringify renders a decoded JSON value as report text. Lists become one
// item per line; nested objects are kept as compact JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := stringify(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
