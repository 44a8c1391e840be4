package assembler

import "github.com/fjglira/srd-testgen/internal/domain"

// Assemble concatenates per-section records in report order. Sections
// that are missing or empty contribute nothing; records are never
// deduplicated across sections.
func Assemble(perSection map[domain.SectionKind][]domain.TestCaseRecord) domain.TestCaseCollection {
	return AssembleOrdered(perSection, domain.ReportOrder)
}

// AssembleOrdered is Assemble with an explicit section order. Kinds not
// named in order are ignored.
func AssembleOrdered(perSection map[domain.SectionKind][]domain.TestCaseRecord, order []domain.SectionKind) domain.TestCaseCollection {
	total := 0
	for _, kind := range order {
		total += len(perSection[kind])
	}
	out := make(domain.TestCaseCollection, 0, total)
	for _, kind := range order {
		out = append(out, perSection[kind]...)
	}
	return out
}
