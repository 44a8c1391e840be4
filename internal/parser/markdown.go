package parser

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// Outline indexes the headings and embedded images of a markdown SRD using
// goldmark. Section extraction does not depend on it; it supplies the
// document title and the image list for reporting.
func Outline(content []byte) (*domain.Outline, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(content))

	outline := &domain.Outline{}
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			lineNum := 0
			if node.Lines().Len() > 0 {
				lineNum = lineNumber(content, node.Lines().At(0).Start)
			} else if first, ok := node.FirstChild().(*ast.Text); ok {
				lineNum = lineNumber(content, first.Segment.Start)
			}
			outline.Headings = append(outline.Headings, domain.Heading{
				Level: node.Level,
				Text:  extractText(node, content),
				Line:  lineNum,
			})

		case *ast.Image:
			outline.Images = append(outline.Images, domain.ImageRef{
				Alt: extractText(node, content),
				URL: string(node.Destination),
			})
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, domain.NewErrorWithSuggestion("extract", "", "",
			"failed to walk markdown AST",
			"check the document for unbalanced emphasis or link syntax",
			err)
	}
	return outline, nil
}

// extractText concatenates the text segments below n.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch t := child.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
		default:
			buf.WriteString(extractText(child, source))
		}
	}
	return buf.String()
}

// lineNumber calculates the 1-based line number for a byte offset.
func lineNumber(content []byte, offset int) int {
	return bytes.Count(content[:offset], []byte("\n")) + 1
}
