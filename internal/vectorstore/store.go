// Package vectorstore implements the similarity search collaborators.
package vectorstore

import (
	"context"
	"strconv"
	"strings"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// Store searches and stores embedded historical test cases.
type Store interface {
	Search(ctx context.Context, vector []float64, k int) ([]domain.SimilarContent, error)
	Store(ctx context.Context, content string, vector []float64, metadata map[string]any) (string, error)
}

// vectorLiteral renders v in pgvector text form, e.g. "[0.1,0.2]".
func vectorLiteral(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
