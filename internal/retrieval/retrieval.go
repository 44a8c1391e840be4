// Package retrieval finds historical test cases similar to an SRD.
package retrieval

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fjglira/srd-testgen/internal/domain"
	"github.com/fjglira/srd-testgen/internal/llm"
	"github.com/fjglira/srd-testgen/internal/vectorstore"
)

// QuerySeparator joins the user query and the serialized SRD.
const QuerySeparator = " | "

// Retriever embeds a query and searches a vector store. Either collaborator
// may be nil, in which case retrieval yields nothing.
type Retriever struct {
	embedder llm.Embedder
	store    vectorstore.Store
	minScore float64
	logger   *logrus.Logger
}

// NewRetriever creates a Retriever. Results scoring below minScore are dropped.
func NewRetriever(embedder llm.Embedder, store vectorstore.Store, minScore float64, logger *logrus.Logger) *Retriever {
	return &Retriever{embedder: embedder, store: store, minScore: minScore, logger: logger}
}

// BuildContext joins query and the serialized extraction so that retrieval
// reflects the whole document.
func BuildContext(query string, srd domain.ExtractedSRD) (string, error) {
	raw, err := domain.EncodeJSON(srd)
	if err != nil {
		return "", err
	}
	return query + QuerySeparator + string(raw), nil
}

// Retrieve returns up to k similar records. It never fails; problems are
// logged and yield an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, srd domain.ExtractedSRD, k int) []domain.SimilarContent {
	results, _ := r.RetrieveWithDiagnostic(ctx, query, srd, k)
	return results
}

// RetrieveWithDiagnostic is Retrieve plus a RetrievalUnavailable diagnostic
// when the search could not run or found nothing.
func (r *Retriever) RetrieveWithDiagnostic(ctx context.Context, query string, srd domain.ExtractedSRD, k int) ([]domain.SimilarContent, *domain.Diagnostic) {
	if r == nil || r.embedder == nil || r.store == nil {
		return nil, unavailable("no vector store configured")
	}

	text, err := BuildContext(query, srd)
	if err != nil {
		return nil, r.warn("failed to serialize extraction", err)
	}
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, r.warn("embedding failed", err)
	}
	if len(vector) == 0 {
		return nil, unavailable("embedding was empty")
	}
	found, err := r.store.Search(ctx, vector, k)
	if err != nil {
		return nil, r.warn("vector search failed", err)
	}

	results := make([]domain.SimilarContent, 0, len(found))
	for _, f := range found {
		if f.Score < r.minScore || f.Content == "" {
			continue
		}
		results = append(results, f)
	}
	if len(results) == 0 {
		return nil, unavailable("no similar content found")
	}
	r.logger.WithField("results", len(results)).Debug("Retrieved similar content")
	return results, nil
}

// Index splits content into test case chunks, embeds each one and stores
// it with metadata plus chunk_text, document_type and chunk_type. It
// returns the stored ids in chunk order.
func (r *Retriever) Index(ctx context.Context, content string, metadata map[string]any) ([]string, error) {
	if r == nil || r.embedder == nil || r.store == nil {
		return nil, domain.NewErrorWithSuggestion("retrieve", "", domain.KindRetrievalUnavailable,
			"no vector store configured", "set vector_store.driver to chroma or pgvector", nil)
	}
	chunks := ChunkTestCases(content)
	if len(chunks) == 0 {
		return nil, domain.NewErrorWithSuggestion("retrieve", "", "",
			"no test case chunks found", `mark each case with a "Test Case N:" heading`, nil)
	}

	ids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := r.embedder.Embed(ctx, chunk)
		if err != nil {
			return ids, domain.NewError("retrieve", "", domain.KindRetrievalUnavailable,
				fmt.Sprintf("embedding chunk %d failed", i+1), err)
		}
		id, err := r.store.Store(ctx, chunk, vector, chunkMetadata(metadata, chunk))
		if err != nil {
			return ids, domain.NewError("retrieve", "", domain.KindRetrievalUnavailable,
				fmt.Sprintf("storing chunk %d failed", i+1), err)
		}
		ids = append(ids, id)
	}
	r.logger.WithField("chunks", len(ids)).Debug("Indexed knowledge base document")
	return ids, nil
}

func chunkMetadata(base map[string]any, chunk string) map[string]any {
	md := make(map[string]any, len(base)+3)
	for k, v := range base {
		md[k] = v
	}
	md["chunk_text"] = chunk
	md["document_type"] = DocumentTypeKnowledgeBase
	md["chunk_type"] = ClassifyChunk(chunk)
	return md
}

func (r *Retriever) warn(msg string, err error) *domain.Diagnostic {
	r.logger.WithError(err).Warn("Retrieval unavailable: " + msg)
	return unavailable(msg + ": " + err.Error())
}

func unavailable(msg string) *domain.Diagnostic {
	return &domain.Diagnostic{Kind: domain.KindRetrievalUnavailable, Message: msg}
}
