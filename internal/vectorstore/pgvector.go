package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// PGVectorStore searches a Postgres "documents" table through the
// semantic_search(query_embedding, match_threshold, match_count) function
// used by Supabase vector deployments.
type PGVectorStore struct {
	db        *gorm.DB
	threshold float64
	logger    *logrus.Logger
}

type searchRow struct {
	ID         string
	Content    string
	Metadata   string
	Similarity float64
}

// OpenPGVector connects to dsn.
func OpenPGVector(dsn string, threshold float64, logger *logrus.Logger) (*PGVectorStore, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, domain.NewErrorWithSuggestion("retrieve", "", domain.KindRetrievalUnavailable,
			"failed to open vector database", "check vector_store.dsn or DATABASE_URL", err)
	}
	return NewPGVectorStore(db, threshold, logger), nil
}

// NewPGVectorStore wraps an existing connection.
func NewPGVectorStore(db *gorm.DB, threshold float64, logger *logrus.Logger) *PGVectorStore {
	return &PGVectorStore{db: db, threshold: threshold, logger: logger}
}

func (s *PGVectorStore) searchQuery(ctx context.Context, vector []float64, k int) *gorm.DB {
	return s.db.WithContext(ctx).Raw(
		"SELECT id, content, metadata::text AS metadata, similarity FROM semantic_search(?::vector, ?, ?)",
		vectorLiteral(vector), s.threshold, k,
	)
}

// Search returns up to k documents above the similarity threshold.
func (s *PGVectorStore) Search(ctx context.Context, vector []float64, k int) ([]domain.SimilarContent, error) {
	if k <= 0 {
		k = 5
	}
	var rows []searchRow
	if err := s.searchQuery(ctx, vector, k).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("semantic_search: %w", err)
	}

	out := make([]domain.SimilarContent, 0, len(rows))
	for _, r := range rows {
		item := domain.SimilarContent{Content: r.Content, Score: r.Similarity}
		if r.Metadata != "" {
			if err := json.Unmarshal([]byte(r.Metadata), &item.Metadata); err != nil {
				s.logger.WithError(err).WithField("id", r.ID).Debug("Ignoring undecodable metadata")
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// Store inserts one document with a generated id.
func (s *PGVectorStore) Store(ctx context.Context, content string, vector []float64, metadata map[string]any) (string, error) {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	err = s.db.WithContext(ctx).Exec(
		"INSERT INTO documents (id, content, embedding, metadata) VALUES (?, ?, ?::vector, ?::jsonb)",
		id, content, vectorLiteral(vector), string(meta),
	).Error
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}
