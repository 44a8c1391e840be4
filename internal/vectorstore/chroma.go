package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// ChromaConfig locates a Chroma collection.
type ChromaConfig struct {
	URL        string
	Collection string
	APIKey     string
	Timeout    time.Duration
}

// ChromaStore queries a Chroma collection over its REST API.
type ChromaStore struct {
	httpClient *http.Client
	baseURL    string
	collection string
	apiKey     string
	logger     *logrus.Logger

	mu           sync.RWMutex
	collectionID string
}

var (
	errNotFound = errors.New("resource not found")
	errConflict = errors.New("resource conflict")
)

// NewChromaStore creates a client. No request is made until first use.
func NewChromaStore(cfg ChromaConfig, logger *logrus.Logger) *ChromaStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ChromaStore{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/api/v1",
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// Search returns the k nearest documents. Scores are 1/(1+distance).
func (c *ChromaStore) Search(ctx context.Context, vector []float64, k int) ([]domain.SimilarContent, error) {
	id, err := c.ensureCollection(ctx, false)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 5
	}
	body := map[string]any{
		"query_embeddings": [][]float32{toFloat32(vector)},
		"n_results":        k,
	}
	var resp struct {
		IDs       [][]string         `json:"ids"`
		Distances [][]float64        `json:"distances"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Documents [][]string         `json:"documents"`
	}
	endpoint := fmt.Sprintf("%s/collections/%s/query", c.baseURL, url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	results := make([]domain.SimilarContent, 0, len(resp.IDs[0]))
	for idx := range resp.IDs[0] {
		item := domain.SimilarContent{Metadata: map[string]any{}}
		if len(resp.Metadatas) > 0 && idx < len(resp.Metadatas[0]) {
			for k, v := range resp.Metadatas[0][idx] {
				item.Metadata[k] = v
			}
		}
		if len(resp.Documents) > 0 && idx < len(resp.Documents[0]) {
			item.Content = resp.Documents[0][idx]
		}
		if len(resp.Distances) > 0 && idx < len(resp.Distances[0]) {
			item.Score = 1.0 / (1.0 + resp.Distances[0][idx])
		}
		results = append(results, item)
	}
	return results, nil
}

// Store adds one document, creating the collection when needed.
func (c *ChromaStore) Store(ctx context.Context, content string, vector []float64, metadata map[string]any) (string, error) {
	id, err := c.ensureCollection(ctx, true)
	if err != nil {
		return "", err
	}
	docID := uuid.NewString()
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload := map[string]any{
		"ids":        []string{docID},
		"documents":  []string{content},
		"metadatas":  []map[string]any{metadata},
		"embeddings": [][]float32{toFloat32(vector)},
	}
	endpoint := fmt.Sprintf("%s/collections/%s/add", c.baseURL, url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, payload, nil); err != nil {
		return "", err
	}
	return docID, nil
}

func (c *ChromaStore) ensureCollection(ctx context.Context, create bool) (string, error) {
	c.mu.RLock()
	id := c.collectionID
	c.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	if err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/heartbeat", nil, nil); err != nil {
		return "", fmt.Errorf("chroma heartbeat: %w", err)
	}

	id, err := c.findCollection(ctx)
	if err != nil {
		return "", err
	}
	if id == "" && create {
		id, err = c.createCollection(ctx)
		if err != nil {
			return "", err
		}
	}
	if id == "" {
		return "", fmt.Errorf("chroma collection %q: %w", c.collection, errNotFound)
	}

	c.logger.WithFields(logrus.Fields{"collection": c.collection, "id": id}).Debug("Resolved chroma collection")
	c.mu.Lock()
	c.collectionID = id
	c.mu.Unlock()
	return id, nil
}

func (c *ChromaStore) findCollection(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/collections?name=%s", c.baseURL, url.QueryEscape(c.collection))
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		if errors.Is(err, errNotFound) {
			return "", nil
		}
		return "", err
	}

	type collection struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	var list []collection
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapped struct {
			Collections []collection `json:"collections"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return "", fmt.Errorf("decode chroma collections: %w", err)
		}
		list = wrapped.Collections
	}
	for _, col := range list {
		if strings.EqualFold(col.Name, c.collection) {
			return col.ID, nil
		}
	}
	return "", nil
}

func (c *ChromaStore) createCollection(ctx context.Context) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/collections", map[string]any{"name": c.collection}, &resp)
	if errors.Is(err, errConflict) {
		return c.findCollection(ctx)
	}
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *ChromaStore) doRequest(ctx context.Context, method, endpoint string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusConflict:
		return errConflict
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma %s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
