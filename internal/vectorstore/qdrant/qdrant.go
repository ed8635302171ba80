// Package qdrant is a minimal REST adapter to a Qdrant collection.
// It assumes cosine distance and creates the collection if missing.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"docintel/internal/domain"
)

// pointNamespace makes point IDs a deterministic function of chunk IDs,
// so re-ingesting the same corpus overwrites rather than duplicates.
var pointNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

type Store struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "docintel"
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 OK if the collection exists with the same schema
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		points[i] = map[string]any{
			"id":     uuid.NewSHA1(pointNamespace, []byte(chunks[i].ID)).String(),
			"vector": vectors[i],
			"payload": map[string]any{
				"chunk_id":    chunks[i].ID,
				"source":      chunks[i].Source,
				"page_index":  chunks[i].PageIndex,
				"chunk_index": chunks[i].Index,
				"text":        chunks[i].Text,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		if _, isMeta := r.Payload["fingerprint"]; isMeta {
			continue
		}
		chunk := domain.Chunk{}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			chunk.ID = v
		}
		if v, ok := r.Payload["source"].(string); ok {
			chunk.Source = v
		}
		if v, ok := r.Payload["page_index"].(float64); ok {
			chunk.PageIndex = int(v)
		}
		if v, ok := r.Payload["chunk_index"].(float64); ok {
			chunk.Index = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Score: r.Score})
	}
	return results, nil
}

func (s *Store) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant delete collection: %v", domain.ErrExternalService, err)
	}
	resp.Body.Close()
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/count", s.url, s.collection),
		map[string]any{"exact": true}, &resp)
	if err != nil {
		// A missing collection is an empty index, not a failure.
		return 0, nil
	}
	n := resp.Result.Count
	// The fingerprint point is bookkeeping, not corpus content.
	if fp, _ := s.Fingerprint(ctx); fp != "" && n > 0 {
		n--
	}
	return n, nil
}

// Fingerprint is kept in a dedicated point with a reserved ID so the
// corpus identity travels with the collection.
var fingerprintPointID = uuid.NewSHA1(pointNamespace, []byte("fingerprint")).String()

func (s *Store) Fingerprint(ctx context.Context) (string, error) {
	var resp struct {
		Result []struct {
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	body := map[string]any{"ids": []string{fingerprintPointID}, "with_payload": true}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points", s.url, s.collection), body, &resp); err != nil {
		return "", nil
	}
	if len(resp.Result) == 0 {
		return "", nil
	}
	if v, ok := resp.Result[0].Payload["fingerprint"].(string); ok {
		return v, nil
	}
	return "", nil
}

func (s *Store) SetFingerprint(ctx context.Context, fp string) error {
	if s.dimension <= 0 {
		return errors.New("store not initialized")
	}
	point := map[string]any{
		"id":      fingerprintPointID,
		"vector":  make([]float32, s.dimension),
		"payload": map[string]any{"fingerprint": fp},
	}
	body := map[string]any{"points": []any{point}}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant PUT: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: qdrant PUT %s failed: %s", domain.ErrExternalService, url, resp.Status)
	}
	return nil
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant POST: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: qdrant POST %s failed: %s", domain.ErrExternalService, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
