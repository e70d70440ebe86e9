// Package qdrantlike adapts vectorstore.Store onto a small REST contract
// modeled on Qdrant's points API, selected when NEXIS_QDRANT_URL is
// configured. It is a drop-in substitute for the in-memory backend.
package qdrantlike

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nexischat/nexis/internal/httpx"
	"github.com/nexischat/nexis/internal/vectorstore"
)

type Config struct {
	BaseURL    string
	Collection string
	Dimension  int
	APIKey     string
}

// Store talks to an external points store over HTTP. It renormalizes
// any non-[0,1] score space the backend reports, per the drop-in
// substitute contract.
type Store struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config) *Store {
	if cfg.Collection == "" {
		cfg.Collection = "nexis"
	}
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["api-key"] = cfg.APIKey
	}
	return &Store{cfg: cfg, client: httpx.New(httpx.Config{BaseURL: cfg.BaseURL, Headers: headers})}
}

func (s *Store) Dimension() int      { return s.cfg.Dimension }
func (s *Store) BackendName() string { return "qdrantlike" }

type wirePoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func metadataToPayload(content string, meta vectorstore.DocumentMetadata, createdAt time.Time) map[string]any {
	payload := map[string]any{
		"content":    content,
		"room_id":    meta.RoomID,
		"user_id":    meta.UserID,
		"message_id": meta.MessageID,
		"tags":       meta.Tags,
		"created_at": createdAt.Format(time.RFC3339Nano),
	}
	for k, v := range meta.Extra {
		payload[k] = v
	}
	return payload
}

func payloadToMetadata(payload map[string]any) (vectorstore.DocumentMetadata, string, time.Time) {
	meta := vectorstore.DocumentMetadata{Extra: map[string]any{}}
	content, _ := payload["content"].(string)
	createdAt := time.Time{}
	for k, v := range payload {
		switch k {
		case "content":
		case "room_id":
			meta.RoomID, _ = v.(string)
		case "user_id":
			meta.UserID, _ = v.(string)
		case "message_id":
			meta.MessageID, _ = v.(string)
		case "tags":
			if raw, ok := v.([]any); ok {
				for _, t := range raw {
					if str, ok := t.(string); ok {
						meta.Tags = append(meta.Tags, str)
					}
				}
			}
		case "created_at":
			if str, ok := v.(string); ok {
				if parsed, err := time.Parse(time.RFC3339Nano, str); err == nil {
					createdAt = parsed
				}
			}
		default:
			meta.Extra[k] = v
		}
	}
	return meta, content, createdAt
}

func (s *Store) points(path string, body any) httpx.Request {
	return httpx.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/collections/%s/points%s", s.cfg.Collection, path),
		Body:   body,
	}
}

func (s *Store) Upsert(ctx context.Context, doc vectorstore.Document) (string, error) {
	if doc.Vector.Dimensions != s.cfg.Dimension {
		return "", &vectorstore.InvalidDimensionError{Expected: s.cfg.Dimension, Actual: doc.Vector.Dimensions}
	}
	point := wirePoint{
		ID:      doc.ID,
		Vector:  doc.Vector.Data,
		Payload: metadataToPayload(doc.Content, doc.Metadata, doc.CreatedAt),
	}
	resp, err := s.client.Do(ctx, s.points("", map[string]any{"points": []wirePoint{point}}))
	if err != nil {
		return "", err
	}
	if err := httpErr(resp); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (s *Store) UpsertBatch(ctx context.Context, docs []vectorstore.Document) (*vectorstore.BatchResult, error) {
	result := &vectorstore.BatchResult{}
	points := make([]wirePoint, 0, len(docs))
	for _, doc := range docs {
		if doc.Vector.Dimensions != s.cfg.Dimension {
			result.Failed = append(result.Failed, vectorstore.BatchFailure{
				ID:     doc.ID,
				Reason: (&vectorstore.InvalidDimensionError{Expected: s.cfg.Dimension, Actual: doc.Vector.Dimensions}).Error(),
			})
			continue
		}
		points = append(points, wirePoint{ID: doc.ID, Vector: doc.Vector.Data, Payload: metadataToPayload(doc.Content, doc.Metadata, doc.CreatedAt)})
	}
	if len(points) > 0 {
		resp, err := s.client.Do(ctx, s.points("", map[string]any{"points": points}))
		if err != nil {
			return nil, err
		}
		if err := httpErr(resp); err != nil {
			return nil, err
		}
		for _, p := range points {
			result.Succeeded = append(result.Succeeded, p.ID)
		}
	}
	return result, nil
}

func (s *Store) Get(ctx context.Context, id string) (*vectorstore.Document, error) {
	docs, err := s.GetBatch(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, &vectorstore.NotFoundError{ID: id}
	}
	return &docs[0], nil
}

type retrievePointResult struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type retrieveResponse struct {
	Result []retrievePointResult `json:"result"`
}

func (s *Store) GetBatch(ctx context.Context, ids []string) ([]vectorstore.Document, error) {
	resp, err := s.client.Do(ctx, httpx.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/collections/%s/points", s.cfg.Collection),
		Body:   map[string]any{"ids": ids, "with_vector": true, "with_payload": true},
	})
	if err != nil {
		return nil, err
	}
	if err := httpErr(resp); err != nil {
		return nil, err
	}
	var parsed retrieveResponse
	if jsonErr := json.Unmarshal(resp.Body, &parsed); jsonErr != nil {
		return nil, fmt.Errorf("qdrantlike: decode retrieve response: %w", jsonErr)
	}
	out := make([]vectorstore.Document, 0, len(parsed.Result))
	for _, p := range parsed.Result {
		meta, content, createdAt := payloadToMetadata(p.Payload)
		out = append(out, vectorstore.Document{
			ID:        p.ID,
			Vector:    vectorstore.NewVector(p.Vector),
			Content:   content,
			Metadata:  meta,
			CreatedAt: createdAt,
		})
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return &vectorstore.NotFoundError{ID: id}
	}
	_, err = s.DeleteBatch(ctx, []string{id})
	return err
}

func (s *Store) DeleteBatch(ctx context.Context, ids []string) (*vectorstore.BatchResult, error) {
	resp, err := s.client.Do(ctx, s.points("/delete", map[string]any{"points": ids}))
	if err != nil {
		return nil, err
	}
	if err := httpErr(resp); err != nil {
		return nil, err
	}
	result := &vectorstore.BatchResult{Succeeded: ids}
	return result, nil
}

type searchHit struct {
	ID      string         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
	Vector  []float32      `json:"vector"`
}

type searchResponse struct {
	Result []searchHit `json:"result"`
}

func (s *Store) Search(ctx context.Context, query vectorstore.SearchQuery) ([]vectorstore.SearchResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	body := map[string]any{
		"vector":       query.Vector.Data,
		"limit":        limit + query.Offset,
		"with_payload": true,
		"with_vector":  query.IncludeContent,
	}
	if query.Filter != nil {
		body["filter"] = filterToWire(query.Filter)
	}
	resp, err := s.client.Do(ctx, httpx.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/collections/%s/points/search", s.cfg.Collection),
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	if err := httpErr(resp); err != nil {
		return nil, err
	}
	var parsed searchResponse
	if jsonErr := json.Unmarshal(resp.Body, &parsed); jsonErr != nil {
		return nil, fmt.Errorf("qdrantlike: decode search response: %w", jsonErr)
	}

	results := make([]vectorstore.SearchResult, 0, len(parsed.Result))
	for _, hit := range parsed.Result {
		score := normalizeScore(hit.Score)
		if query.MinScore != nil && score < *query.MinScore {
			continue
		}
		meta, content, createdAt := payloadToMetadata(hit.Payload)
		if !query.IncludeContent {
			content = ""
		}
		if !query.IncludeMetadata {
			meta = vectorstore.DocumentMetadata{}
		}
		results = append(results, vectorstore.SearchResult{
			Document: vectorstore.Document{ID: hit.ID, Content: content, Metadata: meta, CreatedAt: createdAt},
			Score:    score,
		})
	}
	if query.Offset < len(results) {
		results = results[query.Offset:]
	} else {
		results = nil
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// normalizeScore maps an arbitrary distance/similarity score into [0,1];
// backends reporting cosine similarity already in range pass through
// unchanged.
func normalizeScore(score float32) float32 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func filterToWire(f *vectorstore.SearchFilter) map[string]any {
	must := []map[string]any{}
	if f.RoomID != nil {
		must = append(must, map[string]any{"key": "room_id", "match": map[string]any{"value": *f.RoomID}})
	}
	if f.UserID != nil {
		must = append(must, map[string]any{"key": "user_id", "match": map[string]any{"value": *f.UserID}})
	}
	if len(f.Tags) > 0 {
		must = append(must, map[string]any{"key": "tags", "match": map[string]any{"any": f.Tags}})
	}
	if f.TimeRange != nil {
		must = append(must, map[string]any{
			"key": "created_at",
			"range": map[string]any{
				"gte": f.TimeRange.From.Format(time.RFC3339Nano),
				"lte": f.TimeRange.To.Format(time.RFC3339Nano),
			},
		})
	}
	return map[string]any{"must": must}
}

func (s *Store) Count(ctx context.Context) (int, error) {
	resp, err := s.client.Do(ctx, httpx.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/collections/%s/points/count", s.cfg.Collection),
		Body:   map[string]any{"exact": true},
	})
	if err != nil {
		return 0, err
	}
	if err := httpErr(resp); err != nil {
		return 0, err
	}
	var parsed struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if jsonErr := json.Unmarshal(resp.Body, &parsed); jsonErr != nil {
		return 0, fmt.Errorf("qdrantlike: decode count response: %w", jsonErr)
	}
	return parsed.Result.Count, nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	docs, err := s.GetBatch(ctx, []string{id})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func httpErr(resp *httpx.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrantlike: unexpected status %d: %s", resp.StatusCode, string(resp.Body))
	}
	return nil
}

var _ vectorstore.Store = (*Store)(nil)
