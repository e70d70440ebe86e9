// Package vectorstore is the Vector Store contract: upsert/get/delete/
// search over typed documents, with cosine scoring and filter evaluation.
package vectorstore

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Vector is a dense embedding.
type Vector struct {
	Dimensions int
	Data       []float32
}

// NewVector builds a Vector from raw data.
func NewVector(data []float32) Vector {
	return Vector{Dimensions: len(data), Data: data}
}

// CosineSimilarity returns the cosine similarity with other, or 0 if
// dimensions mismatch or either vector is zero-length.
func (v Vector) CosineSimilarity(other Vector) float32 {
	if v.Dimensions != other.Dimensions {
		return 0
	}
	var dot, magA, magB float64
	for i := range v.Data {
		dot += float64(v.Data[i]) * float64(other.Data[i])
		magA += float64(v.Data[i]) * float64(v.Data[i])
		magB += float64(other.Data[i]) * float64(other.Data[i])
	}
	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (magA * magB))
}

// DocumentMetadata carries the structured fields a SearchFilter can match
// against, plus a backend-specific free-form Extra map.
type DocumentMetadata struct {
	RoomID    string
	UserID    string
	MessageID string
	Tags      []string
	Extra     map[string]any
}

// Document is a vector with attached content, metadata, and timestamps.
type Document struct {
	ID        string
	Vector    Vector
	Content   string
	Metadata  DocumentMetadata
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// NewDocument builds a Document with a fresh v4 UUID id and CreatedAt set
// to now.
func NewDocument(vector Vector, content string, metadata DocumentMetadata) Document {
	return Document{
		ID:        uuid.New().String(),
		Vector:    vector,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// TimeRange is an inclusive bound on Document.CreatedAt.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// SearchFilter combines AND-semantics over its populated RoomID, UserID,
// Tags and TimeRange fields. Extra is carried along but not evaluated.
type SearchFilter struct {
	RoomID    *string
	UserID    *string
	Tags      []string // ANY-of match against document tags
	TimeRange *TimeRange
	Extra     map[string]any
}

// Matches reports whether doc satisfies every populated predicate in f;
// f.Extra is ignored.
func (f *SearchFilter) Matches(doc Document) bool {
	if f == nil {
		return true
	}
	if f.RoomID != nil && doc.Metadata.RoomID != *f.RoomID {
		return false
	}
	if f.UserID != nil && doc.Metadata.UserID != *f.UserID {
		return false
	}
	if len(f.Tags) > 0 && !anyTagMatches(f.Tags, doc.Metadata.Tags) {
		return false
	}
	if f.TimeRange != nil {
		if doc.CreatedAt.Before(f.TimeRange.From) || doc.CreatedAt.After(f.TimeRange.To) {
			return false
		}
	}
	return true
}

func anyTagMatches(want, have []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

// SearchQuery describes a semantic search request.
type SearchQuery struct {
	Vector          Vector
	Limit           int // default 10
	Offset          int // default 0
	MinScore        *float32
	Filter          *SearchFilter
	IncludeContent  bool // default true
	IncludeMetadata bool // default true
}

// NewSearchQuery applies the defaults from spec §4.3.
func NewSearchQuery(vector Vector) SearchQuery {
	return SearchQuery{Vector: vector, Limit: 10, IncludeContent: true, IncludeMetadata: true}
}

// Validate checks the SearchQuery invariants.
func (q SearchQuery) Validate() error {
	if q.Vector.Dimensions == 0 || len(q.Vector.Data) == 0 {
		return ErrEmptyVector
	}
	if q.MinScore != nil && (*q.MinScore < 0 || *q.MinScore > 1) {
		return ErrInvalidMinScore
	}
	return nil
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Document Document
	Score    float32
}

// BatchFailure reports why one document in a batch operation failed.
type BatchFailure struct {
	ID     string
	Reason string
}

// BatchResult partitions a batch operation's outcomes.
type BatchResult struct {
	Succeeded []string
	Failed    []BatchFailure
}
