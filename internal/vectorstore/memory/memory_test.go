package memory

import (
	"context"
	"testing"
	"time"

	"github.com/nexischat/nexis/internal/vectorstore"
)

func vec(vals ...float32) vectorstore.Vector { return vectorstore.NewVector(vals) }

func TestUpsertRejectsWrongDimension(t *testing.T) {
	s := New(3)
	doc := vectorstore.NewDocument(vec(1, 2), "hello", vectorstore.DocumentMetadata{})
	_, err := s.Upsert(context.Background(), doc)
	if err == nil {
		t.Fatal("expected InvalidDimensionError, got nil")
	}
	var dimErr *vectorstore.InvalidDimensionError
	if !asInvalidDimension(err, &dimErr) {
		t.Fatalf("expected InvalidDimensionError, got %T: %v", err, err)
	}
	if dimErr.Expected != 3 || dimErr.Actual != 2 {
		t.Fatalf("unexpected dimension error: %+v", dimErr)
	}
}

func asInvalidDimension(err error, target **vectorstore.InvalidDimensionError) bool {
	e, ok := err.(*vectorstore.InvalidDimensionError)
	if !ok {
		return false
	}
	*target = e
	return true
}

func TestUpsertBatchPartitionsSuccessAndFailure(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	good := vectorstore.NewDocument(vec(1, 0), "good", vectorstore.DocumentMetadata{})
	bad := vectorstore.NewDocument(vec(1, 0, 0), "bad", vectorstore.DocumentMetadata{})

	result, err := s.UpsertBatch(ctx, []vectorstore.Document{good, bad})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Succeeded) != 1 || result.Succeeded[0] != good.ID {
		t.Fatalf("expected good doc to succeed, got %+v", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].ID != bad.ID {
		t.Fatalf("expected bad doc to fail, got %+v", result.Failed)
	}
}

func TestGetMissingReturnsNotFoundError(t *testing.T) {
	s := New(2)
	_, err := s.Get(context.Background(), "missing")
	if _, ok := err.(*vectorstore.NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestGetBatchOmitsMissingEntries(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	doc := vectorstore.NewDocument(vec(1, 0), "present", vectorstore.DocumentMetadata{})
	if _, err := s.Upsert(ctx, doc); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.GetBatch(ctx, []string{doc.ID, "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != doc.ID {
		t.Fatalf("expected only present doc, got %+v", got)
	}
}

func TestSearchSortedByScoreDescending(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	now := time.Now().UTC()

	low := vectorstore.Document{ID: "low", Vector: vec(1, 0), CreatedAt: now}
	high := vectorstore.Document{ID: "high", Vector: vec(0.99, 0.01), CreatedAt: now}
	orthogonal := vectorstore.Document{ID: "orthogonal", Vector: vec(0, 1), CreatedAt: now}

	for _, d := range []vectorstore.Document{low, orthogonal, high} {
		if _, err := s.Upsert(ctx, d); err != nil {
			t.Fatalf("upsert %s: %v", d.ID, err)
		}
	}

	query := vectorstore.NewSearchQuery(vec(1, 0))
	results, err := s.Search(ctx, query)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Fatalf("results not sorted descending by score: %+v", results)
		}
	}
	if results[0].Document.ID != "low" {
		t.Fatalf("expected exact match 'low' to rank first, got %s", results[0].Document.ID)
	}
}

func TestSearchMinScoreFiltersLowMatches(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	match := vectorstore.Document{ID: "match", Vector: vec(1, 0), CreatedAt: time.Now().UTC()}
	orthogonal := vectorstore.Document{ID: "orthogonal", Vector: vec(0, 1), CreatedAt: time.Now().UTC()}
	for _, d := range []vectorstore.Document{match, orthogonal} {
		if _, err := s.Upsert(ctx, d); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	minScore := float32(0.5)
	query := vectorstore.NewSearchQuery(vec(1, 0))
	query.MinScore = &minScore
	results, err := s.Search(ctx, query)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "match" {
		t.Fatalf("expected only 'match' to survive min_score filter, got %+v", results)
	}
}

func TestSearchRoomIDFilter(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	roomID := "room-a"
	inRoom := vectorstore.Document{
		ID: "in-room", Vector: vec(1, 0), CreatedAt: time.Now().UTC(),
		Metadata: vectorstore.DocumentMetadata{RoomID: roomID},
	}
	outOfRoom := vectorstore.Document{
		ID: "out-of-room", Vector: vec(1, 0), CreatedAt: time.Now().UTC(),
	}
	for _, d := range []vectorstore.Document{inRoom, outOfRoom} {
		if _, err := s.Upsert(ctx, d); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	query := vectorstore.NewSearchQuery(vec(1, 0))
	query.Filter = &vectorstore.SearchFilter{RoomID: &roomID}
	results, err := s.Search(ctx, query)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "in-room" {
		t.Fatalf("expected only in-room document, got %+v", results)
	}
}

func TestSearchPagination(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		d := vectorstore.Document{
			ID:        string(rune('a' + i)),
			Vector:    vec(1, 0),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if _, err := s.Upsert(ctx, d); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	query := vectorstore.NewSearchQuery(vec(1, 0))
	query.Limit = 2
	query.Offset = 1
	results, err := s.Search(ctx, query)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results with limit=2, got %d", len(results))
	}
}

func TestSearchRejectsEmptyVector(t *testing.T) {
	s := New(2)
	query := vectorstore.SearchQuery{Vector: vectorstore.Vector{}}
	if _, err := s.Search(context.Background(), query); err != vectorstore.ErrEmptyVector {
		t.Fatalf("expected ErrEmptyVector, got %v", err)
	}
}

// Spec scenario: upsert two documents, one tagged with a room and one
// without, then search filtered to that room returns exactly the tagged
// one.
func TestSemanticSearchFilterScenario(t *testing.T) {
	s := New(3)
	ctx := context.Background()
	roomID := "room-42"

	tagged := vectorstore.NewDocument(vec(0.2, 0.4, 0.9), "in the room", vectorstore.DocumentMetadata{RoomID: roomID})
	untagged := vectorstore.NewDocument(vec(0.2, 0.4, 0.9), "no room", vectorstore.DocumentMetadata{})

	if _, err := s.Upsert(ctx, tagged); err != nil {
		t.Fatalf("upsert tagged: %v", err)
	}
	if _, err := s.Upsert(ctx, untagged); err != nil {
		t.Fatalf("upsert untagged: %v", err)
	}

	query := vectorstore.NewSearchQuery(vec(0.2, 0.4, 0.9))
	query.Filter = &vectorstore.SearchFilter{RoomID: &roomID}
	results, err := s.Search(ctx, query)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != tagged.ID {
		t.Fatalf("expected exactly the tagged document, got %+v", results)
	}
}

func TestCountAndExists(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	doc := vectorstore.NewDocument(vec(1, 0), "x", vectorstore.DocumentMetadata{})
	if _, err := s.Upsert(ctx, doc); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	count, err := s.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d, err %v", count, err)
	}
	exists, err := s.Exists(ctx, doc.ID)
	if err != nil || !exists {
		t.Fatalf("expected doc to exist, got %v, err %v", exists, err)
	}
	missing, err := s.Exists(ctx, "nope")
	if err != nil || missing {
		t.Fatalf("expected 'nope' to not exist, got %v, err %v", missing, err)
	}
}

func TestDeleteAndDeleteBatch(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	a := vectorstore.NewDocument(vec(1, 0), "a", vectorstore.DocumentMetadata{})
	b := vectorstore.NewDocument(vec(0, 1), "b", vectorstore.DocumentMetadata{})
	if _, err := s.Upsert(ctx, a); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if _, err := s.Upsert(ctx, b); err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete a: %v", err)
	}
	if err := s.Delete(ctx, a.ID); err == nil {
		t.Fatal("expected NotFoundError deleting a twice")
	}

	result, err := s.DeleteBatch(ctx, []string{b.ID, "missing"})
	if err != nil {
		t.Fatalf("delete batch: %v", err)
	}
	if len(result.Succeeded) != 1 || result.Succeeded[0] != b.ID {
		t.Fatalf("expected b to succeed, got %+v", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].ID != "missing" {
		t.Fatalf("expected missing to fail, got %+v", result.Failed)
	}
}

func TestBackendNameAndDimension(t *testing.T) {
	s := New(7)
	if s.BackendName() != "memory" {
		t.Fatalf("expected backend name 'memory', got %s", s.BackendName())
	}
	if s.Dimension() != 7 {
		t.Fatalf("expected dimension 7, got %d", s.Dimension())
	}
}
