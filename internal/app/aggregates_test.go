package app

import (
	"fmt"
	"math"
	"testing"
	"time"

	"readnest/pkg/domain"
	"readnest/pkg/store"
)

func newTestApp(t *testing.T) (*App, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	a, err := New(Config{Store: st, Sessions: store.NewMemorySessionStore()})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, st
}

func seedBook(t *testing.T, st *store.MemoryStore, b domain.Book) domain.Book {
	t.Helper()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if err := st.SaveBook(b); err != nil {
		t.Fatalf("save book: %v", err)
	}
	return b
}

func seedFeedback(t *testing.T, st *store.MemoryStore, userID, bookID string, rating float64, at time.Time) {
	t.Helper()
	err := st.SaveFeedback(domain.FeedbackRecord{
		ID:        fmt.Sprintf("fb-%s-%d", bookID, at.UnixNano()),
		UserID:    userID,
		BookID:    bookID,
		Rating:    rating,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("save feedback: %v", err)
	}
}

func TestRecomputeAggregatesEMA(t *testing.T) {
	a, st := newTestApp(t)
	b1 := seedBook(t, st, domain.Book{ID: "b1", Title: "One", Genres: "Fantasy", Tags: "dragons", Authors: "A. Author"})
	b2 := seedBook(t, st, domain.Book{ID: "b2", Title: "Two", Genres: "Fantasy", Tags: "dragons", Authors: "A. Author"})

	base := time.Now().UTC()
	seedFeedback(t, st, "u1", b1.ID, 5, base)
	seedFeedback(t, st, "u1", b2.ID, 1, base.Add(time.Second))

	snap, err := a.RecomputeAggregates("u1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	// rating 5 seeds 1.0, rating 1 folds in as 0.7*1.0 + 0.3*0.
	if got := snap.GenreAffinity["Fantasy"]; math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("Fantasy affinity = %v, want 0.7", got)
	}
	if got := snap.AuthorAffinity["A. Author"]; math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("author affinity = %v, want 0.7", got)
	}
}

func TestRecomputeAggregatesIdempotent(t *testing.T) {
	a, st := newTestApp(t)
	b := seedBook(t, st, domain.Book{ID: "b1", Title: "One", Genres: "Fantasy;Mystery", Tags: "slow-burn"})
	base := time.Now().UTC()
	seedFeedback(t, st, "u1", b.ID, 4, base)
	seedFeedback(t, st, "u1", b.ID, 2, base.Add(time.Second))

	first, err := a.RecomputeAggregates("u1")
	if err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	second, err := a.RecomputeAggregates("u1")
	if err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	for genre, v := range first.GenreAffinity {
		if second.GenreAffinity[genre] != v {
			t.Fatalf("genre %s changed across recomputes: %v vs %v", genre, v, second.GenreAffinity[genre])
		}
	}

	stored, ok, err := st.GetAggregates("u1")
	if err != nil || !ok {
		t.Fatalf("snapshot not stored: ok=%v err=%v", ok, err)
	}
	if stored.GenreAffinity["Fantasy"] != first.GenreAffinity["Fantasy"] {
		t.Fatalf("stored snapshot diverges from returned one")
	}
}

func TestRecomputeAggregatesExhaustsPages(t *testing.T) {
	a, st := newTestApp(t)
	b := seedBook(t, st, domain.Book{ID: "b1", Title: "One", Genres: "Fantasy"})

	// More feedback than one page. The trailing low rating only lands in
	// the affinity if the second page is actually fetched.
	base := time.Now().UTC()
	for i := 0; i < feedbackPageSize+4; i++ {
		seedFeedback(t, st, "u1", b.ID, 5, base.Add(time.Duration(i)*time.Second))
	}
	seedFeedback(t, st, "u1", b.ID, 1, base.Add(time.Hour))

	snap, err := a.RecomputeAggregates("u1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if got := snap.GenreAffinity["Fantasy"]; math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("Fantasy affinity = %v, want 0.7 (second page not processed?)", got)
	}
}

func TestRecomputeSkipsUnresolvableBooks(t *testing.T) {
	a, st := newTestApp(t)
	b := seedBook(t, st, domain.Book{ID: "b1", Title: "One", Genres: "Fantasy"})
	base := time.Now().UTC()
	seedFeedback(t, st, "u1", "gone-book", 1, base)
	seedFeedback(t, st, "u1", b.ID, 5, base.Add(time.Second))

	snap, err := a.RecomputeAggregates("u1")
	if err != nil {
		t.Fatalf("recompute should soft-skip missing books: %v", err)
	}
	if got := snap.GenreAffinity["Fantasy"]; got != 1.0 {
		t.Fatalf("Fantasy affinity = %v, want 1.0 from the surviving record", got)
	}
}

func TestRecomputeResolvesSecondaryIdentifier(t *testing.T) {
	a, st := newTestApp(t)
	seedBook(t, st, domain.Book{ID: "b1", BookKey: "OL12345", Title: "One", Genres: "Horror"})
	seedFeedback(t, st, "u1", "OL12345", 5, time.Now().UTC())

	snap, err := a.RecomputeAggregates("u1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if got := snap.GenreAffinity["Horror"]; got != 1.0 {
		t.Fatalf("Horror affinity = %v, want 1.0 via catalog-key lookup", got)
	}
}

func TestRecomputeEmptyHistory(t *testing.T) {
	a, st := newTestApp(t)
	snap, err := a.RecomputeAggregates("u1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if len(snap.GenreAffinity) != 0 || len(snap.TagAffinity) != 0 || len(snap.AuthorAffinity) != 0 {
		t.Fatalf("empty history should give empty maps, got %+v", snap)
	}
	if _, ok, _ := st.GetAggregates("u1"); !ok {
		t.Fatalf("snapshot should still be upserted for empty history")
	}
}
