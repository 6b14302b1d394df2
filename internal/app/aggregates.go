package app

import (
	"fmt"
	"log/slog"
	"time"

	"readnest/pkg/domain"
	"readnest/pkg/store"
)

const feedbackPageSize = 100

// RecomputeAggregates rebuilds the user's affinity snapshot from their
// complete feedback history and stores it. Feedback referencing books
// that no longer resolve is skipped; store failures abort the recompute.
func (a *App) RecomputeAggregates(userID string) (domain.AffinitySnapshot, error) {
	cfg := a.recConfig()

	unlock := a.lockUser(userID)
	defer unlock()

	snapshot := domain.AffinitySnapshot{
		UserID:         userID,
		GenreAffinity:  map[string]float64{},
		TagAffinity:    map[string]float64{},
		AuthorAffinity: map[string]float64{},
	}

	for offset := 0; ; offset += feedbackPageSize {
		page, err := a.store.ListFeedbackByUser(userID, store.Page{Limit: feedbackPageSize, Offset: offset})
		if err != nil {
			return domain.AffinitySnapshot{}, fmt.Errorf("list feedback: %w", err)
		}
		for _, fb := range page {
			book, ok, err := a.resolveBook(fb.BookID)
			if err != nil {
				return domain.AffinitySnapshot{}, fmt.Errorf("resolve book %s: %w", fb.BookID, err)
			}
			if !ok {
				slog.Warn("skipping feedback for unresolvable book",
					"user_id", userID, "book_id", fb.BookID)
				continue
			}
			val := normRating(fb.Rating)
			applyEMA(snapshot.GenreAffinity, domain.ParseList(book.Genres), cfg.EMAAlpha, val)
			applyEMA(snapshot.TagAffinity, domain.ParseList(book.Tags), cfg.EMAAlpha, val)
			applyEMA(snapshot.AuthorAffinity, domain.ParseList(book.Authors), cfg.EMAAlpha, val)
		}
		if len(page) < feedbackPageSize {
			break
		}
	}

	snapshot.UpdatedAt = time.Now().UTC()
	if err := a.store.UpsertAggregates(snapshot); err != nil {
		return domain.AffinitySnapshot{}, fmt.Errorf("upsert aggregates: %w", err)
	}
	return snapshot, nil
}
