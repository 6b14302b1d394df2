package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"readnest/pkg/domain"
	"readnest/pkg/store"
)

// ModelVersion tags suggestion responses so clients can detect when the
// scoring rules change.
const ModelVersion = "rules:v1"

const (
	catalogPageSize = 200
	affinityFloor   = 0.1
)

// Suggest produces a ranked list of books for the user. Users who have not
// finished onboarding or have never rated anything get the cold-start path;
// everyone else gets personalized scoring against their affinity snapshot.
func (a *App) Suggest(user domain.UserProfile, limit int) (domain.Suggestions, error) {
	cfg := a.recConfig()
	if limit <= 0 {
		limit = cfg.SuggestionsLimit
	}

	rated, err := a.store.HasFeedback(user.ID)
	if err != nil {
		return domain.Suggestions{}, fmt.Errorf("check feedback: %w", err)
	}
	if !user.OnboardingDone || !rated {
		return a.coldStart(user, cfg, limit)
	}
	return a.personalized(user, cfg, limit)
}

// coldStart ranks catalog entries matching the user's stated preferences by
// the configured popularity keys.
func (a *App) coldStart(user domain.UserProfile, cfg domain.RecConfig, limit int) (domain.Suggestions, error) {
	filter := store.BookFilter{
		Language: user.LanguagePref,
		Formats:  domain.ParseList(user.PreferredFormats),
		AnyGenre: domain.ParseList(user.PreferredGenres),
	}
	books, err := a.listAllBooks(filter)
	if err != nil {
		return domain.Suggestions{}, fmt.Errorf("list catalog: %w", err)
	}
	sortBooksByKeys(books, cfg.ColdstartSort)
	if len(books) > limit {
		books = books[:limit]
	}

	rationale := "Getting you started with popular picks."
	if genres := domain.ParseList(user.PreferredGenres); len(genres) > 0 {
		if len(genres) > 2 {
			genres = genres[:2]
		}
		rationale = fmt.Sprintf("Based on your selected genres %s and preferred formats.", strings.Join(genres, ", "))
	}
	return domain.Suggestions{
		ModelVersion: ModelVersion,
		AsOf:         time.Now().UTC(),
		Rationale:    rationale,
		Items:        books,
	}, nil
}

type scoredBook struct {
	book           domain.Book
	score          float64
	genreOverlap   float64
	tagOverlap     float64
	authorAffinity float64
}

// personalized blends genre and tag overlaps, author affinity and a
// normalized popularity signal into one score per candidate.
func (a *App) personalized(user domain.UserProfile, cfg domain.RecConfig, limit int) (domain.Suggestions, error) {
	var (
		snapshot   domain.AffinitySnapshot
		hiddenIDs  []string
		candidates []domain.Book
	)
	var g errgroup.Group
	g.Go(func() error {
		snap, ok, err := a.store.GetAggregates(user.ID)
		if err != nil {
			return fmt.Errorf("get aggregates: %w", err)
		}
		if ok {
			snapshot = snap
		}
		return nil
	})
	g.Go(func() error {
		ids, err := a.store.ListHiddenBookIDs(user.ID)
		if err != nil {
			return fmt.Errorf("list hidden: %w", err)
		}
		hiddenIDs = ids
		return nil
	})
	g.Go(func() error {
		books, err := a.listAllBooks(store.BookFilter{
			Language: user.LanguagePref,
			Formats:  domain.ParseList(user.PreferredFormats),
		})
		if err != nil {
			return fmt.Errorf("list catalog: %w", err)
		}
		candidates = books
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Suggestions{}, err
	}
	if snapshot.GenreAffinity == nil {
		snapshot.GenreAffinity = map[string]float64{}
	}
	if snapshot.TagAffinity == nil {
		snapshot.TagAffinity = map[string]float64{}
	}
	if snapshot.AuthorAffinity == nil {
		snapshot.AuthorAffinity = map[string]float64{}
	}

	hidden := make(map[string]struct{}, len(hiddenIDs))
	for _, id := range hiddenIDs {
		hidden[id] = struct{}{}
	}

	// Popularity normalization runs over the whole candidate set so that
	// hidden items do not shift the scale between users.
	signals := make([]float64, len(candidates))
	for i, b := range candidates {
		signals[i] = ratingSignal(b.RatingAvg, b.RatingCount)
	}
	signals = minMaxNormalize(signals)

	topGenres := tokensAbove(snapshot.GenreAffinity, affinityFloor)
	topTags := tokensAbove(snapshot.TagAffinity, affinityFloor)

	scored := make([]scoredBook, 0, len(candidates))
	for i, b := range candidates {
		if _, ok := hidden[b.ID]; ok {
			continue
		}
		if b.BookKey != "" {
			if _, ok := hidden[b.BookKey]; ok {
				continue
			}
		}
		sb := scoredBook{book: b}
		sb.genreOverlap = jaccard(domain.ParseList(b.Genres), topGenres)
		sb.tagOverlap = jaccard(domain.ParseList(b.Tags), topTags)
		for _, author := range domain.ParseList(b.Authors) {
			if v, ok := snapshot.AuthorAffinity[author]; ok && v > sb.authorAffinity {
				sb.authorAffinity = v
			}
		}
		sb.score = cfg.Weights.Genre*sb.genreOverlap +
			cfg.Weights.Tag*sb.tagOverlap +
			cfg.Weights.Author*sb.authorAffinity +
			cfg.Weights.Rating*signals[i]
		scored = append(scored, sb)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].book.RatingAvg != scored[j].book.RatingAvg {
			return scored[i].book.RatingAvg > scored[j].book.RatingAvg
		}
		if scored[i].book.RatingCount != scored[j].book.RatingCount {
			return scored[i].book.RatingCount > scored[j].book.RatingCount
		}
		return scored[i].book.Year > scored[j].book.Year
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	items := make([]domain.Book, len(scored))
	for i, sb := range scored {
		items[i] = sb.book
	}

	return domain.Suggestions{
		ModelVersion: ModelVersion,
		AsOf:         time.Now().UTC(),
		Rationale:    personalRationale(scored),
		Items:        items,
	}, nil
}

// personalRationale explains the top pick by its strongest signal.
func personalRationale(scored []scoredBook) string {
	if len(scored) == 0 {
		return "Personalized suggestions."
	}
	best := scored[0]
	if authors := domain.ParseList(best.book.Authors); best.authorAffinity > 0.5 && len(authors) > 0 {
		return fmt.Sprintf("Because you've enjoyed books by %s.", authors[0])
	}
	if genres := domain.ParseList(best.book.Genres); best.genreOverlap >= best.tagOverlap && best.genreOverlap > 0 && len(genres) > 0 {
		return fmt.Sprintf("Because you like %s.", genres[0])
	}
	if tags := domain.ParseList(best.book.Tags); best.tagOverlap > 0 && len(tags) > 0 {
		return fmt.Sprintf("Matches your interest in %s.", tags[0])
	}
	return "Personalized suggestions."
}

// listAllBooks drains every page matching the filter.
func (a *App) listAllBooks(filter store.BookFilter) ([]domain.Book, error) {
	var all []domain.Book
	for offset := 0; ; offset += catalogPageSize {
		page, err := a.store.ListBooks(filter, store.Page{Limit: catalogPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < catalogPageSize {
			return all, nil
		}
	}
}

// sortBooksByKeys orders books descending by each named key in turn.
// Unknown keys contribute a constant and never reorder anything.
func sortBooksByKeys(books []domain.Book, keys []string) {
	sort.SliceStable(books, func(i, j int) bool {
		for _, key := range keys {
			vi, vj := sortKeyValue(books[i], key), sortKeyValue(books[j], key)
			if vi != vj {
				return vi > vj
			}
		}
		return false
	})
}

func sortKeyValue(b domain.Book, key string) float64 {
	switch key {
	case "rating_avg":
		return b.RatingAvg
	case "rating_count":
		return float64(b.RatingCount)
	case "year":
		return float64(b.Year)
	default:
		return 0
	}
}
