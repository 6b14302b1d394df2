package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"readnest/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&BookModel{},
		&FeedbackModel{},
		&HiddenItemModel{},
		&UserAggregatesModel{},
		&RecConfigModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.UserProfile) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "password_hash", "preferred_genres", "preferred_formats",
			"language_pref", "onboarding_done", "updated_at",
		}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.UserProfile, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.UserProfile{}, false, nil
		}
		return domain.UserProfile{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.UserProfile, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.UserProfile{}, false, nil
		}
		return domain.UserProfile{}, false, err
	}
	return userFromModel(model), true, nil
}

// UpdateProfile applies the non-nil fields and returns the updated user.
func (s *GormStore) UpdateProfile(id string, upd domain.ProfileUpdate) (domain.UserProfile, error) {
	changes := map[string]any{"updated_at": time.Now().UTC()}
	if upd.PreferredGenres != nil {
		changes["preferred_genres"] = *upd.PreferredGenres
	}
	if upd.PreferredFormats != nil {
		changes["preferred_formats"] = *upd.PreferredFormats
	}
	if upd.LanguagePref != nil {
		changes["language_pref"] = *upd.LanguagePref
	}
	if upd.OnboardingDone != nil {
		changes["onboarding_done"] = *upd.OnboardingDone
	}
	if err := s.db.Model(&UserModel{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		return domain.UserProfile{}, err
	}
	user, ok, err := s.GetUserByID(id)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if !ok {
		return domain.UserProfile{}, ErrNotFound
	}
	return user, nil
}

// SaveBook stores or updates a catalog entry.
func (s *GormStore) SaveBook(b domain.Book) error {
	model := bookToModel(b)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"book_key", "title", "authors", "genres", "tags", "language",
			"format", "year", "rating_avg", "rating_count", "description",
		}),
	}).Create(&model).Error
}

// GetBook retrieves a book by primary ID.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// GetBookByKey retrieves a book by its secondary catalog key.
func (s *GormStore) GetBookByKey(key string) (domain.Book, bool, error) {
	if strings.TrimSpace(key) == "" {
		return domain.Book{}, false, nil
	}
	var model BookModel
	if err := s.db.First(&model, "book_key = ?", key).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns one page of books matching the filter, ordered by
// created_at for deterministic pagination.
func (s *GormStore) ListBooks(f BookFilter, p Page) ([]domain.Book, error) {
	tx := s.db.Model(&BookModel{}).Order("created_at ASC, id ASC")
	if f.Language != "" {
		tx = tx.Where("language = ?", f.Language)
	}
	if len(f.Formats) > 0 {
		tx = tx.Where("format IN ?", f.Formats)
	}
	if len(f.AnyGenre) > 0 {
		genreQuery := s.db
		for i, g := range f.AnyGenre {
			cond := "genres LIKE ?"
			pattern := "%" + escapeLike(g) + "%"
			if i == 0 {
				genreQuery = genreQuery.Where(cond, pattern)
			} else {
				genreQuery = genreQuery.Or(cond, pattern)
			}
		}
		tx = tx.Where(genreQuery)
	}
	if f.TitleContains != "" {
		tx = tx.Where("title LIKE ?", "%"+escapeLike(f.TitleContains)+"%")
	}
	if f.MinRating != nil {
		tx = tx.Where("rating_avg >= ?", *f.MinRating)
	}
	if p.Limit > 0 {
		tx = tx.Limit(p.Limit).Offset(p.Offset)
	}
	var models []BookModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// SaveFeedback appends a rating record.
func (s *GormStore) SaveFeedback(f domain.FeedbackRecord) error {
	model := feedbackToModel(f)
	return s.db.Create(&model).Error
}

// ListFeedbackByUser returns one page of a user's feedback in creation order.
func (s *GormStore) ListFeedbackByUser(userID string, p Page) ([]domain.FeedbackRecord, error) {
	tx := s.db.Where("user_id = ?", userID).Order("created_at ASC, id ASC")
	if p.Limit > 0 {
		tx = tx.Limit(p.Limit).Offset(p.Offset)
	}
	var models []FeedbackModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.FeedbackRecord, 0, len(models))
	for _, m := range models {
		res = append(res, feedbackFromModel(m))
	}
	return res, nil
}

// HasFeedback reports whether the user has rated anything.
func (s *GormStore) HasFeedback(userID string) (bool, error) {
	var count int64
	if err := s.db.Model(&FeedbackModel{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveHidden appends an exclusion record.
func (s *GormStore) SaveHidden(h domain.HiddenRecord) error {
	model := HiddenItemModel{
		ID:        h.ID,
		UserID:    h.UserID,
		BookID:    h.BookID,
		CreatedAt: h.CreatedAt,
	}
	return s.db.Create(&model).Error
}

// ListHiddenBookIDs returns the complete exclusion set for a user.
func (s *GormStore) ListHiddenBookIDs(userID string) ([]string, error) {
	var ids []string
	if err := s.db.Model(&HiddenItemModel{}).Where("user_id = ?", userID).Pluck("book_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// GetAggregates loads a user's affinity snapshot. Unparsable affinity
// payloads degrade to empty maps rather than failing the read.
func (s *GormStore) GetAggregates(userID string) (domain.AffinitySnapshot, bool, error) {
	var model UserAggregatesModel
	if err := s.db.First(&model, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.AffinitySnapshot{}, false, nil
		}
		return domain.AffinitySnapshot{}, false, err
	}
	return domain.AffinitySnapshot{
		UserID:         model.UserID,
		GenreAffinity:  affinityFromJSON(model.GenreAffinity),
		TagAffinity:    affinityFromJSON(model.TagAffinity),
		AuthorAffinity: affinityFromJSON(model.AuthorAffinity),
		UpdatedAt:      model.UpdatedAt,
	}, true, nil
}

// UpsertAggregates replaces the user's snapshot in place, creating it on
// first recomputation.
func (s *GormStore) UpsertAggregates(snap domain.AffinitySnapshot) error {
	model := UserAggregatesModel{
		UserID:         snap.UserID,
		GenreAffinity:  affinityToJSON(snap.GenreAffinity),
		TagAffinity:    affinityToJSON(snap.TagAffinity),
		AuthorAffinity: affinityToJSON(snap.AuthorAffinity),
		UpdatedAt:      snap.UpdatedAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"genre_affinity", "tag_affinity", "author_affinity", "updated_at",
		}),
	}).Create(&model).Error
}

// GetRecConfig returns the single recommendation config row when present.
// Malformed stored weights degrade to zero values; defaults are merged in
// by the caller.
func (s *GormStore) GetRecConfig() (domain.RecConfig, bool, error) {
	var model RecConfigModel
	if err := s.db.Order("id ASC").First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.RecConfig{}, false, nil
		}
		return domain.RecConfig{}, false, err
	}
	cfg := domain.RecConfig{
		EMAAlpha:         model.EmaAlpha,
		Weights:          parseWeights(model.Weights),
		ColdstartSort:    domain.ParseList(model.ColdstartSort),
		SuggestionsLimit: model.SuggestionsLimit,
	}
	return cfg, true, nil
}

// parseWeights accepts weights stored either as a JSON object or as a
// JSON-encoded string of one. Anything unparsable yields zero weights.
func parseWeights(raw []byte) domain.Weights {
	if len(raw) == 0 {
		return domain.Weights{}
	}
	var w domain.Weights
	if err := json.Unmarshal(raw, &w); err == nil {
		return w
	}
	var serialized string
	if err := json.Unmarshal(raw, &serialized); err != nil {
		return domain.Weights{}
	}
	if err := json.Unmarshal([]byte(serialized), &w); err != nil {
		return domain.Weights{}
	}
	return w
}

func affinityFromJSON(raw []byte) map[string]float64 {
	out := map[string]float64{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]float64{}
	}
	return out
}

func affinityToJSON(m map[string]float64) []byte {
	if m == nil {
		m = map[string]float64{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

// escapeLike neutralizes LIKE wildcards in user-supplied substrings.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func userToModel(u domain.UserProfile) UserModel {
	return UserModel{
		ID:               u.ID,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		PreferredGenres:  u.PreferredGenres,
		PreferredFormats: u.PreferredFormats,
		LanguagePref:     u.LanguagePref,
		OnboardingDone:   u.OnboardingDone,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.UserProfile {
	return domain.UserProfile{
		ID:               m.ID,
		Email:            m.Email,
		PasswordHash:     m.PasswordHash,
		PreferredGenres:  m.PreferredGenres,
		PreferredFormats: m.PreferredFormats,
		LanguagePref:     m.LanguagePref,
		OnboardingDone:   m.OnboardingDone,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:          b.ID,
		BookKey:     b.BookKey,
		Title:       b.Title,
		Authors:     b.Authors,
		Genres:      b.Genres,
		Tags:        b.Tags,
		Language:    b.Language,
		Format:      b.Format,
		Year:        b.Year,
		RatingAvg:   b.RatingAvg,
		RatingCount: b.RatingCount,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:          m.ID,
		BookKey:     m.BookKey,
		Title:       m.Title,
		Authors:     m.Authors,
		Genres:      m.Genres,
		Tags:        m.Tags,
		Language:    m.Language,
		Format:      m.Format,
		Year:        m.Year,
		RatingAvg:   m.RatingAvg,
		RatingCount: m.RatingCount,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

func feedbackToModel(f domain.FeedbackRecord) FeedbackModel {
	return FeedbackModel{
		ID:        f.ID,
		UserID:    f.UserID,
		BookID:    f.BookID,
		Rating:    f.Rating,
		Comment:   f.Comment,
		CreatedAt: f.CreatedAt,
	}
}

func feedbackFromModel(m FeedbackModel) domain.FeedbackRecord {
	return domain.FeedbackRecord{
		ID:        m.ID,
		UserID:    m.UserID,
		BookID:    m.BookID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
	}
}
