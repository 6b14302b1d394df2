package domain

import "time"

// UserProfile is a registered reader. Preference fields are stored as
// semicolon-delimited lists and parsed with ParseList at read boundaries.
type UserProfile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	PreferredGenres  string    `json:"preferred_genres"`
	PreferredFormats string    `json:"preferred_formats"`
	LanguagePref     string    `json:"language_pref"`
	OnboardingDone   bool      `json:"onboarding_done"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProfileUpdate carries optional profile changes; nil fields are untouched.
type ProfileUpdate struct {
	PreferredGenres  *string
	PreferredFormats *string
	LanguagePref     *string
	OnboardingDone   *bool
}

// Book is a catalog entry. Authors, Genres and Tags hold semicolon-delimited
// lists. BookKey is an optional secondary identifier used by imported catalogs.
type Book struct {
	ID          string    `json:"id"`
	BookKey     string    `json:"book_key,omitempty"`
	Title       string    `json:"title"`
	Authors     string    `json:"authors"`
	Genres      string    `json:"genres"`
	Tags        string    `json:"tags"`
	Language    string    `json:"language"`
	Format      string    `json:"format"`
	Year        int       `json:"year"`
	RatingAvg   float64   `json:"rating_avg"`
	RatingCount int       `json:"rating_count"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// FeedbackRecord is a user rating for a book. Records are append-only.
type FeedbackRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BookID    string    `json:"book_id"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HiddenRecord excludes a book from a user's suggestions. Append-only;
// there is no un-hide path.
type HiddenRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BookID    string    `json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AffinitySnapshot is the derived preference state for one user. Exactly one
// row per user, replaced wholesale on every recomputation. Values lie in [0,1].
type AffinitySnapshot struct {
	UserID         string             `json:"user_id"`
	GenreAffinity  map[string]float64 `json:"genre_affinity"`
	TagAffinity    map[string]float64 `json:"tag_affinity"`
	AuthorAffinity map[string]float64 `json:"author_affinity"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Weights are the per-signal blend factors for personalized scoring.
type Weights struct {
	Genre  float64 `json:"genre"`
	Tag    float64 `json:"tag"`
	Author float64 `json:"author"`
	Rating float64 `json:"rating"`
}

// RecConfig holds recommendation tunables. A single row is kept in the
// store; absent or partially set values fall back to DefaultRecConfig.
type RecConfig struct {
	EMAAlpha         float64  `json:"ema_alpha"`
	Weights          Weights  `json:"weights"`
	ColdstartSort    []string `json:"coldstart_sort"`
	SuggestionsLimit int      `json:"suggestions_limit"`
}

// DefaultRecConfig returns the built-in recommendation tunables.
func DefaultRecConfig() RecConfig {
	return RecConfig{
		EMAAlpha: 0.7,
		Weights: Weights{
			Genre:  0.45,
			Tag:    0.25,
			Author: 0.2,
			Rating: 0.1,
		},
		ColdstartSort:    []string{"rating_avg", "rating_count", "year"},
		SuggestionsLimit: 20,
	}
}

// Suggestions is the envelope returned by the suggestion engine.
type Suggestions struct {
	ModelVersion string    `json:"model_version"`
	AsOf         time.Time `json:"as_of"`
	Rationale    string    `json:"rationale"`
	Items        []Book    `json:"items"`
}
