package store

import "readnest/pkg/domain"

// Page bounds a single fetch from the store. Callers that need complete
// result sets loop until a short page comes back.
type Page struct {
	Limit  int
	Offset int
}

// BookFilter narrows catalog queries. Zero values mean "no constraint".
type BookFilter struct {
	// Language requires an exact match.
	Language string
	// Formats requires the book format to be one of the listed values.
	Formats []string
	// AnyGenre requires the genres field to contain at least one entry.
	AnyGenre []string
	// TitleContains requires a substring match on the title.
	TitleContains string
	// MinRating requires rating_avg >= *MinRating.
	MinRating *float64
}

// Store defines persistence operations for users, the catalog, feedback,
// hidden items, affinity snapshots and recommendation config.
type Store interface {
	// users
	SaveUser(domain.UserProfile) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.UserProfile, bool, error)
	GetUserByID(id string) (domain.UserProfile, bool, error)
	UpdateProfile(id string, upd domain.ProfileUpdate) (domain.UserProfile, error)

	// catalog
	SaveBook(domain.Book) error
	GetBook(id string) (domain.Book, bool, error)
	GetBookByKey(key string) (domain.Book, bool, error)
	ListBooks(f BookFilter, p Page) ([]domain.Book, error)

	// feedback (append-only, returned in creation order)
	SaveFeedback(domain.FeedbackRecord) error
	ListFeedbackByUser(userID string, p Page) ([]domain.FeedbackRecord, error)
	HasFeedback(userID string) (bool, error)

	// hidden items (append-only)
	SaveHidden(domain.HiddenRecord) error
	ListHiddenBookIDs(userID string) ([]string, error)

	// affinity snapshots (one per user, replaced wholesale)
	GetAggregates(userID string) (domain.AffinitySnapshot, bool, error)
	UpsertAggregates(domain.AffinitySnapshot) error

	// recommendation config (single row; ok=false when absent)
	GetRecConfig() (domain.RecConfig, bool, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
