package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"readnest/pkg/domain"
)

// MemoryStore keeps everything in-process. Used by tests and local runs
// without Postgres.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.UserProfile
	email      map[string]string // email -> user ID
	books      map[string]domain.Book
	bookOrder  []string
	feedback   []domain.FeedbackRecord
	hidden     []domain.HiddenRecord
	aggregates map[string]domain.AffinitySnapshot
	recConfig  *domain.RecConfig
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.UserProfile),
		email:      make(map[string]string),
		books:      make(map[string]domain.Book),
		aggregates: make(map[string]domain.AffinitySnapshot),
	}
}

// SetRecConfig installs the single config row (tests and seeding).
func (m *MemoryStore) SetRecConfig(cfg domain.RecConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recConfig = &cfg
}

// SaveUser registers or replaces a user.
func (m *MemoryStore) SaveUser(u domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.UserProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.UserProfile{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.UserProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// UpdateProfile applies the non-nil fields and returns the updated user.
func (m *MemoryStore) UpdateProfile(id string, upd domain.ProfileUpdate) (domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.UserProfile{}, ErrNotFound
	}
	if upd.PreferredGenres != nil {
		u.PreferredGenres = *upd.PreferredGenres
	}
	if upd.PreferredFormats != nil {
		u.PreferredFormats = *upd.PreferredFormats
	}
	if upd.LanguagePref != nil {
		u.LanguagePref = *upd.LanguagePref
	}
	if upd.OnboardingDone != nil {
		u.OnboardingDone = *upd.OnboardingDone
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return u, nil
}

// SaveBook stores or replaces a book and tracks insertion order.
func (m *MemoryStore) SaveBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.books[b.ID]; !exists {
		m.bookOrder = append(m.bookOrder, b.ID)
	}
	m.books[b.ID] = b
	return nil
}

// GetBook retrieves a book by primary ID.
func (m *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

// GetBookByKey retrieves a book by its secondary catalog key.
func (m *MemoryStore) GetBookByKey(key string) (domain.Book, bool, error) {
	if strings.TrimSpace(key) == "" {
		return domain.Book{}, false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.bookOrder {
		if b, ok := m.books[id]; ok && b.BookKey == key {
			return b, true, nil
		}
	}
	return domain.Book{}, false, nil
}

// ListBooks returns one page of books matching the filter in insertion order.
func (m *MemoryStore) ListBooks(f BookFilter, p Page) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Book, 0, len(m.bookOrder))
	for _, id := range m.bookOrder {
		b, ok := m.books[id]
		if !ok || !matchesFilter(b, f) {
			continue
		}
		matched = append(matched, b)
	}
	return pageOf(matched, p), nil
}

func matchesFilter(b domain.Book, f BookFilter) bool {
	if f.Language != "" && b.Language != f.Language {
		return false
	}
	if len(f.Formats) > 0 {
		found := false
		for _, format := range f.Formats {
			if b.Format == format {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.AnyGenre) > 0 {
		found := false
		for _, g := range f.AnyGenre {
			if strings.Contains(b.Genres, g) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TitleContains != "" && !strings.Contains(b.Title, f.TitleContains) {
		return false
	}
	if f.MinRating != nil && b.RatingAvg < *f.MinRating {
		return false
	}
	return true
}

func pageOf[T any](items []T, p Page) []T {
	if p.Limit <= 0 {
		return items
	}
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

// SaveFeedback appends a rating record.
func (m *MemoryStore) SaveFeedback(f domain.FeedbackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	m.feedback = append(m.feedback, f)
	return nil
}

// ListFeedbackByUser returns one page of a user's feedback in creation order.
func (m *MemoryStore) ListFeedbackByUser(userID string, p Page) ([]domain.FeedbackRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.FeedbackRecord, 0)
	for _, f := range m.feedback {
		if f.UserID == userID {
			matched = append(matched, f)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return pageOf(matched, p), nil
}

// HasFeedback reports whether the user has rated anything.
func (m *MemoryStore) HasFeedback(userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.feedback {
		if f.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// SaveHidden appends an exclusion record.
func (m *MemoryStore) SaveHidden(h domain.HiddenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	m.hidden = append(m.hidden, h)
	return nil
}

// ListHiddenBookIDs returns the complete exclusion set for a user.
func (m *MemoryStore) ListHiddenBookIDs(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0)
	for _, h := range m.hidden {
		if h.UserID == userID {
			ids = append(ids, h.BookID)
		}
	}
	return ids, nil
}

// GetAggregates loads a user's affinity snapshot.
func (m *MemoryStore) GetAggregates(userID string) (domain.AffinitySnapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.aggregates[userID]
	return snap, ok, nil
}

// UpsertAggregates replaces the user's snapshot in place.
func (m *MemoryStore) UpsertAggregates(snap domain.AffinitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregates[snap.UserID] = snap
	return nil
}

// GetRecConfig returns the installed config row when present.
func (m *MemoryStore) GetRecConfig() (domain.RecConfig, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.recConfig == nil {
		return domain.RecConfig{}, false, nil
	}
	return *m.recConfig, true, nil
}

// MemorySessionStore keeps session tokens in-process.
type MemorySessionStore struct {
	mu   sync.Mutex
	sess map[string]string // token -> user ID
}

// NewMemorySessionStore initializes an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sess: make(map[string]string)}
}

// NewSession creates a session token for a user.
func (m *MemorySessionStore) NewSession(userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := uuid.NewString()
	m.sess[token] = userID
	return token, nil
}

// GetUserIDByToken resolves token to user ID.
func (m *MemorySessionStore) GetUserIDByToken(token string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.sess[token]
	return uid, ok, nil
}

// DeleteSession removes a token mapping.
func (m *MemorySessionStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, token)
	return nil
}
