package app

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"readnest/internal/util"
	"readnest/pkg/auth"
	"readnest/pkg/domain"
	"readnest/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.Store
	Sessions    store.SessionStore
}

// App is the core application service wiring together storage, auth and
// the recommendation engine.
type App struct {
	store    store.Store
	sessions store.SessionStore

	// bookLookups are tried in order; the catalog carries two identifier
	// forms (primary id and imported catalog key).
	bookLookups []bookLookup

	// userLocks serializes snapshot recomputation per user so rapid-fire
	// ratings do not lose updates to last-write-wins races.
	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

type bookLookup func(ref string) (domain.Book, bool, error)

// New constructs the application with database-backed storage.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	a := &App{
		store:     dataStore,
		sessions:  cfg.Sessions,
		userLocks: make(map[string]*sync.Mutex),
	}
	a.bookLookups = []bookLookup{dataStore.GetBook, dataStore.GetBookByKey}
	return a, nil
}

// SignupPrefs carries optional preference fields captured at signup.
type SignupPrefs struct {
	PreferredGenres  string
	PreferredFormats string
	LanguagePref     string
}

// SignUp registers a new user and opens a session.
func (a *App) SignUp(email, password string, prefs SignupPrefs) (domain.UserProfile, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.UserProfile{}, "", ErrEmailAndPasswordRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.UserProfile{}, "", err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.UserProfile{}, "", ErrEmailAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.UserProfile{
		ID:               util.NewID(),
		Email:            email,
		PasswordHash:     passwordHash,
		PreferredGenres:  prefs.PreferredGenres,
		PreferredFormats: prefs.PreferredFormats,
		LanguagePref:     prefs.LanguagePref,
		OnboardingDone:   false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// Login authenticates and opens a session.
func (a *App) Login(email, password string) (domain.UserProfile, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.UserProfile{}, "", ErrEmailAndPasswordRequired
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("get user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.UserProfile{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.UserProfile{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// Logout closes the session bound to the token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// CurrentUser resolves a session token to its user profile.
func (a *App) CurrentUser(token string) (domain.UserProfile, error) {
	userID, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("resolve session: %w", err)
	}
	if !ok {
		return domain.UserProfile{}, ErrUnauthenticated
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.UserProfile{}, ErrUnauthenticated
	}
	return user, nil
}

// UpdateProfile applies profile changes for the user.
func (a *App) UpdateProfile(user domain.UserProfile, upd domain.ProfileUpdate) (domain.UserProfile, error) {
	updated, err := a.store.UpdateProfile(user.ID, upd)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}

// CatalogQuery narrows catalog browsing.
type CatalogQuery struct {
	Title     string
	Genre     string
	Format    string
	Language  string
	MinRating *float64
	Page      int
	PageSize  int
}

// ListCatalog returns one page of the catalog matching the query.
func (a *App) ListCatalog(q CatalogQuery) ([]domain.Book, error) {
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	if q.Page < 0 {
		q.Page = 0
	}
	filter := store.BookFilter{
		Language:      q.Language,
		TitleContains: q.Title,
		MinRating:     q.MinRating,
	}
	if q.Format != "" {
		filter.Formats = []string{q.Format}
	}
	if q.Genre != "" {
		filter.AnyGenre = []string{q.Genre}
	}
	books, err := a.store.ListBooks(filter, store.Page{Limit: q.PageSize, Offset: q.Page * q.PageSize})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// GetBook resolves either identifier form to a catalog entry.
func (a *App) GetBook(ref string) (domain.Book, error) {
	book, ok, err := a.resolveBook(ref)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// SubmitFeedback records a rating. Records are immutable once created.
func (a *App) SubmitFeedback(user domain.UserProfile, bookRef string, rating float64, comment string) (domain.FeedbackRecord, error) {
	if rating < 1 || rating > 5 {
		return domain.FeedbackRecord{}, ErrInvalidRating
	}
	book, ok, err := a.resolveBook(bookRef)
	if err != nil {
		return domain.FeedbackRecord{}, fmt.Errorf("resolve book: %w", err)
	}
	if !ok {
		return domain.FeedbackRecord{}, ErrBookNotFound
	}
	record := domain.FeedbackRecord{
		ID:        util.NewID(),
		UserID:    user.ID,
		BookID:    book.ID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveFeedback(record); err != nil {
		return domain.FeedbackRecord{}, fmt.Errorf("save feedback: %w", err)
	}
	return record, nil
}

// HideBook adds a book to the user's exclusion set. There is no un-hide.
func (a *App) HideBook(user domain.UserProfile, bookRef string) (domain.HiddenRecord, error) {
	book, ok, err := a.resolveBook(bookRef)
	if err != nil {
		return domain.HiddenRecord{}, fmt.Errorf("resolve book: %w", err)
	}
	if !ok {
		return domain.HiddenRecord{}, ErrBookNotFound
	}
	record := domain.HiddenRecord{
		ID:        util.NewID(),
		UserID:    user.ID,
		BookID:    book.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveHidden(record); err != nil {
		return domain.HiddenRecord{}, fmt.Errorf("save hidden item: %w", err)
	}
	return record, nil
}

// resolveBook tries each catalog lookup in priority order and returns the
// first hit.
func (a *App) resolveBook(ref string) (domain.Book, bool, error) {
	if strings.TrimSpace(ref) == "" {
		return domain.Book{}, false, nil
	}
	for _, lookup := range a.bookLookups {
		book, ok, err := lookup(ref)
		if err != nil {
			return domain.Book{}, false, err
		}
		if ok {
			return book, true, nil
		}
	}
	return domain.Book{}, false, nil
}

// recConfig reads the stored tunables and merges built-in defaults over
// absent or unusable values. Refreshed on every call rather than cached.
func (a *App) recConfig() domain.RecConfig {
	defaults := domain.DefaultRecConfig()
	stored, ok, err := a.store.GetRecConfig()
	if err != nil || !ok {
		return defaults
	}
	cfg := stored
	if cfg.EMAAlpha <= 0 || cfg.EMAAlpha >= 1 {
		cfg.EMAAlpha = defaults.EMAAlpha
	}
	if cfg.Weights.Genre <= 0 {
		cfg.Weights.Genre = defaults.Weights.Genre
	}
	if cfg.Weights.Tag <= 0 {
		cfg.Weights.Tag = defaults.Weights.Tag
	}
	if cfg.Weights.Author <= 0 {
		cfg.Weights.Author = defaults.Weights.Author
	}
	if cfg.Weights.Rating <= 0 {
		cfg.Weights.Rating = defaults.Weights.Rating
	}
	if len(cfg.ColdstartSort) == 0 {
		cfg.ColdstartSort = defaults.ColdstartSort
	}
	if cfg.SuggestionsLimit <= 0 {
		cfg.SuggestionsLimit = defaults.SuggestionsLimit
	}
	return cfg
}

func (a *App) lockUser(userID string) func() {
	a.mu.Lock()
	lock, ok := a.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		a.userLocks[userID] = lock
	}
	a.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}
