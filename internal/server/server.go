package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"readnest/internal/app"
	"readnest/internal/ratelimit"
	"readnest/internal/util"
	"readnest/pkg/auth"
	"readnest/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                        *app.App
	RedisAddr                  string
	RedisPassword              string
	SignupRateLimitPerMinute   int
	LoginRateLimitPerMinute    int
	FeedbackRateLimitPerMinute int
}

// Server exposes HTTP endpoints for the recommendation backend.
type Server struct {
	app             *app.App
	mux             *http.ServeMux
	signupLimiter   *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
	feedbackLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	signupLimit := cfg.SignupRateLimitPerMinute
	if signupLimit <= 0 {
		signupLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	feedbackLimit := cfg.FeedbackRateLimitPerMinute
	if feedbackLimit <= 0 {
		feedbackLimit = 30
	}
	rateWindow := time.Minute
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "readnest:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, rateWindow)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	signupLimiter, err := newLimiter("signup", signupLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	feedbackLimiter, err := newLimiter("feedback", feedbackLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:             cfg.App,
		mux:             http.NewServeMux(),
		signupLimiter:   signupLimiter,
		loginLimiter:    loginLimiter,
		feedbackLimiter: feedbackLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))

	// catalog & feedback (auth required)
	s.mux.Handle("/api/books", s.authenticated(s.handleBooks))
	s.mux.Handle("/api/books/", s.authenticated(s.handleBookByRef))
	s.mux.Handle("/api/feedback", s.authenticated(s.handleFeedback))

	// recommendations
	s.mux.Handle("/api/recommendations", s.authenticated(s.handleSuggestions))
	s.mux.Handle("/api/recommendations/recompute", s.authenticated(s.handleRecompute))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.UserProfile)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "readnest.authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.app.CurrentUser(token)
		if err != nil {
			s.audit(r, "readnest.authorize", "fail", "reason", "invalid_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

// auth handlers
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		s.audit(r, "readnest.signup", "rate_limited")
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "readnest.signup", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(req.Email, req.Password, app.SignupPrefs{
		PreferredGenres:  req.PreferredGenres,
		PreferredFormats: req.PreferredFormats,
		LanguagePref:     req.LanguagePref,
	})
	if err != nil {
		s.audit(r, "readnest.signup", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "readnest.signup", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "readnest.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "readnest.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "readnest.login", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "readnest.login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "readnest.logout", "fail", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		s.audit(r, "readnest.logout", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "readnest.logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		var req updateMeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := s.app.UpdateProfile(user, domain.ProfileUpdate{
			PreferredGenres:  req.PreferredGenres,
			PreferredFormats: req.PreferredFormats,
			LanguagePref:     req.LanguagePref,
			OnboardingDone:   req.OnboardingDone,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "readnest.profile.update", "success", "user_id", user.ID)
		writeJSON(w, http.StatusOK, updated)
	default:
		methodNotAllowed(w)
	}
}

// catalog handlers
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request, _ domain.UserProfile) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	query := app.CatalogQuery{
		Title:    q.Get("title"),
		Genre:    q.Get("genre"),
		Format:   q.Get("format"),
		Language: q.Get("language"),
	}
	if v := q.Get("minRating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "minRating must be a number")
			return
		}
		query.MinRating = &f
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "page must be a non-negative integer")
			return
		}
		query.Page = n
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "pageSize must be a positive integer")
			return
		}
		query.PageSize = n
	}
	books, err := s.app.ListCatalog(query)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": books})
}

func (s *Server) handleBookByRef(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/books/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if ref, ok := strings.CutSuffix(rest, "/hide"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		record, err := s.app.HideBook(user, ref)
		if err != nil {
			s.audit(r, "readnest.book.hide", "fail", "user_id", user.ID, "reason", err.Error())
			writeAppError(w, err)
			return
		}
		s.audit(r, "readnest.book.hide", "success", "user_id", user.ID, "book_id", record.BookID)
		writeJSON(w, http.StatusCreated, record)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	book, err := s.app.GetBook(rest)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// feedback handler
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.feedbackLimiter, "too many ratings, slow down") {
		s.audit(r, "readnest.feedback", "rate_limited", "user_id", user.ID)
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.BookID) == "" {
		writeError(w, http.StatusBadRequest, "bookId is required")
		return
	}
	record, err := s.app.SubmitFeedback(user, req.BookID, req.Rating, req.Comment)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.audit(r, "readnest.feedback", "success", "user_id", user.ID, "book_id", record.BookID)
	writeJSON(w, http.StatusCreated, record)
}

// recommendation handlers
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	suggestions, err := s.app.Suggest(user, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if _, err := s.app.RecomputeAggregates(user.ID); err != nil {
		s.audit(r, "readnest.recompute", "fail", "user_id", user.ID, "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "readnest.recompute", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// request/response payloads
type signupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	PreferredGenres  string `json:"preferredGenres"`
	PreferredFormats string `json:"preferredFormats"`
	LanguagePref     string `json:"languagePref"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateMeRequest struct {
	PreferredGenres  *string `json:"preferredGenres"`
	PreferredFormats *string `json:"preferredFormats"`
	LanguagePref     *string `json:"languagePref"`
	OnboardingDone   *bool   `json:"onboardingDone"`
}

type feedbackRequest struct {
	BookID  string  `json:"bookId"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

type authResponse struct {
	Token string             `json:"token"`
	User  domain.UserProfile `json:"user"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		slog.Warn("missing bearer prefix", "path", r.URL.Path)
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		slog.Warn("empty bearer token", "path", r.URL.Path)
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrUnauthenticated), errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrEmailAndPasswordRequired),
		errors.Is(err, app.ErrInvalidRating),
		errors.Is(err, auth.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrBookNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", clientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + clientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func clientIP(r *http.Request) string {
	if xfwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
