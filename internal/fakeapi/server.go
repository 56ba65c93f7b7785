// Package fakeapi is an in-process stand-in for the résumé API, used by tests
// to drive the client through real HTTP round trips.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/resume-client/users"
)

// APIPrefix is the path every endpoint is mounted under; BaseURL includes it.
const APIPrefix = "/api/v1"

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultCredits    = 3
	signingSecret     = "fake-api-secret"
)

// Request is a recorded call, path relative to APIPrefix.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          []byte
}

type account struct {
	password string
	user     users.User
}

type document struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	Content        json.RawMessage `json:"content"`
	TemplateID     string          `json:"template_id,omitempty"`
	JobTitle       string          `json:"job_title,omitempty"`
	CompanyName    string          `json:"company_name,omitempty"`
	JobDescription string          `json:"job_description,omitempty"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type injectedFailure struct {
	status  int
	message string
}

// Server is the fake API. All knobs are safe to call while requests are in flight.
type Server struct {
	srv       *httptest.Server
	signer    *hmacSigner
	refresh   *refreshTokens
	now       func() time.Time
	accessTTL time.Duration

	mu            sync.Mutex
	accounts      map[string]*account // by email
	documents     map[string][]document
	generation    int
	failRefresh   bool
	rotateRefresh bool
	failures      map[string][]injectedFailure
	requests      []Request
}

type Option func(*Server)

// WithAccessTTL sets the lifetime of minted access tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

// WithClock sets the time source used for minting and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New starts a fake API on a loopback listener. Close it when done.
func New(options ...Option) *Server {
	s := &Server{
		signer:        newHMACSigner(signingSecret),
		refresh:       newRefreshTokens(defaultRefreshTTL),
		now:           time.Now,
		accessTTL:     defaultAccessTTL,
		accounts:      make(map[string]*account),
		documents:     make(map[string][]document),
		failures:      make(map[string][]injectedFailure),
		rotateRefresh: true,
	}
	for _, opt := range options {
		opt(s)
	}

	router := mux.NewRouter()
	api := router.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	api.HandleFunc("/profile", s.requireAuth(s.handleGetProfile)).Methods(http.MethodGet)
	api.HandleFunc("/profile", s.requireAuth(s.handleUpdateProfile)).Methods(http.MethodPut)
	api.HandleFunc("/generate/resume", s.requireAuth(s.handleGenerate("resume"))).Methods(http.MethodPost)
	api.HandleFunc("/generate/cover-letter", s.requireAuth(s.handleGenerate("cover_letter"))).Methods(http.MethodPost)
	api.HandleFunc("/documents", s.requireAuth(s.handleListDocuments)).Methods(http.MethodGet)

	s.srv = httptest.NewServer(chainMiddleware(router.ServeHTTP, loggingMiddleware, s.record, recoverMiddleware))
	return s
}

// BaseURL is the API root to configure the client with.
func (s *Server) BaseURL() string {
	return s.srv.URL + APIPrefix
}

func (s *Server) Close() {
	s.srv.Close()
}

// AddUser registers an account directly, bypassing /auth/register.
func (s *Server) AddUser(email, password, fullName string) users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, fullName)
}

// User returns the server-side copy of an account's user record.
func (s *Server) User(email string) (users.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[email]
	if !ok {
		return users.User{}, false
	}
	return acc.user, true
}

// ExpireAccessTokens makes every access token issued so far answer 401.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// FailRefresh makes /auth/refresh answer 401 while set.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = fail
}

// RotateRefreshTokens controls whether /auth/refresh returns a new refresh token.
func (s *Server) RotateRefreshTokens(rotate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotateRefresh = rotate
}

// RevokeRefreshTokens forgets every issued refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.refresh.revokeAll()
}

// FailNext queues an error response for the next call to method+path (path relative to APIPrefix).
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], injectedFailure{status: status, message: message})
}

// Requests returns the recorded calls to method+path, oldest first.
func (s *Server) Requests(method, path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many calls method+path received.
func (s *Server) Count(method, path string) int {
	return len(s.Requests(method, path))
}

// TotalRequests returns the number of calls received on any path.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// record keeps every call for the test to inspect and serves queued failures.
func (s *Server) record(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		path := strings.TrimPrefix(r.URL.Path, APIPrefix)
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		key := r.Method + " " + path
		var failure *injectedFailure
		if queued := s.failures[key]; len(queued) > 0 {
			failure = &queued[0]
			s.failures[key] = queued[1:]
		}
		s.mu.Unlock()

		if failure != nil {
			respondWithError(w, failure.status, "INJECTED", failure.message)
			return
		}
		next(w, r)
	}
}

func (s *Server) addUserLocked(email, password, fullName string) users.User {
	now := s.now().UTC()
	u := users.User{
		ID:               uuid.New().String(),
		Email:            email,
		FullName:         fullName,
		CreditsRemaining: defaultCredits,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.accounts[email] = &account{password: password, user: u}
	return u
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		respondWithError(w, http.StatusBadRequest, "MISSING_FIELDS", "Email, password, and full name are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		respondWithError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already registered")
		return
	}
	u := s.addUserLocked(req.Email, req.Password, req.FullName)
	s.mu.Unlock()

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    u,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Email]
	if !ok || acc.password != req.Password {
		s.mu.Unlock()
		respondWithError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	u := acc.user
	generation := s.generation
	s.mu.Unlock()

	now := s.now()
	access, err := s.signer.sign(u.ID, u.Email, u.IsPremium, generation, now, s.accessTTL)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		return
	}
	refresh, err := s.refresh.create(u.ID, now)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"expires_in":    int(s.accessTTL.Seconds()),
		"user":          u,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondWithError(w, http.StatusBadRequest, "MISSING_TOKEN", "Refresh token is required")
		return
	}

	s.mu.Lock()
	fail, rotate, generation := s.failRefresh, s.rotateRefresh, s.generation
	s.mu.Unlock()

	now := s.now()
	userID, err := s.refresh.lookup(req.RefreshToken, now)
	if fail || err != nil {
		respondWithError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired refresh token")
		return
	}

	u, ok := s.userByID(userID)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired refresh token")
		return
	}

	access, err := s.signer.sign(u.ID, u.Email, u.IsPremium, generation, now, s.accessTTL)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh token")
		return
	}

	resp := map[string]any{
		"access_token": access,
		"expires_in":   int(s.accessTTL.Seconds()),
	}
	if rotate {
		refresh, err := s.refresh.create(u.ID, now)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh token")
			return
		}
		resp["refresh_token"] = refresh
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, acc *account) {
	s.mu.Lock()
	u := acc.user
	s.mu.Unlock()
	respondWithJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, acc *account) {
	var req users.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	s.mu.Lock()
	u := &acc.user
	for dst, src := range map[*string]*string{
		&u.FullName: req.FullName,
		&u.Phone:    req.Phone,
		&u.Location: req.Location,
		&u.Website:  req.Website,
		&u.LinkedIn: req.LinkedIn,
		&u.GitHub:   req.GitHub,
		&u.Summary:  req.Summary,
	} {
		if src != nil {
			*dst = *src
		}
	}
	u.UpdatedAt = s.now().UTC()
	updated := *u
	s.mu.Unlock()

	respondWithJSON(w, http.StatusOK, updated)
}

func (s *Server) handleGenerate(docType string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, acc *account) {
		var req struct {
			JobDescription string `json:"job_description"`
			JobTitle       string `json:"job_title"`
			CompanyName    string `json:"company_name"`
			TemplateID     string `json:"template_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
			return
		}
		if req.JobDescription == "" || req.TemplateID == "" {
			respondWithError(w, http.StatusBadRequest, "MISSING_FIELDS", "Job description and template are required")
			return
		}

		s.mu.Lock()
		if !acc.user.HasCredits() {
			s.mu.Unlock()
			respondWithError(w, http.StatusForbidden, "NO_FREE_GENERATIONS", "No free generations left. Please upgrade to premium.")
			return
		}
		if !acc.user.IsPremium {
			acc.user.CreditsRemaining--
		}
		now := s.now().UTC()
		doc := document{
			ID:             uuid.New().String(),
			UserID:         acc.user.ID,
			Type:           docType,
			Title:          fmt.Sprintf("%s - %s", req.JobTitle, req.CompanyName),
			Content:        json.RawMessage(`{"sections":[]}`),
			TemplateID:     req.TemplateID,
			JobTitle:       req.JobTitle,
			CompanyName:    req.CompanyName,
			JobDescription: req.JobDescription,
			Status:         "final",
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.documents[acc.user.ID] = append(s.documents[acc.user.ID], doc)
		s.mu.Unlock()

		respondWithJSON(w, http.StatusCreated, map[string]any{
			"id":       doc.ID,
			"status":   "completed",
			"message":  "Document generated successfully",
			"document": doc,
		})
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request, acc *account) {
	s.mu.Lock()
	docs := append([]document{}, s.documents[acc.user.ID]...)
	s.mu.Unlock()
	respondWithJSON(w, http.StatusOK, docs)
}

type authedHandler func(http.ResponseWriter, *http.Request, *account)

func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid Authorization header")
			return
		}

		claims, err := s.signer.verify(parts[1], s.now())
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		s.mu.Lock()
		revoked := claims.Generation < s.generation
		acc := s.accountByIDLocked(claims.UserID)
		s.mu.Unlock()

		if revoked || acc == nil {
			respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		next(w, r, acc)
	}
}

func (s *Server) userByID(id string) (users.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accountByIDLocked(id)
	if acc == nil {
		return users.User{}, false
	}
	return acc.user, true
}

func (s *Server) accountByIDLocked(id string) *account {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc
		}
	}
	return nil
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	respondWithJSON(w, statusCode, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
