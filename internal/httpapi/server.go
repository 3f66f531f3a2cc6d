// Package httpapi serves the token endpoints over chi.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wordleapi/wordauth"
	"github.com/wordleapi/wordauth/claims"
	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/internal/logging"
	"github.com/wordleapi/wordauth/middleware"
	"github.com/wordleapi/wordauth/password"
	"github.com/wordleapi/wordauth/policy"
)

const maxBodyBytes = 1 << 20

// Role names used by the demonstration routes.
const (
	RoleRulerOfTheUniverse = "RulerOfTheUniverse"
	RoleMeg                = "Meg"
)

// Engine is the part of *wordauth.Engine the API needs.
type Engine interface {
	middleware.Authorizer
	Issue(ctx context.Context, req wordauth.IssueRequest) (*wordauth.IssueResult, error)
}

// Server holds the API dependencies.
type Server struct {
	engine    Engine
	registrar credential.Registrar
	metrics   http.Handler
	logger    *slog.Logger
	timeout   time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRequestTimeout bounds each request. Zero disables the limit.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// NewServer returns the API. registrar may be nil, in which case
// POST /token/createuser answers 501.
func NewServer(engine Engine, registrar credential.Registrar, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		registrar: registrar,
		logger:    logging.Discard(),
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)
	if s.timeout > 0 {
		r.Use(chimw.Timeout(s.timeout))
	}

	r.Route("/token", func(r chi.Router) {
		r.Post("/gettoken", s.getToken)
		r.Post("/createuser", s.createUser)

		r.With(middleware.RequireAuthenticated(s.engine)).Get("/test", s.test)
		r.With(middleware.RequireAnyRole(s.engine, policy.RoleAdmin)).Get("/testadmin", s.testAdmin)
		r.With(middleware.RequireAnyRole(s.engine, RoleRulerOfTheUniverse, RoleMeg)).Get("/testruleroftheuniverse", s.testRuler)
		r.With(middleware.RequirePolicy(s.engine, policy.NameRandomAdmin)).Get("/testrandomadmin", s.testRandomAdmin)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

const msgBadCredentials = "The username or password is incorrect"

func (s *Server) getToken(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.engine.Issue(middleware.RequestContext(r), wordauth.IssueRequest{
		Username: req.Username,
		Password: req.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, wordauth.ErrMissingUsername):
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	case errors.Is(err, wordauth.ErrMissingPassword):
		http.Error(w, "Password is required", http.StatusBadRequest)
		return
	case errors.Is(err, wordauth.ErrUnauthenticated):
		// Not-found and wrong-password share one response.
		http.Error(w, msgBadCredentials, http.StatusUnauthorized)
		return
	default:
		s.logger.ErrorContext(r.Context(), "issue token", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: res.Token})
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Birthday string `json:"birthday"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	if s.registrar == nil {
		http.Error(w, "user registration is not available", http.StatusNotImplemented)
		return
	}

	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	switch {
	case req.Username == "":
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	case req.Password == "":
		http.Error(w, "Password is required", http.StatusBadRequest)
		return
	case req.Name == "":
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	case req.Birthday == "":
		http.Error(w, "Birthday is required", http.StatusBadRequest)
		return
	}

	birthday, err := parseBirthday(req.Birthday)
	if err != nil {
		http.Error(w, "Birthday is invalid", http.StatusBadRequest)
		return
	}

	_, err = s.registrar.Create(r.Context(), credential.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Birthday: birthday,
	})
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, credential.ErrUserExists):
		http.Error(w, "Username is already taken", http.StatusConflict)
	case errors.Is(err, password.ErrPasswordTooShort), errors.Is(err, password.ErrPasswordTooLong):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.ErrorContext(r.Context(), "create user", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) test(w http.ResponseWriter, _ *http.Request) {
	writeText(w, "something")
}

func (s *Server) testAdmin(w http.ResponseWriter, _ *http.Request) {
	writeText(w, "You are Admin")
}

func (s *Server) testRuler(w http.ResponseWriter, _ *http.Request) {
	writeText(w, "Authorized as MASTER OF THE UNIVERSE")
}

func (s *Server) testRandomAdmin(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	random, _ := res.Claim(claims.TypeRandom)
	writeText(w, fmt.Sprintf("Authorized randomly as Random Admin with %s", random))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// parseBirthday accepts a calendar date or a full RFC 3339 timestamp.
func parseBirthday(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(claims.DateOfBirthLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("birthday %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
