// Package server exposes the lending desk over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lendingdesk/internal/accounts"
	"lendingdesk/internal/app"
	"lendingdesk/internal/ratelimit"
	"lendingdesk/internal/search"
	"lendingdesk/internal/util"
	"lendingdesk/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Engine   *app.Engine
	Accounts *accounts.Manager
	Sessions *accounts.Sessions

	// Optional. A nil limiter disables limiting for its routes.
	LoginLimiter   *ratelimit.Limiter
	WriteLimiter   *ratelimit.Limiter
	TrustedProxies *util.TrustedProxies
}

// Server exposes HTTP endpoints for the lending desk.
type Server struct {
	engine       *app.Engine
	accounts     *accounts.Manager
	sessions     *accounts.Sessions
	loginLimiter *ratelimit.Limiter
	writeLimiter *ratelimit.Limiter
	trusted      *util.TrustedProxies
	mux          *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server requires an engine")
	}
	if cfg.Accounts == nil || cfg.Sessions == nil {
		return nil, errors.New("server requires accounts and sessions")
	}
	s := &Server{
		engine:       cfg.Engine,
		accounts:     cfg.Accounts,
		sessions:     cfg.Sessions,
		loginLimiter: cfg.LoginLimiter,
		writeLimiter: cfg.WriteLimiter,
		trusted:      cfg.TrustedProxies,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.Handle("/auth/register", s.withLimit(s.loginLimiter, http.HandlerFunc(s.handleRegister)))
	s.mux.Handle("/auth/login", s.withLimit(s.loginLimiter, http.HandlerFunc(s.handleLogin)))

	s.mux.HandleFunc("/titles", s.handleTitles)
	s.mux.HandleFunc("/titles/", s.handleTitleByName)

	s.mux.HandleFunc("/suggest", s.handleSuggest)
	s.mux.HandleFunc("/reports/popularity", s.handlePopularity)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.accounts.Register(req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, accounts.ErrUserExists):
			writeError(w, http.StatusConflict, "username already exists")
		case errors.Is(err, domain.ErrPersistenceFailed):
			util.LoggerFromContext(r.Context()).Error("account persist failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.accounts.Authenticate(req.Username, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := s.sessions.Issue(req.Username)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("session issue failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// withUser requires a valid session token and passes the username through.
type userHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		username, err := s.sessions.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, username)
	}
}

func (s *Server) withLimit(limiter *ratelimit.Limiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := util.ClientIP(r, s.trusted)
		if !limiter.Allow(r.Context(), key) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleTitles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTitles(w, r)
	case http.MethodPost:
		s.withUser(s.handleAddTitle)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListTitles(w http.ResponseWriter, r *http.Request) {
	infos := s.engine.Titles()

	q := r.URL.Query().Get("q")
	if q != "" {
		field, err := parseSearchField(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		byName := make(map[string]app.TitleInfo, len(infos))
		titles := make([]domain.Title, 0, len(infos))
		for _, info := range infos {
			byName[info.Name] = info
			titles = append(titles, info.Title)
		}
		matched := search.Filter(titles, field, q)
		infos = make([]app.TitleInfo, 0, len(matched))
		for _, t := range matched {
			infos = append(infos, byName[t.Name])
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"titles": infos})
}

type addTitleRequest struct {
	Name        string `json:"name"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	Year        int    `json:"year"`
	TotalCopies int    `json:"totalCopies"`
}

func (s *Server) handleAddTitle(w http.ResponseWriter, r *http.Request, _ string) {
	if !s.allowWrite(w, r) {
		return
	}
	var req addTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := s.engine.AddTitle(r.Context(), domain.Title{
		Name:        strings.TrimSpace(req.Name),
		Author:      req.Author,
		Genre:       req.Genre,
		Year:        req.Year,
		TotalCopies: req.TotalCopies,
	})
	if err != nil {
		s.writeEngineError(w, r, err, map[string]string{"status": "created"}, http.StatusCreated)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

// /titles/{name}, /titles/{name}/borrow, /titles/{name}/return
func (s *Server) handleTitleByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/titles/")
	parts := strings.SplitN(path, "/", 2)
	name, err := url.PathUnescape(parts[0])
	if err != nil || name == "" {
		notFound(w, "not found")
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "borrow":
			s.handleBorrow(w, r, name)
		case "return":
			s.handleReturn(w, r, name)
		default:
			notFound(w, "not found")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		info, err := s.engine.Title(name)
		if err != nil {
			s.writeEngineError(w, r, err, nil, 0)
			return
		}
		writeJSON(w, http.StatusOK, info)
	case http.MethodDelete:
		s.withUser(func(w http.ResponseWriter, r *http.Request, _ string) {
			if !s.allowWrite(w, r) {
				return
			}
			if err := s.engine.RemoveTitle(r.Context(), name); err != nil {
				s.writeEngineError(w, r, err, map[string]string{"status": "deleted"}, http.StatusOK)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		})(w, r)
	default:
		methodNotAllowed(w)
	}
}

type borrowRequest struct {
	Requester *domain.Requester `json:"requester,omitempty"`
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.withUser(func(w http.ResponseWriter, r *http.Request, _ string) {
		if !s.allowWrite(w, r) {
			return
		}
		var req borrowRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}
		result, err := s.engine.Borrow(r.Context(), name, req.Requester)
		if err != nil {
			s.writeEngineError(w, r, err, result, http.StatusOK)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})(w, r)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.withUser(func(w http.ResponseWriter, r *http.Request, _ string) {
		if !s.allowWrite(w, r) {
			return
		}
		result, err := s.engine.Return(r.Context(), name)
		if err != nil {
			s.writeEngineError(w, r, err, result, http.StatusOK)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})(w, r)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	field, err := parseSearchField(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	infos := s.engine.Titles()
	titles := make([]domain.Title, 0, len(infos))
	for _, info := range infos {
		titles = append(titles, info.Title)
	}
	suggestions := search.Suggest(titles, field, r.URL.Query().Get("q"))
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handlePopularity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	topN := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		topN = n
	}
	report := s.engine.PopularityReport(topN)
	if report == nil {
		report = []app.PopularityEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

func (s *Server) allowWrite(w http.ResponseWriter, r *http.Request) bool {
	if s.writeLimiter == nil {
		return true
	}
	if !s.writeLimiter.Allow(r.Context(), util.ClientIP(r, s.trusted)) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return false
	}
	return true
}

// writeEngineError maps engine errors onto HTTP responses. A persistence
// failure is not fatal to the request: the in-memory state change took
// effect, so the payload is returned with a warning attached.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error, payload any, okStatus int) {
	switch {
	case errors.Is(err, domain.ErrPersistenceFailed):
		util.LoggerFromContext(r.Context()).Error("persist failed", "err", err)
		writeJSON(w, okStatus, warningResponse{
			Result:  payload,
			Warning: "state change applied but not persisted",
		})
	case errors.Is(err, domain.ErrInvalidTitle):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTitleNotFound):
		notFound(w, "title not found")
	case errors.Is(err, domain.ErrDuplicateTitle):
		writeError(w, http.StatusConflict, "title already exists")
	case errors.Is(err, domain.ErrAllCopiesAvailable):
		writeError(w, http.StatusConflict, "all copies are already available")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type warningResponse struct {
	Result  any    `json:"result"`
	Warning string `json:"warning"`
}

func parseSearchField(r *http.Request) (search.Field, error) {
	raw := r.URL.Query().Get("field")
	if raw == "" {
		return search.ByTitle, nil
	}
	return search.ParseField(raw)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCode(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCode(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "invalid credentials":
		return "AUTH_INVALID_CREDENTIALS"
	case message == "username already exists":
		return "AUTH_USERNAME_TAKEN"
	case message == "title not found":
		return "TITLE_NOT_FOUND"
	case message == "title already exists":
		return "TITLE_DUPLICATE"
	case message == "all copies are already available":
		return "TITLE_ALL_COPIES_AVAILABLE"
	case status == http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case status == http.StatusBadRequest:
		return "REQUEST_INVALID"
	case status == http.StatusNotFound:
		return "NOT_FOUND"
	case status == http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		return "SYSTEM_INTERNAL_ERROR"
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
