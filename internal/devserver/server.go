// ABOUTME: HTTP API for local development: listings CRUD, login, and signup on a chi router.
// ABOUTME: Supports CORS for browser clients and fault injection for exercising client retries.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/2389-research/adboard/internal/models"
)

const (
	adsRoute        = "/api/Advertisements"
	defaultPageSize = 20
	maxPageSize     = 100
)

// Options configure a Server.
type Options struct {
	Secret         string
	TokenTTL       time.Duration
	AllowedOrigins []string
	// HashCost overrides the bcrypt cost. Zero uses the library default.
	HashCost int
	Logger   *slog.Logger
}

// Server is the in-memory board API.
type Server struct {
	store  *Store
	users  *Users
	tokens *Tokens
	opts   Options
	logger *slog.Logger

	faultMu     sync.Mutex
	faultsLeft  int
	faultStatus int
}

// New creates a server with no users and no listings.
func New(opts Options) (*Server, error) {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 2 * time.Hour
	}
	tokens, err := NewTokens(opts.Secret, opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	users := NewUsers()
	if opts.HashCost > 0 {
		users.cost = opts.HashCost
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  NewStore(),
		users:  users,
		tokens: tokens,
		opts:   opts,
		logger: logger,
	}, nil
}

// Store exposes the listing store for seeding.
func (s *Server) Store() *Store { return s.store }

// Users exposes the account list for seeding.
func (s *Server) Users() *Users { return s.users }

// FailNext makes the next n listing requests answer with status.
func (s *Server) FailNext(n, status int) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faultsLeft = n
	s.faultStatus = status
}

func (s *Server) takeFault() (int, bool) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if s.faultsLeft <= 0 {
		return 0, false
	}
	s.faultsLeft--
	return s.faultStatus, true
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.logRequests, middleware.Recoverer)

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:4200", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/signup", s.handleSignup)
	})

	r.Route(adsRoute, func(r chi.Router) {
		r.Use(s.injectFaults)
		r.Get("/", s.handleList)
		r.With(s.authenticate).Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.requireUUID)
			r.Get("/", s.handleGet)
			r.With(s.authenticate, s.requireOwner).Put("/", s.handleUpdate)
			r.With(s.authenticate, s.requireOwner).Delete("/", s.handleDelete)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("dev server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in models.Login
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name, role, err := s.users.Authenticate(in.Username, in.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	token, err := s.tokens.Issue(name, role)
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResult{Token: token, Role: role, UserName: name})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in models.Signup
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(in.UserName) == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	err := s.users.Add(in.UserName, in.Password, RoleUser)
	if errors.Is(err, ErrUserExists) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("account created", "user", in.UserName)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.store.List(f))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ad, _, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in models.AdCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		writeError(w, http.StatusBadRequest, "latitude and longitude go together")
		return
	}
	p := principalFrom(r.Context())
	ad := s.store.Create(in, p.Name)
	s.logger.Info("listing created", "id", ad.ID, "user", p.Name)
	writeJSON(w, http.StatusCreated, ad)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in models.AdUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ad, err := s.store.Update(chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Info("listing deleted", "id", id, "user", principalFrom(r.Context()).Name)
	w.WriteHeader(http.StatusNoContent)
}

// parseFilter reads paging and filter parameters. Geo applies only when
// lat, lng and radiusKm are all present.
func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Search:   q.Get("search"),
		Category: strings.TrimSpace(q.Get("category")),
		Location: strings.TrimSpace(q.Get("location")),
		Page:     1,
		PageSize: defaultPageSize,
	}

	var err error
	if v := q.Get("page"); v != "" {
		if f.Page, err = strconv.Atoi(v); err != nil || f.Page < 1 {
			return Filter{}, fmt.Errorf("invalid page %q", v)
		}
	}
	if v := q.Get("pageSize"); v != "" {
		if f.PageSize, err = strconv.Atoi(v); err != nil || f.PageSize < 1 {
			return Filter{}, fmt.Errorf("invalid pageSize %q", v)
		}
		f.PageSize = min(f.PageSize, maxPageSize)
	}

	lat, lng, radius := q.Get("lat"), q.Get("lng"), q.Get("radiusKm")
	if lat != "" && lng != "" && radius != "" {
		if f.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
			return Filter{}, fmt.Errorf("invalid lat %q", lat)
		}
		if f.Lng, err = strconv.ParseFloat(lng, 64); err != nil {
			return Filter{}, fmt.Errorf("invalid lng %q", lng)
		}
		if f.RadiusKm, err = strconv.ParseFloat(radius, 64); err != nil || f.RadiusKm < 0 {
			return Filter{}, fmt.Errorf("invalid radiusKm %q", radius)
		}
		f.HasGeo = true
	}
	return f, nil
}

type principalKey struct{}

func principalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			writeError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		p, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

// requireOwner lets the listing's creator or an admin through.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.store.Owner(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		p := principalFrom(r.Context())
		if !p.IsAdmin() && !strings.EqualFold(owner, p.Name) {
			writeError(w, http.StatusForbidden, "only the owner or an admin may change this listing")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireUUID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := uuid.Parse(chi.URLParam(r, "id")); err != nil {
			writeError(w, http.StatusNotFound, ErrNotFound.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, ok := s.takeFault(); ok {
			s.logger.Debug("injected fault", "status", status, "path", r.URL.Path)
			writeError(w, status, "injected fault")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
