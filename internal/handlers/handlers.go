// Package handlers serves the JSON API over users, income and expenses.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"paycheck-tracker/internal/auth"
	"paycheck-tracker/internal/events"
	"paycheck-tracker/internal/log"
	"paycheck-tracker/internal/models"
	"paycheck-tracker/internal/storage"
	"paycheck-tracker/internal/validate"
)

// Context key type to avoid collisions.
type contextKey string

// UserContextKey is the context key for the authenticated user.
const UserContextKey contextKey = "user"

const (
	maxBodyBytes = 1 << 20
	pingTimeout  = 2 * time.Second
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db             *storage.DB
	events         events.Publisher
	logger         *log.Logger
	strictPayCycle bool
	now            func() time.Time
}

// Option customizes Handlers.
type Option func(*Handlers)

// WithStrictPayCycle rejects income whose last_pay is not before recent_pay.
func WithStrictPayCycle(strict bool) Option {
	return func(h *Handlers) { h.strictPayCycle = strict }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) { h.now = now }
}

// NewHandlers creates a new Handlers instance. A nil publisher drops events.
func NewHandlers(db *storage.DB, pub events.Publisher, logger *log.Logger, opts ...Option) *Handlers {
	if pub == nil {
		pub = events.Nop{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	h := &Handlers{db: db, events: pub, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the API routes, meant to be mounted under /api.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(log.Middleware(h.logger))

	r.Get("/", h.Hello)
	r.Get("/health", h.Health)
	r.Post("/users", h.CreateUser)

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", h.GetMe)
			r.Patch("/", h.UpdateMe)
			r.Put("/", h.UpdateMe)
			r.Delete("/", h.DeleteMe)
		})

		r.Route("/income", func(r chi.Router) {
			r.Get("/", h.GetIncome)
			r.Post("/", h.CreateIncome)
			r.Get("/{id}", h.GetIncomeByID)
			r.Patch("/{id}", h.UpdateIncome)
			r.Put("/{id}", h.UpdateIncome)
			r.Delete("/{id}", h.DeleteIncome)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
			r.Get("/{id}", h.GetExpense)
			r.Patch("/{id}", h.UpdateExpense)
			r.Put("/{id}", h.UpdateExpense)
			r.Delete("/{id}", h.DeleteExpense)
		})

		r.Get("/next-check", h.NextCheck)
	})
	return r
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware checks HTTP basic credentials against the stored bcrypt
// hash. Disabled users are refused with 403.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			h.unauthorized(w, r, "missing credentials")
			return
		}

		var hash *string
		user, err := h.db.GetUserByUsername(r.Context(), username)
		switch {
		case err == nil:
			hash = &user.HashedPassword
		case !errors.Is(err, storage.ErrNotFound):
			h.writeError(w, r, err)
			return
		}
		if !auth.CheckPasswordOrDummy(password, hash) {
			h.unauthorized(w, r, "bad credentials")
			return
		}
		if user.Disabled {
			log.FromContext(r.Context()).WithFields(log.NewFields().
				WithUser(user.ID).
				WithError(errInactive, log.ErrorTypeAuth)).
				DebugContext(r.Context(), "request refused")
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden", Detail: errInactive.Error()})
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var errInactive = errors.New("inactive user")

func (h *Handlers) unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	log.FromContext(r.Context()).DebugContext(r.Context(), "request refused",
		log.FieldError, reason, log.FieldErrorType, log.ErrorTypeAuth)
	w.Header().Set("WWW-Authenticate", `Basic realm="paycheck-tracker"`)
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Detail: "incorrect username or password"})
}

// Hello answers the API root.
func (h *Handlers) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello, World"})
}

type healthResponse struct {
	Status        string `json:"status"`
	Driver        string `json:"driver"`
	SchemaVersion uint   `json:"schema_version"`
}

// Health answers 200 once the database responds, 503 otherwise.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Driver: h.db.Driver(), SchemaVersion: h.db.SchemaVersion()}
	if err := h.db.Ping(ctx); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "database unreachable",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase)
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// hook sends field checks to the request logger.
func (h *Handlers) hook(r *http.Request) validate.Hook {
	return log.ValidationHook(log.FromContext(r.Context()))
}

// publish announces a change. Failures are logged and otherwise ignored.
func (h *Handlers) publish(r *http.Request, t events.Type, userID, entityID int64) {
	if err := h.events.Publish(r.Context(), events.New(t, userID, entityID)); err != nil {
		f := log.NewFields().
			WithOperation(log.OpPublish).
			WithUser(userID).
			WithEntity(entityID).
			WithError(err, log.ErrorTypeNetwork)
		log.FromContext(r.Context()).WithFields(f).
			WarnContext(r.Context(), "event not published", log.FieldEvent, string(t))
	}
}

var errBadRequest = errors.New("bad request")

func decodePatch(r *http.Request) (models.Patch, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body too large", errBadRequest)
	}
	p, err := models.DecodePatch(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return p, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, validate.NewFieldError("id", fmt.Errorf("%w: id must be a positive integer", validate.ErrFormat))
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
