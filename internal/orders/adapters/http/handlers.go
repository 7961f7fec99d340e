package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dejobratic/libris/internal/accounts"
	"github.com/dejobratic/libris/internal/catalog"
	"github.com/dejobratic/libris/internal/orders/app"
	"github.com/dejobratic/libris/internal/orders/app/commands"
	"github.com/dejobratic/libris/internal/orders/ports"
)

// UserIDHeader carries the id of the acting account.
const UserIDHeader = "X-User-ID"

// Books is the catalog surface exposed over HTTP.
type Books interface {
	List(ctx context.Context) ([]catalog.Book, error)
	Get(ctx context.Context, id int64) (*catalog.Book, error)
	Add(ctx context.Context, input catalog.NewBook) (*catalog.Book, error)
	Update(ctx context.Context, id int64, update catalog.BookUpdate) (*catalog.Book, error)
	Delete(ctx context.Context, id int64) error
	Rate(ctx context.Context, id int64, value int) (*catalog.Book, error)
}

// Accounts is the account directory surface exposed over HTTP.
type Accounts interface {
	Get(ctx context.Context, id int64) (*accounts.Profile, error)
	List(ctx context.Context, role *accounts.Role) ([]accounts.Profile, error)
	Create(ctx context.Context, in accounts.CreateInput, creatorID int64) (*accounts.Profile, error)
	Block(ctx context.Context, id int64) error
	Unblock(ctx context.Context, id int64) error
	Authenticate(ctx context.Context, email, password string) (*accounts.User, error)
}

// Handler exposes HTTP endpoints for books, orders and accounts.
type Handler struct {
	service  *app.Service
	books    Books
	accounts Accounts
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service, books Books, accounts Accounts, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		books:    books,
		accounts: accounts,
		logger:   logger,
	}
}

// Register binds the handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/books", h.listBooks)
	mux.HandleFunc("POST /v1/books", h.staff(h.addBook))
	mux.HandleFunc("GET /v1/books/{id}", h.getBook)
	mux.HandleFunc("PATCH /v1/books/{id}", h.staff(h.updateBook))
	mux.HandleFunc("DELETE /v1/books/{id}", h.staff(h.deleteBook))
	mux.HandleFunc("POST /v1/books/{id}/rate", h.authenticated(h.rateBook))
	mux.HandleFunc("POST /v1/books/{id}/reserve", h.authenticated(h.reserveBook))

	mux.HandleFunc("GET /v1/orders", h.authenticated(h.listOrders))
	mux.HandleFunc("GET /v1/orders/{id}", h.authenticated(h.getOrder))
	mux.HandleFunc("POST /v1/orders/{id}/pickup", h.staff(h.pickupOrder))
	mux.HandleFunc("POST /v1/orders/{id}/return", h.staff(h.returnOrder))

	mux.HandleFunc("GET /v1/accounts", h.staff(h.listAccounts))
	mux.HandleFunc("POST /v1/accounts", h.authenticated(h.createAccount))
	mux.HandleFunc("POST /v1/accounts/{id}/block", h.admin(h.blockAccount))
	mux.HandleFunc("POST /v1/accounts/{id}/unblock", h.admin(h.unblockAccount))
	mux.HandleFunc("POST /v1/sessions", h.createSession)
}

type actorHandler func(w http.ResponseWriter, r *http.Request, actor *accounts.Profile)

// authenticated resolves the acting account from UserIDHeader. Only the role
// tag is trusted; there is no credential check on this path.
func (h *Handler) authenticated(next actorHandler) http.HandlerFunc {
	return h.withRoles(next)
}

func (h *Handler) staff(next actorHandler) http.HandlerFunc {
	return h.withRoles(next, accounts.RoleAdmin, accounts.RoleOperator)
}

func (h *Handler) admin(next actorHandler) http.HandlerFunc {
	return h.withRoles(next, accounts.RoleAdmin)
}

func (h *Handler) withRoles(next actorHandler, roles ...accounts.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, UserIDHeader+" header required")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid "+UserIDHeader+" header")
			return
		}

		actor, err := h.accounts.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, accounts.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, "unknown user")
				return
			}
			h.writeServiceError(w, r, err)
			return
		}
		if actor.Status == accounts.StatusBlocked {
			writeError(w, http.StatusForbidden, accounts.ErrBlocked.Error())
			return
		}
		if len(roles) > 0 && !hasRole(actor.Role, roles) {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}

		next(w, r, actor)
	}
}

func hasRole(role accounts.Role, allowed []accounts.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

func isStaff(p *accounts.Profile) bool {
	return p.Role == accounts.RoleAdmin || p.Role == accounts.RoleOperator
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodeJSON reads an optional JSON body. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps package sentinels to status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrBookNotFound),
		errors.Is(err, ports.ErrNotFound),
		errors.Is(err, accounts.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrBookUnavailable),
		errors.Is(err, accounts.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrInvalidBook),
		errors.Is(err, commands.ErrInvalidCommand),
		errors.Is(err, catalog.ErrInvalidRating),
		errors.Is(err, accounts.ErrInvalidAccount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrForbiddenRole),
		errors.Is(err, accounts.ErrBlocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, accounts.ErrCreatorNotFound),
		errors.Is(err, accounts.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
