package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/dejobratic/libris/internal/accounts"
	"github.com/dejobratic/libris/internal/catalog"
	"github.com/dejobratic/libris/internal/idempotency"
	"github.com/dejobratic/libris/internal/kafka"
	"github.com/dejobratic/libris/internal/orders/adapters/collection"
	httpadapter "github.com/dejobratic/libris/internal/orders/adapters/http"
	"github.com/dejobratic/libris/internal/orders/app"
	"github.com/dejobratic/libris/internal/orders/metrics"
	"github.com/dejobratic/libris/internal/storage"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type server struct {
	handler    http.Handler
	now        time.Time
	adminID    int64
	operatorID int64
	userID     int64
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStore()

	books := catalog.New(store, logger)
	_, err := books.Add(ctx, catalog.NewBook{Title: "Clean Code", Author: "Robert C. Martin", DailyPrice: 1200})
	require.NoError(t, err)

	dir := accounts.NewDirectory(store, logger)
	_, err = dir.EnsureAdmin(ctx, accounts.CreateInput{Email: "admin@lib.uz", Password: "admin123", FullName: "Admin"})
	require.NoError(t, err)
	operator, err := dir.Create(ctx, accounts.CreateInput{
		Email: "op@lib.uz", Password: "op123", FullName: "Operator", Role: accounts.RoleOperator,
	}, 1)
	require.NoError(t, err)
	user, err := dir.Create(ctx, accounts.CreateInput{
		Email: "reader@lib.uz", Password: "reader123", FullName: "Reader", Role: accounts.RoleUser,
	}, operator.ID)
	require.NoError(t, err)

	m, err := metrics.NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	s := &server{now: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC), adminID: 1, operatorID: operator.ID, userID: user.ID}
	svc := app.NewService(
		collection.NewRepository(store),
		books,
		dir,
		kafka.NewNoopEventBus(),
		idempotency.NewStore(store),
		logger,
		m,
		app.WithClock(func() time.Time { return s.now }),
	)

	mux := http.NewServeMux()
	httpadapter.NewHandler(svc, books, dir, logger).Register(mux)
	s.handler = mux
	return s
}

func (s *server) do(t *testing.T, method, path string, actor int64, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if actor > 0 {
		req.Header.Set(httpadapter.UserIDHeader, strconv.FormatInt(actor, 10))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type orderBody struct {
	Order struct {
		ID       int64  `json:"id"`
		UserID   int64  `json:"userId"`
		Status   string `json:"status"`
		EndDate  string `json:"endDate"`
		Rate     int64  `json:"fine"`
		LateFee  int64  `json:"lateFee"`
		DaysLate int64  `json:"daysLate"`
	} `json:"order"`
}

type outcomeBody struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason"`
}

func TestRentalFlow(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/books/1/reserve", s.userID, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	reserved := decode[orderBody](t, rec)
	require.Equal(t, "active", reserved.Order.Status)
	require.Equal(t, "2025-02-08", reserved.Order.EndDate)
	require.Equal(t, int64(1200), reserved.Order.Rate)

	rec = s.do(t, http.MethodPost, "/v1/books/1/reserve", s.userID, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/orders/1/pickup", s.operatorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, outcomeBody{Applied: true}, decode[outcomeBody](t, rec))

	rec = s.do(t, http.MethodPost, "/v1/orders/1/pickup", s.operatorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, outcomeBody{Reason: "wrong_status"}, decode[outcomeBody](t, rec))

	s.now = s.now.Add(12 * 24 * time.Hour)
	rec = s.do(t, http.MethodPost, "/v1/orders/1/return", s.adminID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode[outcomeBody](t, rec).Applied)

	rec = s.do(t, http.MethodGet, "/v1/orders/1", s.userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	returned := decode[orderBody](t, rec)
	require.Equal(t, "returned", returned.Order.Status)
	require.Equal(t, int64(5), returned.Order.DaysLate)
	require.Equal(t, int64(60), returned.Order.LateFee)

	rec = s.do(t, http.MethodGet, "/v1/books/1", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	book := decode[struct {
		Book catalog.Book `json:"book"`
	}](t, rec)
	require.True(t, book.Book.Available)
}

func TestTransitionOnUnknownOrder(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/orders/99/return", s.operatorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, outcomeBody{Reason: "not_found"}, decode[outcomeBody](t, rec))
}

func TestRoleChecks(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		actor  int64
		body   any
		want   int
	}{
		{"missing actor", http.MethodPost, "/v1/books/1/reserve", 0, nil, http.StatusUnauthorized},
		{"unknown actor", http.MethodPost, "/v1/books/1/reserve", 404, nil, http.StatusUnauthorized},
		{"user cannot pick up", http.MethodPost, "/v1/orders/1/pickup", s.userID, nil, http.StatusForbidden},
		{"user cannot add books", http.MethodPost, "/v1/books", s.userID, catalog.NewBook{Title: "x", Author: "y", DailyPrice: 1}, http.StatusForbidden},
		{"operator adds books", http.MethodPost, "/v1/books", s.operatorID, catalog.NewBook{Title: "x", Author: "y", DailyPrice: 1}, http.StatusCreated},
		{"operator cannot block", http.MethodPost, "/v1/accounts/3/block", s.operatorID, nil, http.StatusForbidden},
		{"user cannot list accounts", http.MethodGet, "/v1/accounts", s.userID, nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.actor, tt.body)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestBlockedUserCannotReserve(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/accounts/"+strconv.FormatInt(s.userID, 10)+"/block", s.adminID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/books/1/reserve", s.userID, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/sessions", 0, map[string]string{"email": "reader@lib.uz", "password": "reader123"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReserveIdempotencyKey(t *testing.T) {
	s := newServer(t)

	first := s.do(t, http.MethodPost, "/v1/books/1/reserve", s.userID, nil, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, first.Code)

	replay := s.do(t, http.MethodPost, "/v1/books/1/reserve", s.userID, nil, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, replay.Code)
	require.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	require.JSONEq(t, first.Body.String(), replay.Body.String())

	rec := s.do(t, http.MethodGet, "/v1/orders", s.operatorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Orders []json.RawMessage `json:"orders"`
	}](t, rec)
	require.Len(t, list.Orders, 1)
}

func TestListOrdersScopesUsersToOwnOrders(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/books/1/reserve", s.operatorID, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/orders", s.userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	own := decode[struct {
		Orders []json.RawMessage `json:"orders"`
	}](t, rec)
	require.Empty(t, own.Orders)

	rec = s.do(t, http.MethodGet, "/v1/orders/1", s.userID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/orders?status=bogus", s.operatorID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStaleReservationCancelledOnList(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/books/1/reserve", s.userID, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	s.now = s.now.Add(25 * time.Hour)
	rec = s.do(t, http.MethodGet, "/v1/orders?status=cancelled", s.operatorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Orders []json.RawMessage `json:"orders"`
	}](t, rec)
	require.Len(t, list.Orders, 1)

	rec = s.do(t, http.MethodPost, "/v1/books/1/reserve", s.userID, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestBooksAndAccounts(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/books/1/rate", s.userID, map[string]int{"value": 6})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/books/1/rate", s.userID, map[string]int{"value": 4})
	require.Equal(t, http.StatusOK, rec.Code)

	title := "Clean Code (2nd ed.)"
	rec = s.do(t, http.MethodPatch, "/v1/books/1", s.operatorID, catalog.BookUpdate{Title: &title})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/books/7", s.adminID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/accounts", s.operatorID, accounts.CreateInput{
		Email: "second@lib.uz", Password: "pw", FullName: "Second", Role: accounts.RoleOperator,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/accounts", s.operatorID, accounts.CreateInput{
		Email: "READER@lib.uz", Password: "pw", FullName: "Dup", Role: accounts.RoleUser,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/sessions", 0, map[string]string{"email": "admin@lib.uz", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/sessions", 0, map[string]string{"email": "admin@lib.uz", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code)
}
