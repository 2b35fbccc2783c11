package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycycle/internal/catalog"
)

// stockRecorder is a catalog fake that tracks reservation traffic.
type stockRecorder struct {
	product    *catalog.Product
	reserved   []int
	released   []int
	reserveErr error
}

func (s *stockRecorder) List(context.Context) ([]*catalog.Product, error) {
	return []*catalog.Product{s.product}, nil
}

func (s *stockRecorder) Get(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if id != s.product.ID {
		return nil, catalog.ErrNotFound
	}
	return s.product, nil
}

func (s *stockRecorder) Add(context.Context, catalog.AddProductInput) (*catalog.Product, error) {
	return nil, nil
}

func (s *stockRecorder) Update(context.Context, uuid.UUID, catalog.UpdateProductInput) (*catalog.Product, error) {
	return nil, nil
}

func (s *stockRecorder) Delete(context.Context, uuid.UUID) error { return nil }

func (s *stockRecorder) UpdateStock(context.Context, uuid.UUID, int) error { return nil }

func (s *stockRecorder) ReserveStock(_ context.Context, _ uuid.UUID, n int) (int, error) {
	if s.reserveErr != nil {
		return 0, s.reserveErr
	}
	s.reserved = append(s.reserved, n)
	return 0, nil
}

func (s *stockRecorder) ReleaseStock(_ context.Context, _ uuid.UUID, n int) error {
	s.released = append(s.released, n)
	return nil
}

func testProduct() *catalog.Product {
	return &catalog.Product{
		ID:       uuid.New(),
		Name:     "HDPE Regrind",
		SKU:      "HDPE-REG-01",
		Price:    decimal.RequireFromString("95.00"),
		Category: "regrind",
	}
}

func cartRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "test-session"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newTestHandler(rec *stockRecorder) (http.Handler, *Store) {
	store := NewStore()
	h := NewHandler(store, rec, slog.Default())
	return h.Routes(), store
}

func TestRemoveItemReleasesReservedStock(t *testing.T) {
	catalogFake := &stockRecorder{product: testProduct()}
	router, _ := newTestHandler(catalogFake)

	resp := cartRequest(t, router, http.MethodPost, "/items", map[string]any{
		"product_id": catalogFake.product.ID, "selected_color": "black", "quantity": 3,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, []int{3}, catalogFake.reserved)

	resp = cartRequest(t, router, http.MethodDelete, "/items", map[string]any{
		"product_id": catalogFake.product.ID, "selected_color": "black",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []int{3}, catalogFake.released)
}

func TestRemoveMissingItemReleasesNothing(t *testing.T) {
	catalogFake := &stockRecorder{product: testProduct()}
	router, _ := newTestHandler(catalogFake)

	resp := cartRequest(t, router, http.MethodDelete, "/items", map[string]any{
		"product_id": catalogFake.product.ID, "selected_color": "black",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, catalogFake.released)
}

func TestLoweringQuantityReleasesDifference(t *testing.T) {
	catalogFake := &stockRecorder{product: testProduct()}
	router, store := newTestHandler(catalogFake)

	cartRequest(t, router, http.MethodPost, "/items", map[string]any{
		"product_id": catalogFake.product.ID, "selected_color": "black", "quantity": 3,
	})

	resp := cartRequest(t, router, http.MethodPut, "/items", map[string]any{
		"product_id": catalogFake.product.ID, "selected_color": "black", "quantity": 1,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []int{2}, catalogFake.released)
	assert.Equal(t, 1, store.Get("test-session").Count())
}

func TestRaisingQuantityReservesDifference(t *testing.T) {
	catalogFake := &stockRecorder{product: testProduct()}
	router, store := newTestHandler(catalogFake)

	cartRequest(t, router, http.MethodPost, "/items", map[string]any{
		"product_id": catalogFake.product.ID, "selected_color": "black", "quantity": 3,
	})

	resp := cartRequest(t, router, http.MethodPut, "/items", map[string]any{
		"product_id": catalogFake.product.ID, "selected_color": "black", "quantity": 5,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []int{3, 2}, catalogFake.reserved)
	assert.Empty(t, catalogFake.released)
	assert.Equal(t, 5, store.Get("test-session").Count())
}

func TestRaisingQuantityFailsWhenStockShort(t *testing.T) {
	catalogFake := &stockRecorder{product: testProduct()}
	router, store := newTestHandler(catalogFake)

	cartRequest(t, router, http.MethodPost, "/items", map[string]any{
		"product_id": catalogFake.product.ID, "selected_color": "black", "quantity": 3,
	})

	catalogFake.reserveErr = catalog.ErrInsufficientStock
	resp := cartRequest(t, router, http.MethodPut, "/items", map[string]any{
		"product_id": catalogFake.product.ID, "selected_color": "black", "quantity": 10,
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, 3, store.Get("test-session").Count(), "failed raise must leave the cart untouched")
}

func TestUpdateMissingKeyTouchesNoStock(t *testing.T) {
	catalogFake := &stockRecorder{product: testProduct()}
	router, _ := newTestHandler(catalogFake)

	resp := cartRequest(t, router, http.MethodPut, "/items", map[string]any{
		"product_id": catalogFake.product.ID, "selected_color": "black", "quantity": 4,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, catalogFake.reserved)
	assert.Empty(t, catalogFake.released)
}
