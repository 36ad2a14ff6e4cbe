package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"carrethree/internal/domain"
	"carrethree/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type cartTestServer struct {
	router http.Handler
	carts  *mockCartRepository
	user   *domain.User
}

func newCartTestServer(products ...*domain.Product) *cartTestServer {
	users := newMockUserRepository()
	user := &domain.User{ID: uuid.New(), Name: "Shopper", Email: "shopper@example.com"}
	users.users[user.Email] = user

	carts := newMockCartRepository()
	cartService := service.NewCartService(users, newMockProductRepository(products...), carts)

	r := chi.NewRouter()
	NewCartHandler(cartService, zap.NewNop()).RegisterRoutes(r, fakeAuth, nil)

	return &cartTestServer{router: r, carts: carts, user: user}
}

func (s *cartTestServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, CartResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", s.user.ID.String())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var cart CartResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	}
	return w, cart
}

func newProduct(name, price string, stock int) *domain.Product {
	return &domain.Product{
		ID:         uuid.New(),
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Category:   "Groceries",
		StockCount: stock,
	}
}

func TestCartRoutes_RequireAuthentication(t *testing.T) {
	s := newCartTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartRoutes_AddReturnsResolvedCart(t *testing.T) {
	milk := newProduct("Milk", "2.50", 10)
	s := newCartTestServer(milk)

	w, cart := s.do(t, http.MethodPost, "/api/cart/add", `{"product_id":"`+milk.ID.String()+`","quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, cart.Items, 1)
	assert.Equal(t, milk.ID, cart.Items[0].ProductID)
	assert.Equal(t, "Milk", cart.Items[0].Product.Name)
	assert.Equal(t, 2, cart.TotalItems)
	assert.True(t, decimal.RequireFromString("5").Equal(cart.TotalPrice))
	assert.Empty(t, cart.Unavailable)
}

func TestCartRoutes_AddRejectsBadInput(t *testing.T) {
	milk := newProduct("Milk", "2.50", 10)
	s := newCartTestServer(milk)

	w, _ := s.do(t, http.MethodPost, "/api/cart/add", `{"product_id":"`+milk.ID.String()+`","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/cart/add", `{"product_id":"nope","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/cart/add", `{"product_id":"`+uuid.NewString()+`","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartRoutes_UpdateAndRemove(t *testing.T) {
	bread := newProduct("Bread", "1.80", 10)
	milk := newProduct("Milk", "2.50", 10)
	s := newCartTestServer(bread, milk)
	s.carts.carts[s.user.ID] = []domain.CartLine{{ProductID: bread.ID, Quantity: 3}}

	w, cart := s.do(t, http.MethodPut, "/api/cart/update", `{"product_id":"`+bread.ID.String()+`","quantity":25}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, cart.Items[0].Quantity)
	assert.Equal(t, "limit_reached", string(cart.Items[0].State))

	w, _ = s.do(t, http.MethodPut, "/api/cart/update", `{"product_id":"`+milk.ID.String()+`","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, cart = s.do(t, http.MethodPut, "/api/cart/update", `{"product_id":"`+bread.ID.String()+`","quantity":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, cart.Items)

	w, _ = s.do(t, http.MethodDelete, "/api/cart/remove/"+bread.ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/cart/remove/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartRoutes_MergeSumsQuantities(t *testing.T) {
	milk := newProduct("Milk", "2.50", 10)
	bread := newProduct("Bread", "1.80", 10)
	s := newCartTestServer(milk, bread)
	s.carts.carts[s.user.ID] = []domain.CartLine{
		{ProductID: milk.ID, Quantity: 1},
		{ProductID: bread.ID, Quantity: 3},
	}

	w, cart := s.do(t, http.MethodPost, "/api/cart/merge", `{"cart_items":[{"product_id":"`+milk.ID.String()+`","quantity":2}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 3, cart.Items[1].Quantity)
}

func TestCartRoutes_MergeWithSameIDAppliesOnce(t *testing.T) {
	milk := newProduct("Milk", "2.50", 10)
	s := newCartTestServer(milk)
	s.carts.carts[s.user.ID] = []domain.CartLine{{ProductID: milk.ID, Quantity: 1}}

	body := `{"merge_id":"` + uuid.NewString() + `","cart_items":[{"product_id":"` + milk.ID.String() + `","quantity":2}]}`
	for i := 0; i < 2; i++ {
		w, cart := s.do(t, http.MethodPost, "/api/cart/merge", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 3, cart.Items[0].Quantity, "attempt %d", i+1)
	}
}

func TestCartRoutes_MergeRejectsMalformedPayloadWithoutWriting(t *testing.T) {
	milk := newProduct("Milk", "2.50", 10)
	s := newCartTestServer(milk)
	s.carts.carts[s.user.ID] = []domain.CartLine{{ProductID: milk.ID, Quantity: 1}}

	for _, body := range []string{
		`{"cart_items":{"product_id":"` + milk.ID.String() + `","quantity":2}}`,
		`{"cart_items":[{"product_id":"` + milk.ID.String() + `","quantity":-1}]}`,
		`{}`,
	} {
		w, _ := s.do(t, http.MethodPost, "/api/cart/merge", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	assert.Equal(t, []domain.CartLine{{ProductID: milk.ID, Quantity: 1}}, s.carts.carts[s.user.ID])
}

func TestCartRoutes_DanglingLinesAreReportedUnavailable(t *testing.T) {
	cheese := newProduct("Cheese", "10", 5)
	gone := uuid.New()
	s := newCartTestServer(cheese)
	s.carts.carts[s.user.ID] = []domain.CartLine{
		{ProductID: gone, Quantity: 1},
		{ProductID: cheese.ID, Quantity: 2},
	}

	w, cart := s.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []uuid.UUID{gone}, cart.Unavailable)
	assert.Nil(t, cart.Items[0].Product)
	assert.True(t, decimal.NewFromInt(20).Equal(cart.TotalPrice))
}

func TestCartRoutes_ClearAndUnknownUser(t *testing.T) {
	milk := newProduct("Milk", "2.50", 10)
	s := newCartTestServer(milk)
	s.carts.carts[s.user.ID] = []domain.CartLine{{ProductID: milk.ID, Quantity: 1}}

	w, cart := s.do(t, http.MethodDelete, "/api/cart/clear", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, cart.Items)

	s.user = &domain.User{ID: uuid.New()}
	w, _ = s.do(t, http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
