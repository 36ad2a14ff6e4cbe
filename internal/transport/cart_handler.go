package transport

import (
	"errors"
	"net/http"

	"carrethree/internal/domain"
	"carrethree/internal/inventory"
	"carrethree/internal/middleware"
	"carrethree/internal/repository"
	"carrethree/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartLineRequest is a single product reference with a quantity of at least one
type CartLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
}

// UpdateCartRequest sets the absolute quantity of a line; zero or less removes it
type UpdateCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

// MergeCartRequest carries the guest cart to fold into the user's cart. A
// request repeating an already applied MergeID leaves the cart unchanged.
type MergeCartRequest struct {
	MergeID   uuid.UUID         `json:"merge_id"`
	CartItems []CartLineRequest `json:"cart_items" validate:"required,dive"`
}

// CartItemResponse is one resolved cart line. Product is null for dangling lines.
type CartItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Product   *domain.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	Available bool            `json:"available"`
	State     inventory.State `json:"state"`
}

// CartResponse is the full cart returned by every cart endpoint
type CartResponse struct {
	Items       []CartItemResponse `json:"items"`
	TotalItems  int                `json:"total_items"`
	TotalPrice  decimal.Decimal    `json:"total_price"`
	Unavailable []uuid.UUID        `json:"unavailable"`
}

func newCartResponse(view *service.CartView) CartResponse {
	items := make([]CartItemResponse, len(view.Items))
	for i, item := range view.Items {
		items[i] = CartItemResponse{
			ProductID: item.ProductID,
			Product:   item.Product,
			Quantity:  item.Quantity,
			Available: item.Available,
			State:     item.State,
		}
	}

	unavailable := view.Unavailable
	if unavailable == nil {
		unavailable = []uuid.UUID{}
	}

	return CartResponse{
		Items:       items,
		TotalItems:  view.TotalItems,
		TotalPrice:  view.TotalPrice,
		Unavailable: unavailable,
	}
}

// CartHandler exposes the authenticated user's cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers the cart routes. Every route requires authentication;
// rateLimit runs after auth so it is keyed per user and may be nil.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware, rateLimit func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		if rateLimit != nil {
			r.Use(rateLimit)
		}

		r.Get("/", h.GetCart)
		r.Post("/add", h.AddItem)
		r.Put("/update", h.UpdateItem)
		r.Delete("/remove/{productId}", h.RemoveItem)
		r.Post("/merge", h.MergeCart)
		r.Delete("/clear", h.ClearCart)
	})
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	view, err := h.cartService.Get(r.Context(), userID)
	h.respond(w, view, err)
}

// AddItem handles POST /api/cart/add
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req CartLineRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add to cart validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	view, err := h.cartService.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	h.respond(w, view, err)
}

// UpdateItem handles PUT /api/cart/update
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req UpdateCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Cart update validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	view, err := h.cartService.UpdateQuantity(r.Context(), userID, req.ProductID, req.Quantity)
	h.respond(w, view, err)
}

// RemoveItem handles DELETE /api/cart/remove/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	view, err := h.cartService.RemoveItem(r.Context(), userID, productID)
	h.respond(w, view, err)
}

// MergeCart handles POST /api/cart/merge
func (h *CartHandler) MergeCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req MergeCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Cart merge validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	lines := make([]domain.CartLine, len(req.CartItems))
	for i, item := range req.CartItems {
		lines[i] = domain.CartLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	view, err := h.cartService.Merge(r.Context(), userID, req.MergeID, lines)
	if err == nil {
		h.logger.Info("Guest cart merged",
			zap.String("user_id", userID.String()),
			zap.String("merge_id", req.MergeID.String()),
			zap.Int("guest_lines", len(lines)),
		)
	}
	h.respond(w, view, err)
}

// ClearCart handles DELETE /api/cart/clear
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	view, err := h.cartService.Clear(r.Context(), userID)
	h.respond(w, view, err)
}

func (h *CartHandler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
	}
	return userID, ok
}

func (h *CartHandler) respond(w http.ResponseWriter, view *service.CartView, err error) {
	switch {
	case err == nil:
		middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(view))
	case errors.Is(err, repository.ErrUserNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, service.ErrCartItemNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "item not found in cart")
	case errors.Is(err, service.ErrInvalidQuantity):
		middleware.RespondWithError(w, http.StatusBadRequest, "quantity must be at least 1")
	default:
		h.logger.Error("Cart operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "cart operation failed")
	}
}
