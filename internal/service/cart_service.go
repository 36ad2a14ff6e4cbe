package service

import (
	"context"
	"errors"
	"fmt"

	"carrethree/internal/domain"
	"carrethree/internal/inventory"
	"carrethree/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
)

// CartItem is a cart line resolved against the catalog. Product is nil when the
// referenced product no longer exists.
type CartItem struct {
	ProductID uuid.UUID
	Product   *domain.Product
	Quantity  int
	Available bool
	State     inventory.State
}

// CartView is the full resolved cart returned by every cart operation
type CartView struct {
	Items       []CartItem
	TotalItems  int
	TotalPrice  decimal.Decimal
	Unavailable []uuid.UUID
}

// CartService defines the server-side cart operations for an authenticated user
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartView, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartView, error)
	Merge(ctx context.Context, userID, mergeID uuid.UUID, items []domain.CartLine) (*CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartView, error)
}

type cartService struct {
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
) CartService {
	return &cartService{
		userRepo:    userRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
	}
}

// Get returns the user's current cart
func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	lines, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, lines)
}

// AddItem adds quantity units of a product, clamped to the stock left over by the
// line already in the cart. When nothing fits the cart is returned unchanged.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	lines, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	idx := domain.FindLine(lines, productID)
	inCart := 0
	if idx >= 0 {
		inCart = lines[idx].Quantity
	}

	add := inventory.ClampAdd(quantity, product.StockCount, inCart)
	if add <= 0 {
		return s.resolve(ctx, lines)
	}

	if idx >= 0 {
		lines[idx].Quantity += add
	} else {
		lines = append(lines, domain.CartLine{ProductID: productID, Quantity: add})
	}

	return s.save(ctx, userID, lines)
}

// UpdateQuantity sets the absolute quantity of a line. A quantity <= 0 removes the
// line. Quantities above stock are clamped; a line whose product is out of stock
// or gone is removed.
func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartView, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	lines, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := domain.FindLine(lines, productID)
	if idx < 0 {
		return nil, ErrCartItemNotFound
	}

	stock := 0
	product, err := s.productRepo.FindByID(ctx, productID)
	switch {
	case err == nil:
		stock = product.StockCount
	case !errors.Is(err, repository.ErrProductNotFound):
		return nil, err
	}

	if clamped := inventory.ClampSet(quantity, stock); clamped > 0 {
		lines[idx].Quantity = clamped
	} else {
		lines = append(lines[:idx], lines[idx+1:]...)
	}

	return s.save(ctx, userID, lines)
}

// RemoveItem deletes the line for productID. Removing an absent line is a no-op.
func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartView, error) {
	lines, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := domain.FindLine(lines, productID)
	if idx < 0 {
		return s.resolve(ctx, lines)
	}

	return s.save(ctx, userID, append(lines[:idx], lines[idx+1:]...))
}

// Merge folds guest lines into the persisted cart. Quantities of products present
// on both sides are summed; guest-only lines are appended in order. The whole
// payload is validated before anything is written. A non-nil mergeID is applied
// at most once per user; repeating it returns the current cart unchanged.
func (s *cartService) Merge(ctx context.Context, userID, mergeID uuid.UUID, items []domain.CartLine) (*CartView, error) {
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	lines, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if idx := domain.FindLine(lines, item.ProductID); idx >= 0 {
			lines[idx].Quantity += item.Quantity
			continue
		}
		lines = append(lines, item)
	}

	if mergeID == uuid.Nil {
		return s.save(ctx, userID, lines)
	}

	products, err := s.products(ctx, lines)
	if err != nil {
		return nil, err
	}

	applied, err := s.cartRepo.ApplyMerge(ctx, userID, mergeID, lines)
	if err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	if !applied {
		return s.Get(ctx, userID)
	}
	return buildView(lines, products), nil
}

// Clear empties the user's cart
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.cartRepo.Clear(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	return s.resolve(ctx, nil)
}

func (s *cartService) load(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	lines, err := s.cartRepo.Lines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return lines, nil
}

// save resolves lines before writing them, so a reply is never lost after the
// cart has been committed
func (s *cartService) save(ctx context.Context, userID uuid.UUID, lines []domain.CartLine) (*CartView, error) {
	products, err := s.products(ctx, lines)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.Replace(ctx, userID, lines); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return buildView(lines, products), nil
}

func (s *cartService) resolve(ctx context.Context, lines []domain.CartLine) (*CartView, error) {
	products, err := s.products(ctx, lines)
	if err != nil {
		return nil, err
	}
	return buildView(lines, products), nil
}

func (s *cartService) products(ctx context.Context, lines []domain.CartLine) (map[uuid.UUID]*domain.Product, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart products: %w", err)
	}
	return products, nil
}

// buildView joins lines with the catalog. Dangling lines are kept in Items with a
// nil Product, listed in Unavailable and left out of the totals.
func buildView(lines []domain.CartLine, products map[uuid.UUID]*domain.Product) *CartView {
	view := &CartView{
		Items:       make([]CartItem, 0, len(lines)),
		TotalPrice:  decimal.Zero,
		Unavailable: []uuid.UUID{},
	}

	for _, line := range lines {
		item := CartItem{ProductID: line.ProductID, Quantity: line.Quantity}

		product, ok := products[line.ProductID]
		if !ok {
			item.State = inventory.OutOfStock
			view.Items = append(view.Items, item)
			view.Unavailable = append(view.Unavailable, line.ProductID)
			continue
		}

		item.Product = product
		item.Available = true
		item.State = inventory.StateOf(product.StockCount, line.Quantity)
		view.Items = append(view.Items, item)

		view.TotalItems += line.Quantity
		view.TotalPrice = view.TotalPrice.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return view
}
