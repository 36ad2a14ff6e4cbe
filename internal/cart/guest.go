package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"carrethree/internal/domain"
	"carrethree/internal/inventory"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// guestLine is the persisted form of a guest cart line. Snapshot is the product
// as it looked when the line was last written.
type guestLine struct {
	ProductID uuid.UUID   `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Snapshot  ProductView `json:"snapshot"`
}

// GuestStore is the cart of an anonymous shopper, kept in local storage
type GuestStore struct {
	storage LocalStorage
	catalog Catalog
	logger  *zap.Logger
}

// NewGuestStore creates a new instance of GuestStore
func NewGuestStore(storage LocalStorage, catalog Catalog, logger *zap.Logger) *GuestStore {
	return &GuestStore{storage: storage, catalog: catalog, logger: logger}
}

func (g *GuestStore) load() ([]guestLine, error) {
	raw, err := g.storage.Get(GuestCartKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}
	if len(raw) == 0 {
		return []guestLine{}, nil
	}

	var lines []guestLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		// An unreadable cart is dropped rather than blocking the shopper
		g.logger.Warn("Discarding unreadable guest cart", zap.Error(err))
		return []guestLine{}, nil
	}
	return lines, nil
}

// save overwrites the stored cart. A changed cart is a new merge, so the merge
// id is dropped with it.
func (g *GuestStore) save(lines []guestLine) error {
	if err := g.storage.Delete(GuestMergeKey); err != nil {
		return fmt.Errorf("failed to reset guest merge id: %w", err)
	}
	if len(lines) == 0 {
		return g.storage.Delete(GuestCartKey)
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	if err := g.storage.Put(GuestCartKey, raw); err != nil {
		return fmt.Errorf("failed to write guest cart: %w", err)
	}
	return nil
}

func findGuestLine(lines []guestLine, productID uuid.UUID) int {
	for i, line := range lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// Pending returns the stored lines in the shape the server merge expects
func (g *GuestStore) Pending() ([]domain.CartLine, error) {
	lines, err := g.load()
	if err != nil {
		return nil, err
	}
	pending := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		pending = append(pending, domain.CartLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return pending, nil
}

// MergeID returns the id of the pending merge, creating one on first use. The
// same id is sent on every login until the cart changes or is cleared.
func (g *GuestStore) MergeID() (uuid.UUID, error) {
	raw, err := g.storage.Get(GuestMergeKey)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read guest merge id: %w", err)
	}
	if id, err := uuid.ParseBytes(raw); err == nil && id != uuid.Nil {
		return id, nil
	}

	id := uuid.New()
	if err := g.storage.Put(GuestMergeKey, []byte(id.String())); err != nil {
		return uuid.Nil, fmt.Errorf("failed to write guest merge id: %w", err)
	}
	return id, nil
}

// Lines resolves every stored line against the catalog. The live product wins;
// when the catalog cannot be reached the snapshot is shown instead.
func (g *GuestStore) Lines(ctx context.Context) ([]Line, error) {
	stored, err := g.load()
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(stored))
	for _, s := range stored {
		line := Line{ProductID: s.ProductID, Quantity: s.Quantity, Product: s.Snapshot, Available: true}

		view, ok, err := g.catalog.Lookup(ctx, s.ProductID)
		switch {
		case err != nil:
			g.logger.Warn("Catalog lookup failed, using snapshot",
				zap.String("product_id", s.ProductID.String()),
				zap.Error(err),
			)
		case !ok:
			line.Available = false
		default:
			line.Product = view
		}

		if line.Available {
			line.State = inventory.StateOf(line.Product.StockCount, line.Quantity)
		} else {
			line.State = inventory.OutOfStock
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (g *GuestStore) lookup(ctx context.Context, productID uuid.UUID) (ProductView, bool, error) {
	view, ok, err := g.catalog.Lookup(ctx, productID)
	if err != nil {
		return ProductView{}, false, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return view, ok, nil
}

// Add adds quantity units clamped to the stock not already in the cart. When
// nothing fits the stored cart is left as is.
func (g *GuestStore) Add(ctx context.Context, productID uuid.UUID, quantity int) ([]Line, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	view, ok, err := g.lookup(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	}

	stored, err := g.load()
	if err != nil {
		return nil, err
	}

	idx := findGuestLine(stored, productID)
	inCart := 0
	if idx >= 0 {
		inCart = stored[idx].Quantity
	}

	clamped := inventory.ClampAdd(quantity, view.StockCount, inCart)
	if clamped <= 0 {
		return g.Lines(ctx)
	}

	if idx >= 0 {
		stored[idx].Quantity += clamped
		stored[idx].Snapshot = view
	} else {
		stored = append(stored, guestLine{ProductID: productID, Quantity: clamped, Snapshot: view})
	}

	if err := g.save(stored); err != nil {
		return nil, err
	}
	return g.Lines(ctx)
}

// SetQuantity sets the quantity of a line, removing it when quantity <= 0 or
// when the product has no stock left
func (g *GuestStore) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) ([]Line, error) {
	if quantity <= 0 {
		return g.Remove(ctx, productID)
	}

	stored, err := g.load()
	if err != nil {
		return nil, err
	}
	idx := findGuestLine(stored, productID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: product %s is not in the cart", ErrNotFound, productID)
	}

	view, ok, err := g.lookup(ctx, productID)
	if err != nil {
		return nil, err
	}

	stock := 0
	if ok {
		stock = view.StockCount
		stored[idx].Snapshot = view
	}

	clamped := inventory.ClampSet(quantity, stock)
	if clamped <= 0 {
		return g.Remove(ctx, productID)
	}

	stored[idx].Quantity = clamped
	if err := g.save(stored); err != nil {
		return nil, err
	}
	return g.Lines(ctx)
}

// Remove deletes the line for productID, if any
func (g *GuestStore) Remove(ctx context.Context, productID uuid.UUID) ([]Line, error) {
	stored, err := g.load()
	if err != nil {
		return nil, err
	}

	idx := findGuestLine(stored, productID)
	if idx < 0 {
		return g.Lines(ctx)
	}

	stored = append(stored[:idx], stored[idx+1:]...)
	if err := g.save(stored); err != nil {
		return nil, err
	}
	return g.Lines(ctx)
}

// Clear drops the guest cart and its merge id
func (g *GuestStore) Clear(ctx context.Context) ([]Line, error) {
	for _, key := range []string{GuestCartKey, GuestMergeKey} {
		if err := g.storage.Delete(key); err != nil {
			return nil, fmt.Errorf("failed to clear guest cart: %w", err)
		}
	}
	return []Line{}, nil
}

