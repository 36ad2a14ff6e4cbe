package cart

import (
	"context"
	"fmt"

	"carrethree/internal/domain"
	"carrethree/internal/inventory"

	"github.com/google/uuid"
)

// RemoteStore is the server cart of an authenticated user. It remembers the
// last cart the server returned; that copy is only ever replaced by a server reply.
type RemoteStore struct {
	backend Backend
	catalog Catalog
	token   string
	lines   []Line
}

// NewRemoteStore creates a new instance of RemoteStore acting for token
func NewRemoteStore(backend Backend, catalog Catalog, token string) *RemoteStore {
	return &RemoteStore{backend: backend, catalog: catalog, token: token, lines: []Line{}}
}

// Cached returns the last adopted server cart without a round trip
func (r *RemoteStore) Cached() []Line {
	return append([]Line{}, r.lines...)
}

func (r *RemoteStore) adopt(lines []Line, err error) ([]Line, error) {
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []Line{}
	}
	r.lines = lines
	return r.Cached(), nil
}

// Lines fetches the server cart
func (r *RemoteStore) Lines(ctx context.Context) ([]Line, error) {
	return r.adopt(r.backend.Cart(ctx, r.token))
}

// Add clamps quantity against the catalog and the cached cart, then asks the
// server, which clamps again. Nothing is sent when no stock is left.
func (r *RemoteStore) Add(ctx context.Context, productID uuid.UUID, quantity int) ([]Line, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	view, ok, err := r.catalog.Lookup(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	}

	inCart := 0
	if idx := findLine(r.lines, productID); idx >= 0 {
		inCart = r.lines[idx].Quantity
	}

	clamped := inventory.ClampAdd(quantity, view.StockCount, inCart)
	if clamped <= 0 {
		return r.Cached(), nil
	}
	return r.adopt(r.backend.Add(ctx, r.token, productID, clamped))
}

// SetQuantity sets the quantity of a line; quantity <= 0 removes it
func (r *RemoteStore) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) ([]Line, error) {
	if quantity <= 0 {
		return r.Remove(ctx, productID)
	}
	return r.adopt(r.backend.Update(ctx, r.token, productID, quantity))
}

// Remove deletes the line for productID
func (r *RemoteStore) Remove(ctx context.Context, productID uuid.UUID) ([]Line, error) {
	return r.adopt(r.backend.Remove(ctx, r.token, productID))
}

// Clear empties the server cart
func (r *RemoteStore) Clear(ctx context.Context) ([]Line, error) {
	return r.adopt(r.backend.Clear(ctx, r.token))
}

// Merge folds guest lines into the server cart and adopts the result
func (r *RemoteStore) Merge(ctx context.Context, mergeID uuid.UUID, lines []domain.CartLine) ([]Line, error) {
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: merge quantity must be at least 1", ErrValidation)
		}
	}
	return r.adopt(r.backend.Merge(ctx, r.token, mergeID, lines))
}
