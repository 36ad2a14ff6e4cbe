package cart

import (
	"context"
	"fmt"

	"carrethree/internal/domain"
	"carrethree/internal/inventory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeCatalog struct {
	products map[uuid.UUID]ProductView
	err      error
}

func newFakeCatalog(products ...ProductView) *fakeCatalog {
	c := &fakeCatalog{products: make(map[uuid.UUID]ProductView)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) Lookup(ctx context.Context, id uuid.UUID) (ProductView, bool, error) {
	if c.err != nil {
		return ProductView{}, false, c.err
	}
	p, ok := c.products[id]
	return p, ok, nil
}

// fakeBackend behaves like the cart endpoints of the API server
type fakeBackend struct {
	catalog   *fakeCatalog
	carts     map[string][]domain.CartLine
	merged    map[uuid.UUID]bool
	calls     int
	failMerge error
	failAll   error

	// loseMergeReply makes the next merge commit and then report it
	loseMergeReply error
	// afterClear is what another device put in the cart right after a clear
	afterClear []domain.CartLine
	// mergeStarted and releaseMerge, when set, hold a merge until released
	mergeStarted chan struct{}
	releaseMerge chan struct{}
}

func newFakeBackend(catalog *fakeCatalog) *fakeBackend {
	return &fakeBackend{
		catalog: catalog,
		carts:   make(map[string][]domain.CartLine),
		merged:  make(map[uuid.UUID]bool),
	}
}

func (b *fakeBackend) resolve(token string) []Line {
	lines := []Line{}
	for _, stored := range b.carts[token] {
		line := Line{ProductID: stored.ProductID, Quantity: stored.Quantity, State: inventory.OutOfStock}
		if p, ok := b.catalog.products[stored.ProductID]; ok {
			line.Product = p
			line.Available = true
			line.State = inventory.StateOf(p.StockCount, stored.Quantity)
		}
		lines = append(lines, line)
	}
	return lines
}

func (b *fakeBackend) begin() error {
	b.calls++
	return b.failAll
}

func (b *fakeBackend) Cart(ctx context.Context, token string) ([]Line, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}
	return b.resolve(token), nil
}

func (b *fakeBackend) Add(ctx context.Context, token string, productID uuid.UUID, quantity int) ([]Line, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}
	p, ok := b.catalog.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product", ErrNotFound)
	}
	lines := b.carts[token]
	idx := domain.FindLine(lines, productID)
	inCart := 0
	if idx >= 0 {
		inCart = lines[idx].Quantity
	}
	add := inventory.ClampAdd(quantity, p.StockCount, inCart)
	if add > 0 {
		if idx >= 0 {
			lines[idx].Quantity += add
		} else {
			lines = append(lines, domain.CartLine{ProductID: productID, Quantity: add})
		}
		b.carts[token] = lines
	}
	return b.resolve(token), nil
}

func (b *fakeBackend) Update(ctx context.Context, token string, productID uuid.UUID, quantity int) ([]Line, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}
	lines := b.carts[token]
	idx := domain.FindLine(lines, productID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: cart item", ErrNotFound)
	}
	stock := 0
	if p, ok := b.catalog.products[productID]; ok {
		stock = p.StockCount
	}
	if clamped := inventory.ClampSet(quantity, stock); clamped > 0 {
		lines[idx].Quantity = clamped
	} else {
		lines = append(lines[:idx], lines[idx+1:]...)
	}
	b.carts[token] = lines
	return b.resolve(token), nil
}

func (b *fakeBackend) Remove(ctx context.Context, token string, productID uuid.UUID) ([]Line, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}
	lines := b.carts[token]
	if idx := domain.FindLine(lines, productID); idx >= 0 {
		b.carts[token] = append(lines[:idx], lines[idx+1:]...)
	}
	return b.resolve(token), nil
}

func (b *fakeBackend) Merge(ctx context.Context, token string, mergeID uuid.UUID, incoming []domain.CartLine) ([]Line, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}
	if b.mergeStarted != nil {
		close(b.mergeStarted)
		<-b.releaseMerge
	}
	if b.failMerge != nil {
		return nil, b.failMerge
	}
	if b.merged[mergeID] {
		return b.resolve(token), nil
	}
	b.merged[mergeID] = true

	lines := b.carts[token]
	for _, in := range incoming {
		if idx := domain.FindLine(lines, in.ProductID); idx >= 0 {
			lines[idx].Quantity += in.Quantity
		} else {
			lines = append(lines, in)
		}
	}
	b.carts[token] = lines

	if err := b.loseMergeReply; err != nil {
		b.loseMergeReply = nil
		return nil, err
	}
	return b.resolve(token), nil
}

func (b *fakeBackend) Clear(ctx context.Context, token string) ([]Line, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}
	delete(b.carts, token)
	if len(b.afterClear) > 0 {
		b.carts[token] = b.afterClear
	}
	return b.resolve(token), nil
}

// countingStorage records writes to the wrapped storage
type countingStorage struct {
	*MemoryStorage
	writes int
}

func newCountingStorage() *countingStorage {
	return &countingStorage{MemoryStorage: NewMemoryStorage()}
}

func (s *countingStorage) Put(key string, value []byte) error {
	s.writes++
	return s.MemoryStorage.Put(key, value)
}

func (s *countingStorage) Delete(key string) error {
	s.writes++
	return s.MemoryStorage.Delete(key)
}

func testView(name, price string, stock int) ProductView {
	return ProductView{
		ID:         uuid.New(),
		Name:       name,
		Price:      decimal.RequireFromString(price),
		StockCount: stock,
	}
}

func quantityOf(lines []Line, productID uuid.UUID) int {
	if idx := findLine(lines, productID); idx >= 0 {
		return lines[idx].Quantity
	}
	return 0
}
