// Package cart is the client-side cart engine. It keeps an anonymous shopper's
// cart in local storage, merges it into the server cart on login and routes
// every later mutation to the server, arbitrating quantities against stock.
package cart

import (
	"context"
	"errors"
	"fmt"

	"carrethree/internal/domain"
	"carrethree/internal/inventory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrNetwork           = errors.New("network failure")
	ErrDanglingReference = errors.New("product no longer exists")
)

const (
	// GuestCartKey is the local storage key holding the guest cart
	GuestCartKey = "carrethreeGuestCart"
	// GuestMergeKey holds the id the server uses to apply a guest cart merge once
	GuestMergeKey = "carrethreeGuestMerge"
)

// Identity is the signed-in user as reported by the identity provider
type Identity struct {
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsAdmin      bool      `json:"is_admin"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
}

// ProductView is the product shape all cart arithmetic runs on, whichever
// store the line came from
type ProductView struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image"`
	StockCount int             `json:"stock_count"`
}

// ViewOf normalizes a catalog product
func ViewOf(p *domain.Product) ProductView {
	return ProductView{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		Image:      p.ImageURL,
		StockCount: p.StockCount,
	}
}

// Line is a cart line resolved for display. When Available is false the product
// no longer resolves; Product then holds the last known snapshot, if any.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
	Product   ProductView
	Available bool
	State     inventory.State
}

// Catalog looks up products. A product that does not exist returns ok=false and no error.
type Catalog interface {
	Lookup(ctx context.Context, id uuid.UUID) (view ProductView, ok bool, err error)
}

// Backend is the server-side cart of an authenticated user. Every call returns
// the complete cart as stored on the server after the operation. Merge applies a
// given mergeID at most once.
type Backend interface {
	Cart(ctx context.Context, token string) ([]Line, error)
	Add(ctx context.Context, token string, productID uuid.UUID, quantity int) ([]Line, error)
	Update(ctx context.Context, token string, productID uuid.UUID, quantity int) ([]Line, error)
	Remove(ctx context.Context, token string, productID uuid.UUID) ([]Line, error)
	Merge(ctx context.Context, token string, mergeID uuid.UUID, lines []domain.CartLine) ([]Line, error)
	Clear(ctx context.Context, token string) ([]Line, error)
}

// Store is one of the two places a cart can live
type Store interface {
	Lines(ctx context.Context) ([]Line, error)
	Add(ctx context.Context, productID uuid.UUID, quantity int) ([]Line, error)
	SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) ([]Line, error)
	Remove(ctx context.Context, productID uuid.UUID) ([]Line, error)
	Clear(ctx context.Context) ([]Line, error)
}

// Totals is the folded view of a cart
type Totals struct {
	Items       int
	Price       decimal.Decimal
	Unavailable []uuid.UUID
}

// ComputeTotals sums quantity and quantity x price over the available lines.
// Lines whose product no longer resolves are skipped and listed in Unavailable.
func ComputeTotals(lines []Line) Totals {
	totals := Totals{Price: decimal.Zero, Unavailable: []uuid.UUID{}}
	for _, line := range lines {
		if !line.Available {
			totals.Unavailable = append(totals.Unavailable, line.ProductID)
			continue
		}
		totals.Items += line.Quantity
		totals.Price = totals.Price.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return totals
}

// Err reports lines that could not be resolved, wrapping ErrDanglingReference
func (t Totals) Err() error {
	if len(t.Unavailable) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d line(s) unavailable", ErrDanglingReference, len(t.Unavailable))
}

func findLine(lines []Line, productID uuid.UUID) int {
	for i, line := range lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}
