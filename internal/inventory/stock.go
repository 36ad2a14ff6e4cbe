// Package inventory holds the stock arithmetic shared by the cart backend and
// the client-side cart engine. Every function is pure.
package inventory

// State is the display state of a product relative to a cart
type State string

const (
	Available    State = "available"
	LimitReached State = "limit_reached"
	OutOfStock   State = "out_of_stock"
)

// AvailableToAdd returns how many more units fit in the cart, floored at zero
func AvailableToAdd(stockCount, inCart int) int {
	if n := stockCount - inCart; n > 0 {
		return n
	}
	return 0
}

// ClampAdd limits a requested add to what stock still allows. A result <= 0 means no-op.
func ClampAdd(requested, stockCount, inCart int) int {
	return min(requested, AvailableToAdd(stockCount, inCart))
}

// ClampSet limits an absolute quantity to the stock count. Negative stock counts as zero.
func ClampSet(requested, stockCount int) int {
	return min(requested, max(stockCount, 0))
}

// StateOf derives the display state; OutOfStock wins over LimitReached
func StateOf(stockCount, inCart int) State {
	switch {
	case stockCount <= 0:
		return OutOfStock
	case inCart >= stockCount:
		return LimitReached
	default:
		return Available
	}
}

// CanAdd reports whether add controls should be enabled
func (s State) CanAdd() bool {
	return s == Available
}
