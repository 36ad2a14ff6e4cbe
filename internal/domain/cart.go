package domain

import (
	"github.com/google/uuid"
)

// CartLine is one product reference in a user's cart. Lines are unique by ProductID.
type CartLine struct {
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
}

// FindLine returns the index of the line for productID, or -1
func FindLine(lines []CartLine, productID uuid.UUID) int {
	for i, line := range lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}
