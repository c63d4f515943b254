package orders

import (
	"context"
	"strings"
	"time"

	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	"github.com/google/uuid"
)

const orderIDLength = 8

// Line is an item snapshot taken at checkout. Prices are never recomputed.
type Line struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Quantity    int    `json:"quantity"`
	Subtotal    int64  `json:"subtotal"`
}

// NewLine snapshots item with the given quantity.
func NewLine(item catalog.Item, quantity int) Line {
	return Line{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		Category:    item.Category,
		Subcategory: item.Subcategory,
		Quantity:    quantity,
		Subtotal:    item.Price * int64(quantity),
	}
}

// Order is one recorded purchase.
type Order struct {
	OrderID  string    `json:"order_id"`
	User     string    `json:"user"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Address  string    `json:"address"`
	DateTime time.Time `json:"datetime"`
	Items    []Line    `json:"items"`
	Total    int64     `json:"total"`
}

// NewID returns a short random order token.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:orderIDLength]
}

// SumLines returns the order total for lines.
func SumLines(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal
	}
	return total
}

// Log is the append-only order record stream. There is no update or delete.
type Log interface {
	Append(ctx context.Context, order Order) error
}
