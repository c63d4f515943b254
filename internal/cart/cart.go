package cart

import (
	"strings"

	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
)

// Action is the quantity change requested from the cart page.
type Action string

const (
	ActionIncrease Action = "increase"
	ActionDecrease Action = "decrease"
)

// ParseAction normalizes the raw action name.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionIncrease:
		return ActionIncrease, nil
	case ActionDecrease:
		return ActionDecrease, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "action must be increase or decrease").
			WithDetails(map[string]any{"action": raw})
	}
}

// Entry is one cart position. Quantity is always at least one; entries that
// would drop to zero are removed instead.
type Entry struct {
	ItemID   int `json:"item_id"`
	Quantity int `json:"quantity"`
}

// Cart maps item ids to quantities, keeping the order in which items were
// first added. The zero value is an empty cart.
type Cart struct {
	entries []Entry
}

// New rebuilds a cart from stored entries, dropping non-positive quantities
// and folding duplicate ids.
func New(entries []Entry) *Cart {
	c := &Cart{}
	for _, e := range entries {
		if e.Quantity <= 0 {
			continue
		}
		if i := c.find(e.ItemID); i >= 0 {
			c.entries[i].Quantity += e.Quantity
			continue
		}
		c.entries = append(c.entries, e)
	}
	return c
}

func (c *Cart) find(itemID int) int {
	for i, e := range c.entries {
		if e.ItemID == itemID {
			return i
		}
	}
	return -1
}

// Add increments the quantity of itemID, creating the entry when absent.
func (c *Cart) Add(itemID int) {
	if i := c.find(itemID); i >= 0 {
		c.entries[i].Quantity++
		return
	}
	c.entries = append(c.entries, Entry{ItemID: itemID, Quantity: 1})
}

// Remove decrements itemID and deletes the entry once it reaches zero. It
// reports false, leaving the cart untouched, when the item is not in the cart.
func (c *Cart) Remove(itemID int) bool {
	i := c.find(itemID)
	if i < 0 {
		return false
	}
	c.entries[i].Quantity--
	if c.entries[i].Quantity <= 0 {
		c.entries = append(c.entries[:i], c.entries[i+1:]...)
	}
	return true
}

// Apply runs action against an existing entry. Increase never creates an
// entry. It reports whether the item was in the cart.
func (c *Cart) Apply(itemID int, action Action) (bool, error) {
	switch action {
	case ActionIncrease:
		i := c.find(itemID)
		if i < 0 {
			return false, nil
		}
		c.entries[i].Quantity++
		return true, nil
	case ActionDecrease:
		return c.Remove(itemID), nil
	default:
		_, err := ParseAction(string(action))
		return false, err
	}
}

func (c *Cart) Clear() {
	c.entries = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.entries) == 0
}

// Quantity returns 0 for items not in the cart.
func (c *Cart) Quantity(itemID int) int {
	if i := c.find(itemID); i >= 0 {
		return c.entries[i].Quantity
	}
	return 0
}

// Entries returns a copy of the cart contents in insertion order.
func (c *Cart) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Line is a cart entry resolved against the catalog.
type Line struct {
	Item     catalog.Item
	Quantity int
	Subtotal int64
}

// View is the priced cart.
type View struct {
	Lines []Line
	Total int64
}

// LookupFunc resolves an item id against the current catalog.
type LookupFunc func(id int) (catalog.Item, bool)

// Materialize prices the cart with the catalog as it is now. Entries whose
// item no longer exists are skipped.
func (c *Cart) Materialize(lookup LookupFunc) View {
	view := View{Lines: make([]Line, 0, len(c.entries))}
	for _, e := range c.entries {
		item, ok := lookup(e.ItemID)
		if !ok {
			continue
		}
		subtotal := item.Price * int64(e.Quantity)
		view.Lines = append(view.Lines, Line{Item: item, Quantity: e.Quantity, Subtotal: subtotal})
		view.Total += subtotal
	}
	return view
}
