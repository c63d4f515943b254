package cart

import (
	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	"github.com/Piotrek1987/ds-online-shop/pkg/types"
)

// LineDTO is a priced cart line as returned by the API.
type LineDTO struct {
	Item            catalog.ItemDTO `json:"item"`
	Quantity        int             `json:"quantity"`
	Subtotal        int64           `json:"subtotal"`
	SubtotalDisplay string          `json:"subtotal_display"`
}

// ViewDTO is the cart page payload.
type ViewDTO struct {
	Lines        []LineDTO `json:"lines"`
	Total        int64     `json:"total"`
	TotalDisplay string    `json:"total_display"`
	Message      string    `json:"message,omitempty"`
}

func FromView(view View, currency string) ViewDTO {
	lines := make([]LineDTO, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, LineDTO{
			Item:            catalog.FromItem(l.Item, currency),
			Quantity:        l.Quantity,
			Subtotal:        l.Subtotal,
			SubtotalDisplay: types.Money(l.Subtotal).Display(currency),
		})
	}
	return ViewDTO{
		Lines:        lines,
		Total:        view.Total,
		TotalDisplay: types.Money(view.Total).Display(currency),
	}
}
