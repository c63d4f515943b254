package catalog

import "github.com/Piotrek1987/ds-online-shop/pkg/types"

// ItemDTO is the API shape of an item.
type ItemDTO struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	PriceDisplay string `json:"price_display"`
	Category     string `json:"category"`
	Subcategory  string `json:"subcategory,omitempty"`
}

type GroupDTO struct {
	Subcategory string    `json:"subcategory"`
	Items       []ItemDTO `json:"items"`
}

// ViewDTO is a category page. When All is true the category has no
// subcategories and Items holds the whole category.
type ViewDTO struct {
	Category      string     `json:"category"`
	All           bool       `json:"all"`
	Groups        []GroupDTO `json:"groups,omitempty"`
	Uncategorized []ItemDTO  `json:"uncategorized,omitempty"`
	Items         []ItemDTO  `json:"items,omitempty"`
}

func FromItem(item Item, currency string) ItemDTO {
	dto := ItemDTO{
		ID:           item.ID,
		Name:         item.Name,
		Description:  item.Description,
		Price:        item.Price,
		PriceDisplay: types.Money(item.Price).Display(currency),
		Category:     item.Category,
	}
	if item.HasSubcategory() {
		dto.Subcategory = item.Subcategory
	}
	return dto
}

func FromItems(items []Item, currency string) []ItemDTO {
	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item, currency))
	}
	return out
}

func FromView(view View, currency string) ViewDTO {
	dto := ViewDTO{Category: view.Category}
	if !view.HasSubcategories() {
		dto.All = true
		dto.Items = FromItems(view.Uncategorized, currency)
		return dto
	}
	for _, g := range view.Groups {
		dto.Groups = append(dto.Groups, GroupDTO{Subcategory: g.Subcategory, Items: FromItems(g.Items, currency)})
	}
	dto.Uncategorized = FromItems(view.Uncategorized, currency)
	return dto
}
