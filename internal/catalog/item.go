package catalog

import "strings"

// noSubcategory is the marker the catalog file uses for items that sit
// directly under their category.
const noSubcategory = "."

// Item is one product of the catalog. Items never change after a load.
type Item struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// HasSubcategory reports whether the item belongs to a named subcategory.
func (i Item) HasSubcategory() bool {
	sub := strings.TrimSpace(i.Subcategory)
	return sub != "" && sub != noSubcategory
}

// Group is the set of items sharing one subcategory inside a category.
type Group struct {
	Subcategory string
	Items       []Item
}

// View is a category broken down by subcategory. Groups keep the order in
// which their subcategory first appears in the catalog.
type View struct {
	Category      string
	Groups        []Group
	Uncategorized []Item
}

// HasSubcategories is false when every item of the category is uncategorized;
// callers then present the flat item list instead.
func (v View) HasSubcategories() bool {
	return len(v.Groups) > 0
}

// Items flattens the view back into catalog order within each group.
func (v View) Items() []Item {
	out := make([]Item, 0, len(v.Uncategorized))
	for _, g := range v.Groups {
		out = append(out, g.Items...)
	}
	return append(out, v.Uncategorized...)
}
