package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

// Store holds the loaded catalog in memory. Reads share a lock; Reload swaps
// the whole snapshot at once so readers never observe a partial catalog.
type Store struct {
	source Source
	logg   *logger.Logger

	mu    sync.RWMutex
	items []Item
	byID  map[int]int
}

// NewStore loads the catalog from source and validates it.
func NewStore(ctx context.Context, source Source, logg *logger.Logger) (*Store, error) {
	if source == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	s := &Store{source: source, logg: logg}
	if _, err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the source. On failure the previous catalog stays in place.
// It returns the number of items now loaded.
func (s *Store) Reload(ctx context.Context) (int, error) {
	items, err := s.source.Load(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	byID, err := index(items)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.items = items
	s.byID = byID
	s.mu.Unlock()

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "items", len(items)), "catalog.loaded")
	}
	return len(items), nil
}

func index(items []Item) (map[int]int, error) {
	byID := make(map[int]int, len(items))
	for i, item := range items {
		if _, dup := byID[item.ID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate item id").
				WithDetails(map[string]any{"id": item.ID})
		}
		if strings.TrimSpace(item.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required").
				WithDetails(map[string]any{"id": item.ID})
		}
		if item.Price < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must be non-negative").
				WithDetails(map[string]any{"id": item.ID, "price": item.Price})
		}
		byID[item.ID] = i
	}
	return byID, nil
}

// Lookup finds an item by id.
func (s *Store) Lookup(id int) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Item{}, false
	}
	return s.items[idx], true
}

// Get is Lookup with a NOT_FOUND error for the API layer.
func (s *Store) Get(id int) (Item, error) {
	item, ok := s.Lookup(id)
	if !ok {
		return Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return item, nil
}

// Len returns the number of loaded items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Categories lists distinct category names in order of first appearance.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, item := range s.items {
		key := strings.ToLower(item.Category)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item.Category)
	}
	return out
}

// FilterBy returns the items of category, narrowed to subcategory when it is
// non-empty. Matching is case-insensitive. An empty result is NOT_FOUND.
func (s *Store) FilterBy(category, subcategory string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, item := range s.items {
		if !strings.EqualFold(item.Category, category) {
			continue
		}
		if subcategory != "" && !strings.EqualFold(item.Subcategory, subcategory) {
			continue
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		if subcategory != "" {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subcategory not found")
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no items found in this category")
	}
	return out, nil
}

// CategoryView groups the items of category by subcategory. Groups are keyed
// by the subcategory as written in the data.
func (s *Store) CategoryView(category string) (View, error) {
	items, err := s.FilterBy(category, "")
	if err != nil {
		return View{}, err
	}

	view := View{Category: category}
	groupIdx := make(map[string]int)
	for _, item := range items {
		if !item.HasSubcategory() {
			view.Uncategorized = append(view.Uncategorized, item)
			continue
		}
		idx, ok := groupIdx[item.Subcategory]
		if !ok {
			idx = len(view.Groups)
			groupIdx[item.Subcategory] = idx
			view.Groups = append(view.Groups, Group{Subcategory: item.Subcategory})
		}
		view.Groups[idx].Items = append(view.Groups[idx].Items, item)
	}
	return view, nil
}
