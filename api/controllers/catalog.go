package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Piotrek1987/ds-online-shop/api/responses"
	"github.com/Piotrek1987/ds-online-shop/api/validators"
	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

const maxCategoryParamLen = 100

type catalogReader interface {
	Get(id int) (catalog.Item, error)
	Categories() []string
	FilterBy(category, subcategory string) ([]catalog.Item, error)
	CategoryView(category string) (catalog.View, error)
}

type catalogReloader interface {
	Reload(ctx context.Context) (int, error)
}

type categoryItemsResponse struct {
	Category    string            `json:"category"`
	Subcategory string            `json:"subcategory,omitempty"`
	Items       []catalog.ItemDTO `json:"items"`
}

// CatalogCategories lists the category names shown on the home page.
func CatalogCategories(store catalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		categories := store.Categories()
		if categories == nil {
			categories = []string{}
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

// CatalogCategory returns the category grouped by subcategory.
func CatalogCategory(store catalogReader, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		category := validators.SanitizeString(chi.URLParam(r, "category"), maxCategoryParamLen)
		view, err := store.CategoryView(category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog.FromView(view, currency))
	}
}

// CatalogCategoryAll returns every item of the category without grouping.
func CatalogCategoryAll(store catalogReader, currency string, logg *logger.Logger) http.HandlerFunc {
	return catalogItems(store, currency, logg, false)
}

// CatalogSubcategory returns the items of one subcategory.
func CatalogSubcategory(store catalogReader, currency string, logg *logger.Logger) http.HandlerFunc {
	return catalogItems(store, currency, logg, true)
}

func catalogItems(store catalogReader, currency string, logg *logger.Logger, withSub bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		category := validators.SanitizeString(chi.URLParam(r, "category"), maxCategoryParamLen)
		subcategory := ""
		if withSub {
			subcategory = validators.SanitizeString(chi.URLParam(r, "subcategory"), maxCategoryParamLen)
		}
		items, err := store.FilterBy(category, subcategory)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categoryItemsResponse{
			Category:    category,
			Subcategory: subcategory,
			Items:       catalog.FromItems(items, currency),
		})
	}
}

// CatalogItem returns one item by id.
func CatalogItem(store catalogReader, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		itemID, err := validators.ParsePathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := store.Get(itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog.FromItem(item, currency))
	}
}

// AdminCatalogReload re-reads the catalog source in place.
func AdminCatalogReload(store catalogReloader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		count, err := store.Reload(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"items": count})
	}
}
