package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Piotrek1987/ds-online-shop/api/middleware"
	"github.com/Piotrek1987/ds-online-shop/api/responses"
	"github.com/Piotrek1987/ds-online-shop/api/validators"
	"github.com/Piotrek1987/ds-online-shop/internal/cart"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

const (
	msgCartUpdated   = "Item updated in cart."
	msgCartNotInCart = "Item not in cart."
)

// cartChange mutates the cart of sessionID and returns the flash message.
type cartChange func(ctx context.Context, r *http.Request, sessionID string, itemID int) (string, error)

// CartView renders the session cart with line subtotals and the total.
func CartView(svc cart.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		writeCart(w, r, svc, currency, "", logg)
	}
}

// CartAdd puts one unit of the item into the cart.
func CartAdd(svc cart.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return changeCart(svc, currency, logg, func(ctx context.Context, _ *http.Request, sessionID string, itemID int) (string, error) {
		item, err := svc.Add(ctx, sessionID, itemID)
		if err != nil {
			return "", err
		}
		return item.Name + " added to cart!", nil
	})
}

// CartRemove takes one unit of the item out of the cart. Removing an item
// that is not in the cart succeeds and says so.
func CartRemove(svc cart.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return changeCart(svc, currency, logg, func(ctx context.Context, _ *http.Request, sessionID string, itemID int) (string, error) {
		found, err := svc.Remove(ctx, sessionID, itemID)
		return updateMessage(found), err
	})
}

// CartUpdate applies the increase or decrease action named in the path.
func CartUpdate(svc cart.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return changeCart(svc, currency, logg, func(ctx context.Context, r *http.Request, sessionID string, itemID int) (string, error) {
		action, err := cart.ParseAction(chi.URLParam(r, "action"))
		if err != nil {
			return "", err
		}
		found, err := svc.Update(ctx, sessionID, itemID, action)
		return updateMessage(found), err
	})
}

func changeCart(svc cart.Service, currency string, logg *logger.Logger, change cartChange) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		itemID, err := validators.ParsePathID(r, "itemId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		message, err := change(ctx, r, middleware.SessionIDFromContext(ctx), itemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeCart(w, r, svc, currency, message, logg)
	}
}

func updateMessage(found bool) string {
	if found {
		return msgCartUpdated
	}
	return msgCartNotInCart
}

// writeCart renders the cart as it stands after any change.
func writeCart(w http.ResponseWriter, r *http.Request, svc cart.Service, currency, message string, logg *logger.Logger) {
	view, err := svc.View(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	dto := cart.FromView(view, currency)
	dto.Message = message
	responses.WriteSuccess(w, dto)
}
