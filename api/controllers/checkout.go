package controllers

import (
	"net/http"

	"github.com/Piotrek1987/ds-online-shop/api/middleware"
	"github.com/Piotrek1987/ds-online-shop/api/responses"
	"github.com/Piotrek1987/ds-online-shop/api/validators"
	"github.com/Piotrek1987/ds-online-shop/internal/cart"
	"github.com/Piotrek1987/ds-online-shop/internal/checkout"
	"github.com/Piotrek1987/ds-online-shop/internal/orders"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
	"github.com/Piotrek1987/ds-online-shop/pkg/types"
)

const (
	msgCheckoutRecorded = "Payment successful! Order confirmed."
	msgHostedCompleted  = "Payment received. Thank you for your order!"
	msgHostedRepeated   = "This payment was already confirmed."

	maxFormFieldLen = 500
)

type checkoutRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Card    string `json:"card"`
}

func (c checkoutRequest) toForm() checkout.PaymentForm {
	return checkout.PaymentForm{
		Name:    validators.SanitizeString(c.Name, maxFormFieldLen),
		Email:   validators.SanitizeString(c.Email, maxFormFieldLen),
		Address: validators.SanitizeString(c.Address, maxFormFieldLen),
		Card:    validators.SanitizeString(c.Card, maxFormFieldLen),
	}
}

type checkoutResponse struct {
	Attempt      checkout.Attempt `json:"attempt"`
	Order        *orders.Order    `json:"order"`
	TotalDisplay string           `json:"total_display"`
	Message      string           `json:"message"`
}

type hostedSessionResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

type hostedCompleteResponse struct {
	Completed bool   `json:"completed"`
	Message   string `json:"message"`
}

func customerFrom(r *http.Request) checkout.Customer {
	return checkout.Customer{
		UserID: middleware.UserIDFromContext(r.Context()),
		Email:  middleware.EmailFromContext(r.Context()),
	}
}

// CheckoutSummary shows the cart that would be charged.
func CheckoutSummary(svc checkout.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		view, err := svc.Summary(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart.FromView(view, currency))
	}
}

// CheckoutSubmit runs the payment form through the orchestrator. Form and
// payment errors keep the cart so the shopper can resubmit.
func CheckoutSubmit(svc checkout.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), middleware.SessionIDFromContext(r.Context()), customerFrom(r), body.toForm())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Attempt:      result.Attempt,
			Order:        result.Order,
			TotalDisplay: types.Money(result.Order.Total).Display(currency),
			Message:      msgCheckoutRecorded,
		})
	}
}

// CheckoutCreateSession starts a hosted payment page for the current cart.
func CheckoutCreateSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		session, err := svc.CreateHostedSession(r.Context(), middleware.SessionIDFromContext(r.Context()), customerFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, hostedSessionResponse{
			SessionID:   session.ID,
			RedirectURL: session.URL,
		})
	}
}

// CheckoutSuccess is where the hosted payment page returns the shopper.
func CheckoutSuccess(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		token := validators.QueryString(r, "session_id", 255)
		completed, err := svc.CompleteHostedSession(r.Context(), middleware.SessionIDFromContext(r.Context()), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		message := msgHostedCompleted
		if !completed {
			message = msgHostedRepeated
		}
		responses.WriteSuccess(w, hostedCompleteResponse{Completed: completed, Message: message})
	}
}
