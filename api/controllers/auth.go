package controllers

import (
	"net/http"

	"github.com/Piotrek1987/ds-online-shop/api/responses"
	"github.com/Piotrek1987/ds-online-shop/api/validators"
	"github.com/Piotrek1987/ds-online-shop/internal/auth"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

// tokenHeader repeats the access token outside the body for clients that
// only look at headers.
const tokenHeader = "X-Shop-Token"

// AuthRegister creates an account and signs it in (201).
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return credentials(svc, logg, http.StatusCreated, func(r *http.Request) (*auth.LoginResponse, error) {
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Register(r.Context(), body)
	})
}

// AuthLogin exchanges an email and password for a token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return credentials(svc, logg, http.StatusOK, func(r *http.Request) (*auth.LoginResponse, error) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Login(r.Context(), body)
	})
}

func credentials(svc auth.Service, logg *logger.Logger, status int, exchange func(*http.Request) (*auth.LoginResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		result, err := exchange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeTokens(w, status, result.AccessToken, result)
	}
}

// writeTokens marks token responses uncacheable.
func writeTokens(w http.ResponseWriter, status int, accessToken string, body any) {
	w.Header().Set(tokenHeader, accessToken)
	w.Header().Set("Cache-Control", "no-store")
	responses.WriteSuccessStatus(w, status, body)
}
