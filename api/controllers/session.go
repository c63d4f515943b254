package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Piotrek1987/ds-online-shop/api/middleware"
	"github.com/Piotrek1987/ds-online-shop/api/responses"
	"github.com/Piotrek1987/ds-online-shop/api/validators"
	pkgAuth "github.com/Piotrek1987/ds-online-shop/pkg/auth"
	"github.com/Piotrek1987/ds-online-shop/pkg/auth/session"
	"github.com/Piotrek1987/ds-online-shop/pkg/config"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

type sessionTokenRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// presentedClaims reads the bearer token of a logout or refresh call. Expired
// tokens are accepted: both calls must work after the access token lapsed.
func presentedClaims(r *http.Request, manager sessionTokenRotator, cfg config.JWTConfig) (*pkgAuth.AccessTokenClaims, error) {
	if manager == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable")
	}
	raw := middleware.BearerToken(r)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	return claims, nil
}

// AuthLogout drops the refresh token bound to the presented access token.
func AuthLogout(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		claims, err := presentedClaims(r, manager, cfg)
		if err == nil {
			if revokeErr := manager.Revoke(ctx, claims.ID); revokeErr != nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, revokeErr, "revoke session")
			}
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithUserID(ctx, claims.Subject), "auth.logout")
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out", "message": "You have been logged out."})
	}
}

// AuthRefresh trades a refresh token for a new access and refresh pair. Each
// refresh token works once.
func AuthRefresh(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		claims, err := presentedClaims(r, manager, cfg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req refreshRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		accessID, refreshToken, err := manager.Rotate(ctx, claims.ID, req.RefreshToken)
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid refresh token"))
			return
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session"))
			return
		}

		access, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
			UserID: claims.UserID,
			Email:  claims.Email,
			JTI:    accessID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt"))
			return
		}
		writeTokens(w, http.StatusOK, access, refreshResponse{AccessToken: access, RefreshToken: refreshToken})
	}
}
