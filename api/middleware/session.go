package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/Piotrek1987/ds-online-shop/api/responses"
	"github.com/Piotrek1987/ds-online-shop/pkg/config"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
	"github.com/Piotrek1987/ds-online-shop/pkg/security"
)

const (
	// SessionHeader lets API clients without a cookie jar carry the session.
	SessionHeader = "X-Session-Id"

	sessionIDBytes = 32
)

var sessionIDPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Session assigns every visitor a browser session id. The id is read from the
// X-Session-Id header or the session cookie; unknown formats are replaced with
// a fresh id. The cookie is refreshed on each request so it slides with the
// cart TTL.
func Session(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "shop_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := strings.TrimSpace(r.Header.Get(SessionHeader))
			if sid == "" {
				if c, err := r.Cookie(cookieName); err == nil {
					sid = strings.TrimSpace(c.Value)
				}
			}
			if !sessionIDPattern.MatchString(sid) {
				fresh, err := security.RandomHex(sessionIDBytes)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create session"))
					return
				}
				sid = fresh
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(SessionHeader, sid)

			ctx := WithSessionID(r.Context(), sid)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sid[:8])
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
