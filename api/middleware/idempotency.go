package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Piotrek1987/ds-online-shop/api/responses"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
	pkgredis "github.com/Piotrek1987/ds-online-shop/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	replayWindow      = 24 * time.Hour
	orderReplayWindow = 7 * 24 * time.Hour

	// reservationTTL caps how long a crashed request can hold its key.
	reservationTTL = 2 * time.Minute

	maxKeyedBody = 1 << 20
)

// keyedRoutes maps "METHOD pattern" to how long a finished response is kept.
// Keys are optional on all of them.
var keyedRoutes = map[string]time.Duration{
	"POST /api/v1/auth/register":    replayWindow,
	"POST /api/v1/checkout":         orderReplayWindow,
	"POST /api/v1/checkout/session": replayWindow,
}

// keyedPrefixes covers route families such as the admin surface.
var keyedPrefixes = []struct {
	method, prefix string
	window         time.Duration
}{
	{http.MethodPost, "/api/admin/v1/", replayWindow},
}

func replayWindowFor(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	if window, ok := keyedRoutes[method+" "+pattern]; ok {
		return window, true
	}
	for _, p := range keyedPrefixes {
		if p.method == method && strings.HasPrefix(pattern, p.prefix) {
			return p.window, true
		}
	}
	return 0, false
}

// storedResponse is the value kept under an idempotency key. Status zero
// marks a reservation whose request has not finished yet.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency lets clients retry registration, checkout and admin calls with
// an Idempotency-Key. The first request reserves the key; a duplicate that
// arrives while it runs gets 409, later duplicates get the stored response,
// and a 5xx releases the key for another attempt.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			window, keyed := replayWindowFor(r.Method, keyedPattern(r))
			if store == nil || !keyed || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxKeyedBody))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large or unreadable"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintOf(body)
			key := store.IdempotencyKey(keyScope(r), clientKey)

			hold, _ := json.Marshal(storedResponse{Fingerprint: fingerprint})
			reserved, err := store.SetNX(ctx, key, string(hold), min(window, reservationTTL))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replay(ctx, logg, w, store, key, fingerprint)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			if err := finish(ctx, store, key, window, storedResponse{
				Fingerprint: fingerprint,
				Status:      statusOf(ww),
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			}); err != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "idempotency_key", clientKey), "idempotency.finish_failed", err)
			}
		})
	}
}

// finish stores a completed response, or releases the key after a 5xx.
func finish(ctx context.Context, store pkgredis.IdempotencyStore, key string, window time.Duration, resp storedResponse) error {
	if resp.Status >= http.StatusInternalServerError {
		return store.Del(ctx, key)
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode stored response: %w", err)
	}
	return store.Set(ctx, key, string(payload), window)
}

func replay(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store pkgredis.IdempotencyStore, key, fingerprint string) {
	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// The holder released the key between SETNX and GET.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is being retried, try again"))
		return
	case err != nil:
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency key"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode stored response"))
		return
	}
	switch {
	case stored.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case stored.Status == 0:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(ReplayedHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// keyScope keeps keys of different shoppers, sessions and routes apart.
func keyScope(r *http.Request) string {
	ctx := r.Context()
	return fmt.Sprintf("%d|%s|%s|%s", UserIDFromContext(ctx), SessionIDFromContext(ctx), r.Method, r.URL.Path)
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// keyedPattern is the matched chi pattern. Group middleware runs before the
// sub-router resolves and sees a wildcard, so the raw path is used then.
func keyedPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}
