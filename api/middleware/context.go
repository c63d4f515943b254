package middleware

import "context"

type ctxKey int

const (
	shopperKey ctxKey = iota
	sessionKey
)

// Shopper is the account behind an authenticated request. AccessID is the
// jti of the bearer token.
type Shopper struct {
	UserID   uint
	Email    string
	AccessID string
}

func WithShopper(ctx context.Context, s Shopper) context.Context {
	return context.WithValue(ctx, shopperKey, s)
}

// ShopperFromContext reports false for anonymous requests.
func ShopperFromContext(ctx context.Context) (Shopper, bool) {
	if ctx == nil {
		return Shopper{}, false
	}
	s, ok := ctx.Value(shopperKey).(Shopper)
	return s, ok
}

// WithUser is WithShopper without a token id; handler tests use it.
func WithUser(ctx context.Context, userID uint, email string) context.Context {
	return WithShopper(ctx, Shopper{UserID: userID, Email: email})
}

// UserIDFromContext returns 0 when the request is anonymous.
func UserIDFromContext(ctx context.Context) uint {
	s, _ := ShopperFromContext(ctx)
	return s.UserID
}

func EmailFromContext(ctx context.Context) string {
	s, _ := ShopperFromContext(ctx)
	return s.Email
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionIDFromContext returns the browser session id set by Session.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionKey).(string)
	return id
}
