package redis

import "strings"

// Every key the shop writes lives under "shop:<kind>:...". Empty parts are
// dropped so a missing id never produces "shop:cart:".
const keyNamespace = "shop"

const (
	kindIdempotency = "idempotency"
	kindRateLimit   = "rate_limit"
	kindSession     = "session"
	kindCart        = "cart"
	kindHosted      = "hosted"
)

func key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return key(kindIdempotency, scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key(kindRateLimit, scope) }

// AccessSessionKey marks a live access token by its jti.
func (c *Client) AccessSessionKey(accessID string) string {
	return key(kindSession, "access", accessID)
}

// CartKey holds the JSON cart of one browser session.
func (c *Client) CartKey(sessionID string) string { return key(kindCart, sessionID) }

// HostedCheckoutKey guards completion of one Stripe Checkout Session.
func (c *Client) HostedCheckoutKey(token string) string { return key(kindHosted, token) }
