package preview

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fallbackTokenTTL bounds cache entries whose token carries no
// readable expiry claim.
const fallbackTokenTTL = 60 * time.Second

// expiryMargin refreshes tokens slightly before they lapse so a
// download started at the edge still succeeds.
const expiryMargin = 10 * time.Second

type cachedToken struct {
	token   string
	expires time.Time
}

// tokenCache caches signed download tokens per workspace path. Tokens
// are opaque to the server contract; the JWT expiry claim is read
// without verification purely to schedule refreshes.
type tokenCache struct {
	mu     sync.Mutex
	sign   func(ctx context.Context, path string) (string, error)
	tokens map[string]cachedToken
	now    func() time.Time
}

func newTokenCache(sign func(ctx context.Context, path string) (string, error)) *tokenCache {
	return &tokenCache{sign: sign, tokens: map[string]cachedToken{}, now: time.Now}
}

// get returns a still-valid cached token for the path or requests a
// fresh one.
func (c *tokenCache) get(ctx context.Context, path string) (string, error) {
	c.mu.Lock()
	cached, ok := c.tokens[path]
	c.mu.Unlock()
	if ok && c.now().Before(cached.expires) {
		return cached.token, nil
	}

	token, err := c.sign(ctx, path)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.tokens[path] = cachedToken{token: token, expires: c.tokenExpiry(token)}
	c.mu.Unlock()
	return token, nil
}

func (c *tokenCache) tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return c.now().Add(fallbackTokenTTL)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return c.now().Add(fallbackTokenTTL)
	}
	return exp.Time.Add(-expiryMargin)
}
