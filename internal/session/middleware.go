package session

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const userContextKey = "session.user"

// cacheTTL bounds how long a resolved token is trusted without re-asking
// the provider.
const cacheTTL = 5 * time.Minute

// Resolver turns bearer tokens into users, consulting the Redis cache
// before the provider. The cache is optional; without it every request
// round-trips to the provider.
type Resolver struct {
	client *Client
	cache  *Cache
}

func NewResolver(client *Client, cache *Cache) *Resolver {
	return &Resolver{client: client, cache: cache}
}

// Resolve maps an access token to its user.
func (r *Resolver) Resolve(ctx context.Context, token string) (*User, error) {
	if r.cache != nil {
		user, err := r.cache.Get(ctx, token)
		if err != nil {
			slog.Warn("Session cache lookup failed", "error", err)
		} else if user != nil {
			return user, nil
		}
	}

	user, err := r.client.UserFromToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, token, user, cacheTTL); err != nil {
			slog.Warn("Session cache write failed", "error", err)
		}
	}
	return user, nil
}

// Forget drops a token from the cache, used on sign-out.
func (r *Resolver) Forget(ctx context.Context, token string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, token); err != nil {
		slog.Warn("Session cache delete failed", "error", err)
	}
}

// Authenticate resolves the Authorization header when present and stores
// the user in the gin context. Requests without a valid token continue as
// guests; handlers that need an identity pair this with RequireUser.
func Authenticate(r *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		user, err := r.Resolve(c.Request.Context(), token)
		if err != nil {
			slog.Debug("Token did not resolve to a user", "error", err)
			c.Next()
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireUser rejects requests that did not authenticate.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// UserFrom returns the authenticated user stored by Authenticate.
func UserFrom(c *gin.Context) (*User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*User)
	return user, ok
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
