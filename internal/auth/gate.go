package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"productcatalog/internal/apperr"
)

const identityKey = "auth.identity"

// Gate decides who the caller is and whether they own a record.
type Gate struct {
	tokens *Tokens
}

func NewGate(tokens *Tokens) *Gate {
	return &Gate{tokens: tokens}
}

// Authenticate verifies a bearer token.
func (g *Gate) Authenticate(token string) (Identity, error) {
	id, err := g.tokens.Verify(token)
	if err != nil {
		msg := "Authentication failed!"
		if errors.Is(err, ErrMissingToken) {
			msg = "Authentication failed! Missing token."
		}
		return Identity{}, apperr.Wrap(apperr.KindUnauthenticated, err, msg)
	}
	return id, nil
}

// Authorize succeeds only when the caller is the owner.
func (g *Gate) Authorize(id Identity, ownerID string) error {
	if id.UserID == "" || id.UserID != ownerID {
		return apperr.New(apperr.KindForbidden, "You are not authorized to modify this product.")
	}
	return nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// identity for downstream handlers. CORS preflights pass through.
func (g *Gate) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "OPTIONS" {
			c.Next()
			return
		}
		id, err := g.Authenticate(BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// IdentityFrom returns the identity set by RequireAuth.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
