// Package identity resolves which profile a request acts on. The service is
// single-user, so the default resolver always yields one configured key; the
// indirection keeps handlers independent of that choice.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnresolved is returned when no profile key can be derived for a request.
var ErrUnresolved = errors.New("profile key could not be resolved")

// Resolver derives the profile key that a request operates on.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

type staticResolver struct {
	key string
}

// NewStaticResolver returns a Resolver that always yields key.
func NewStaticResolver(key string) Resolver {
	return staticResolver{key: strings.TrimSpace(key)}
}

func (s staticResolver) Resolve(*http.Request) (string, error) {
	if s.key == "" {
		return "", ErrUnresolved
	}
	return s.key, nil
}

type ctxKey string

const profileCtxKey ctxKey = "study:profile"

// Middleware stores the resolved profile key in the request context.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				next.ServeHTTP(w, r)
				return
			}

			key, err := resolver.Resolve(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithProfileKey(r.Context(), key)))
		})
	}
}

// WithProfileKey returns a copy of ctx carrying key.
func WithProfileKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, profileCtxKey, key)
}

// ProfileKeyFromContext extracts the profile key placed by Middleware.
func ProfileKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(profileCtxKey).(string)
	return key, ok && key != ""
}
