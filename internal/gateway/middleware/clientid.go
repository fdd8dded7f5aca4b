package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// FallbackClientID is used when a request carries no usable address.
const FallbackClientID = "127.0.0.1"

type clientIDKey struct{}

func WithClientID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clientIDKey{}, id)
}

// ClientIDFrom returns the identity stored by ClientIdentity, or
// FallbackClientID when none was resolved.
func ClientIDFrom(ctx context.Context) string {
	if ctx == nil {
		return FallbackClientID
	}
	if v, ok := ctx.Value(clientIDKey{}).(string); ok && v != "" {
		return v
	}
	return FallbackClientID
}

// ClientIdentity resolves the caller identity used for admission and
// stores it in the request context. With trustProxy set the first
// X-Forwarded-For entry wins, so only enable it behind a proxy that
// overwrites the header.
func ClientIdentity(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ResolveClientID(r, trustProxy)
			next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), id)))
		})
	}
}

func ResolveClientID(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return FallbackClientID
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		if host == "" {
			return FallbackClientID
		}
		return host
	}
	return addr
}
