// Package auth checks bearer tokens on the Flight and REST endpoints.
//
// Clients send "Authorization: Bearer <token>" as a gRPC metadata entry
// or an HTTP header. An Authenticator maps the token to the identity that
// record scans and store writes are logged under.
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidAuthHeader means the header does not use the Bearer scheme.
	ErrInvalidAuthHeader = errors.New("authorization header must use Bearer scheme")

	// ErrTokenIsEmpty means the request carries no token.
	ErrTokenIsEmpty = errors.New("authorization token is empty")

	// ErrUnauthenticated means the token is not known to the Authenticator.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Authenticator resolves a bearer token to a client identity. It is shared
// by every gRPC stream and HTTP request, so it must be safe for
// concurrent use.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

// AnonymousIdentity is the identity NoAuth assigns to every request.
const AnonymousIdentity = "anonymous"

type noAuthenticator struct{}

// NoAuth accepts any non-empty token as AnonymousIdentity. Servers built
// without configured tokens skip the interceptors altogether; NoAuth is
// for callers that want the identity set without checking tokens.
func NoAuth() Authenticator {
	return noAuthenticator{}
}

func (noAuthenticator) Authenticate(context.Context, string) (string, error) {
	return AnonymousIdentity, nil
}

type identityKey struct{}

// IdentityFromContext returns the identity attached by the interceptors
// or the HTTP middleware, or "" for requests that were not authenticated.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey{}).(string)
	return identity
}

// WithIdentity attaches identity to ctx.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

const bearerPrefix = "Bearer "

// TokenFromAuthorizationHeader returns the token of a "Bearer <token>"
// header value.
func TokenFromAuthorizationHeader(header string) (string, error) {
	if header == "" {
		return "", ErrTokenIsEmpty
	}
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", ErrInvalidAuthHeader
	}
	if token == "" {
		return "", ErrTokenIsEmpty
	}
	return token, nil
}

// ValidateToken resolves token with authenticator and returns ctx carrying
// the identity. Any authenticator failure is reported as
// ErrUnauthenticated so rejected tokens are not echoed back to clients.
func ValidateToken(ctx context.Context, token string, authenticator Authenticator) (context.Context, error) {
	if token == "" {
		return ctx, ErrTokenIsEmpty
	}
	identity, err := authenticator.Authenticate(ctx, token)
	if err != nil {
		return ctx, ErrUnauthenticated
	}
	return WithIdentity(ctx, identity), nil
}
