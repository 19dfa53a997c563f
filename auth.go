package recordfilter

import (
	"context"

	"github.com/hugr-lab/recordfilter/auth"
)

// Authenticator resolves bearer tokens to client identities.
type Authenticator = auth.Authenticator

// BearerAuth turns a token lookup into an Authenticator:
//
//	a := recordfilter.BearerAuth(func(token string) (string, error) {
//	    if identity, ok := sessions.Lookup(token); ok {
//	        return identity, nil
//	    }
//	    return "", recordfilter.ErrUnauthorized
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return auth.BearerAuth(validateFunc)
}

// StaticTokens accepts the tokens of a fixed token to identity map, as
// listed under auth.tokens in the server configuration.
func StaticTokens(tokens map[string]string) Authenticator {
	return auth.StaticTokens(tokens)
}

// NoAuth tags every request with the identity "anonymous".
func NoAuth() Authenticator {
	return auth.NoAuth()
}

// IdentityFromContext returns the identity of an authenticated Flight
// call, or "".
func IdentityFromContext(ctx context.Context) string {
	return auth.IdentityFromContext(ctx)
}
