package auth

import (
	"context"
	"crypto/subtle"
)

type bearerAuthenticator struct {
	validateFunc func(token string) (identity string, err error)
}

// BearerAuth turns a token lookup into an Authenticator. The lookup is
// skipped once the request context is done.
//
//	a := auth.BearerAuth(func(token string) (string, error) {
//	    if identity, ok := sessions.Lookup(token); ok {
//	        return identity, nil
//	    }
//	    return "", auth.ErrUnauthenticated
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{
		validateFunc: validateFunc,
	}
}

func (b *bearerAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.validateFunc(token)
}

// StaticTokens returns an Authenticator backed by a fixed token to
// identity map, as loaded from the configuration file.
func StaticTokens(tokens map[string]string) Authenticator {
	known := make(map[string]string, len(tokens))
	for token, identity := range tokens {
		known[token] = identity
	}
	return BearerAuth(func(token string) (string, error) {
		for candidate, identity := range known {
			if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
				return identity, nil
			}
		}
		return "", ErrUnauthenticated
	})
}
