package hub

import (
	"context"
	"net/http"
)

// Authenticator decorates outgoing hub requests with credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, req *http.Request) error
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, req *http.Request) error

func (f AuthenticatorFunc) Authenticate(ctx context.Context, req *http.Request) error {
	return f(ctx, req)
}

// BearerToken adds "Authorization: Bearer <token>" to every request.
// An empty token adds nothing.
func BearerToken(token string) Authenticator {
	return AuthenticatorFunc(func(_ context.Context, req *http.Request) error {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	})
}

// NoAuth leaves requests untouched.
func NoAuth() Authenticator {
	return AuthenticatorFunc(func(context.Context, *http.Request) error { return nil })
}
