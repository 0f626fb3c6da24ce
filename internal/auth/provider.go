// Package auth injects credentials into outgoing benchmark requests.
package auth

import (
	"context"
	"net/http"
)

// Provider adds authentication to an HTTP request before it is sent. A
// provider is built once per run and shared by all request workers, so
// implementations must be safe for concurrent use.
type Provider interface {
	// InjectHeader adds the provider's credentials to req.
	InjectHeader(ctx context.Context, req *http.Request) error

	// Close releases any resources held by the provider.
	Close() error
}

// BasicProvider sets HTTP basic auth credentials on every request.
type BasicProvider struct {
	user     string
	password string
}

// NewBasicProvider creates a provider for the given user and password.
func NewBasicProvider(user, password string) *BasicProvider {
	return &BasicProvider{user: user, password: password}
}

// InjectHeader sets the Authorization header using basic auth encoding.
func (p *BasicProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	req.SetBasicAuth(p.user, p.password)
	return nil
}

// Close is a no-op: basic credentials hold no resources.
func (p *BasicProvider) Close() error {
	return nil
}

// BearerProvider sets a fixed bearer token on every request, for targets
// fronted by a token-issuing gateway.
type BearerProvider struct {
	token string
}

// NewBearerProvider creates a provider for the given token.
func NewBearerProvider(token string) *BearerProvider {
	return &BearerProvider{token: token}
}

// InjectHeader sets the Authorization header to "Bearer <token>".
func (p *BearerProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+p.token)
	return nil
}

// Close is a no-op for bearer providers.
func (p *BearerProvider) Close() error {
	return nil
}
