package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ip0000h/reqbench/internal/config"
	"github.com/ip0000h/reqbench/internal/feeder"
)

// Default User-Agent sent when the configuration does not override it.
const defaultUserAgent = "Reqbench"

// AuthProvider injects credentials into outgoing requests.
type AuthProvider interface {
	InjectHeader(ctx context.Context, req *http.Request) error
	Close() error
}

// Feeder provides per-request payload records.
type Feeder interface {
	Next(ctx context.Context) (feeder.Record, error)
	Close() error
	Len() int
}

// RequestBuilder turns the run configuration plus one payload record into an
// HTTP request. Where the payload lands depends on the method: GET, DELETE,
// OPTIONS, and HEAD requests carry it as URL query parameters, POST and PUT
// requests carry it in the body, form-encoded or as JSON. Placeholders of
// the form {{field}} in the target URL and header values are substituted
// from the record; the full record still forms the payload.
type RequestBuilder struct {
	method       string
	target       string
	headers      http.Header
	jsonBody     bool
	authProvider AuthProvider
	feeder       Feeder
}

func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target := strings.TrimSpace(cfg.TargetURL)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	method := strings.TrimSpace(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	headers := http.Header{}
	for key, value := range cfg.Headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if canonicalKey == "" {
			return nil, fmt.Errorf("invalid header key %q", key)
		}

		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}

		headers.Set(canonicalKey, value)
	}
	if headers.Get("User-Agent") == "" {
		headers.Set("User-Agent", defaultUserAgent)
	}

	return &RequestBuilder{
		method:   method,
		target:   target,
		headers:  headers,
		jsonBody: cfg.JSONBody,
	}, nil
}

// NewRequestBuilderWithAuth creates a RequestBuilder with an auth provider for automatic credential injection.
func NewRequestBuilderWithAuth(cfg *config.Config, provider AuthProvider) (*RequestBuilder, error) {
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		return nil, err
	}
	builder.authProvider = provider
	return builder, nil
}

// NewRequestBuilderWithFeeder creates a RequestBuilder with a feeder for per-request payload data.
func NewRequestBuilderWithFeeder(cfg *config.Config, feeder Feeder) (*RequestBuilder, error) {
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		return nil, err
	}
	builder.feeder = feeder
	return builder, nil
}

// NewRequestBuilderWithAuthAndFeeder creates a RequestBuilder with both auth and feeder.
func NewRequestBuilderWithAuthAndFeeder(cfg *config.Config, provider AuthProvider, feeder Feeder) (*RequestBuilder, error) {
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		return nil, err
	}
	builder.authProvider = provider
	builder.feeder = feeder
	return builder, nil
}

// methodCarriesBody reports whether the payload travels in the request body
// rather than the query string.
func methodCarriesBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut
}

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var record feeder.Record
	if b.feeder != nil {
		var err error
		record, err = b.feeder.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("next record: %w", err)
		}
	}

	target := feeder.SubstitutePlaceholders(b.target, record)

	var req *http.Request
	var err error
	if methodCarriesBody(b.method) {
		var payload []byte
		contentType := formContentType
		if b.jsonBody {
			payload = encodeJSON(record)
			contentType = jsonContentType
		} else {
			payload = encodeForm(record)
		}

		req, err = http.NewRequestWithContext(ctx, b.method, target, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.ContentLength = int64(len(payload))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
		b.applyHeaders(req, record)
		if len(payload) > 0 && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", contentType)
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, b.method, appendQuery(target, record), nil)
		if err != nil {
			return nil, err
		}
		b.applyHeaders(req, record)
	}

	// Inject auth header if provider is present
	if b.authProvider != nil {
		if err := b.authProvider.InjectHeader(ctx, req); err != nil {
			return nil, fmt.Errorf("auth provider inject header: %w", err)
		}
	}

	return req, nil
}

func (b *RequestBuilder) applyHeaders(req *http.Request, record feeder.Record) {
	if b.headers == nil {
		return
	}
	for key, values := range b.headers {
		for _, val := range values {
			req.Header.Add(key, feeder.SubstitutePlaceholders(val, record))
		}
	}
}

// NewClient returns an HTTP client tuned for load generation. The connection
// pool keeps one idle connection per worker and never caps concurrent
// connections, so the transport is not the limiting resource in a run.
func NewClient(timeout time.Duration, concurrency int) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	if concurrency < 1 {
		concurrency = 1
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   concurrency,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
