// Package httpclient provides HTTP request construction for the reqbench
// load benchmarking tool.
//
// The httpclient package handles request building and client setup with
// support for:
//   - Payload placement by method: query parameters for GET, DELETE,
//     OPTIONS, and HEAD; form or JSON bodies for POST and PUT
//   - Data feeders for per-request payload records
//   - Basic authentication injection
//   - Connection pooling sized to the worker count
//
// # Request Building
//
// Use [NewRequestBuilder] to create a new request builder from configuration:
//
//	builder, err := httpclient.NewRequestBuilder(cfg)
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx)
//
// For requests requiring authentication, use [NewRequestBuilderWithAuth]:
//
//	builder, err := httpclient.NewRequestBuilderWithAuth(cfg, authProvider)
//
// For payload records from a data file, use [NewRequestBuilderWithFeeder]:
//
//	builder, err := httpclient.NewRequestBuilderWithFeeder(cfg, dataFeeder)
//
// # HTTP Client
//
// The [NewClient] function creates an HTTP client for load generation with a
// per-run timeout and an idle pool sized to the concurrency level:
//
//	client := httpclient.NewClient(30*time.Second, concurrency)
//	resp, err := client.Do(req)
//
// # Integration
//
// This package integrates with:
//   - [github.com/ip0000h/reqbench/internal/auth] for authentication
//   - [github.com/ip0000h/reqbench/internal/feeder] for payload data
//   - [github.com/ip0000h/reqbench/internal/config] for configuration
package httpclient
