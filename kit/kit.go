// CLAUDE:SUMMARY Transport-neutral endpoints, middleware chaining and per-call metadata shared by the HTTP API and MCP tools.
// Package kit lets one handler serve both the HTTP API and the MCP tools.
// A handler is an Endpoint; transports decode their input into the
// endpoint's request type and record a Call in the context.
package kit

import "context"

// Endpoint handles one decoded request.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes mws, the first one outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Call describes how an endpoint was reached.
type Call struct {
	Transport string // "http" or "mcp"
	RequestID string
}

type callKey struct{}

// WithCall attaches c to ctx.
func WithCall(ctx context.Context, c Call) context.Context {
	return context.WithValue(ctx, callKey{}, c)
}

// CallFrom returns the Call attached to ctx. Transport defaults to "http".
func CallFrom(ctx context.Context) Call {
	c, _ := ctx.Value(callKey{}).(Call)
	if c.Transport == "" {
		c.Transport = "http"
	}
	return c
}
