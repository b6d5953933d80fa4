package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hazyhaar/itemrelay/kit"
)

// Endpoints shared by the HTTP API and the MCP tools.

type getRequest struct {
	ItemID string `json:"item_id"`
}

func (g *getRequest) Validate() error {
	if g.ItemID == "" {
		return errors.New("item_id is required")
	}
	return nil
}

type listRequest struct {
	Status  string `json:"status,omitempty"`
	Page    int    `json:"page,omitempty"`
	PerPage int    `json:"per_page,omitempty"`
}

func (r *Relay) getEndpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		return r.Get(ctx, req.(*getRequest).ItemID)
	}
}

func (r *Relay) listEndpoint() kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		l := req.(*listRequest)
		return r.List(ctx, l.Status, l.Page, l.PerPage)
	}
}

// logged records each call with its transport, request id and duration.
func logged(logger *slog.Logger, name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			call := kit.CallFrom(ctx)
			attrs := []any{
				"endpoint", name,
				"transport", call.Transport,
				"duration", time.Since(start),
			}
			if call.RequestID != "" {
				attrs = append(attrs, "request_id", call.RequestID)
			}
			if err != nil {
				logger.Debug("relay: endpoint error", append(attrs, "error", err)...)
			} else {
				logger.Debug("relay: endpoint", attrs...)
			}
			return resp, err
		}
	}
}
