// CLAUDE:SUMMARY Registers relay MCP tools: get product summary, list products by status, render detail content as markdown.
package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/itemrelay/kit"
)

// RegisterMCP registers relay tools on an MCP server.
func (r *Relay) RegisterMCP(srv *mcp.Server) {
	r.registerGetTool(srv)
	r.registerListTool(srv)
	r.registerMarkdownTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var itemIDSchema = inputSchema(map[string]any{
	"item_id": map[string]any{"type": "string", "description": "Vendor item id"},
}, []string{"item_id"})

func (r *Relay) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "itemrelay_get_product",
		Description: "Get a relayed product: lifecycle status, error, destination product number and listing summary (price range, fees, exchange rate).",
		InputSchema: itemIDSchema,
	}
	endpoint := kit.Chain(logged(r.logger, "get_product"))(r.getEndpoint())
	kit.AddTool[getRequest](srv, tool, endpoint)
}

func (r *Relay) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "itemrelay_list_products",
		Description: "List relayed products, newest first, optionally filtered by status.",
		InputSchema: inputSchema(map[string]any{
			"status":   map[string]any{"type": "string", "enum": []any{"captured", "processing", "processed", "failed", "uploading", "uploaded"}},
			"page":     map[string]any{"type": "integer", "description": "1-based page (default 1)"},
			"per_page": map[string]any{"type": "integer", "description": "Page size (default 10)"},
		}, nil),
	}
	endpoint := kit.Chain(logged(r.logger, "list_products"))(r.listEndpoint())
	kit.AddTool[listRequest](srv, tool, endpoint)
}

func (r *Relay) registerMarkdownTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "itemrelay_product_markdown",
		Description: "Render a processed product as markdown: name, price, tags, options and the detail content.",
		InputSchema: itemIDSchema,
	}
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	endpoint := func(ctx context.Context, req any) (any, error) {
		v, err := r.Get(ctx, req.(*getRequest).ItemID)
		if err != nil {
			return nil, err
		}
		if v.Payload == nil {
			return nil, fmt.Errorf("relay: %s has no payload (status %s)", v.ItemID, v.Status)
		}
		detail, err := conv.ConvertString(v.Payload.DetailContent)
		if err != nil {
			return nil, fmt.Errorf("relay: render detail: %w", err)
		}

		p := v.Payload
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", p.Name)
		fmt.Fprintf(&b, "- Item: %s\n- Status: %s\n- Category: %s\n", v.ItemID, v.Status, p.Category)
		if v.Summary != nil {
			fmt.Fprintf(&b, "- Price: %s\n- Shipping: %s\n", v.Summary.Price, v.Summary.ShippingFee)
		}
		if len(p.SellerTags) > 0 {
			fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(p.SellerTags, ", "))
		}
		if o := p.OptionInfo; o != nil {
			fmt.Fprintf(&b, "\n## Options (%s)\n\n", strings.Join(o.GroupNames, " / "))
			for _, c := range o.Combinations {
				fmt.Fprintf(&b, "- %s: +%d, stock %d\n", strings.Join(c.Names, " / "), c.PriceDelta, c.Stock)
			}
		}
		b.WriteString("\n## Detail\n\n")
		b.WriteString(detail)
		b.WriteString("\n")
		return b.String(), nil
	}
	endpoint = kit.Chain(logged(r.logger, "product_markdown"))(endpoint)
	kit.AddTool[getRequest](srv, tool, endpoint)
}
