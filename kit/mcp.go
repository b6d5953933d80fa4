package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Validator is implemented by request types that check their own fields.
type Validator interface {
	Validate() error
}

// AddTool exposes endpoint as an MCP tool taking a Req. The endpoint
// receives a *Req. Bad arguments and endpoint failures come back as tool
// errors so the model can read them. A string response is sent as is,
// anything else as JSON text.
func AddTool[Req any](srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint) {
	srv.AddTool(tool, func(ctx context.Context, call *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := new(Req)
		if args := call.Params.Arguments; len(args) > 0 {
			if err := json.Unmarshal(args, req); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}
		if v, ok := any(req).(Validator); ok {
			if err := v.Validate(); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}

		resp, err := endpoint(WithCall(ctx, Call{Transport: "mcp"}), req)
		if err != nil {
			return toolError(err), nil
		}
		text, ok := resp.(string)
		if !ok {
			data, err := json.Marshal(resp)
			if err != nil {
				return toolError(fmt.Errorf("encode result: %w", err)), nil
			}
			text = string(data)
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	res := &mcp.CallToolResult{}
	res.SetError(err)
	return res
}
