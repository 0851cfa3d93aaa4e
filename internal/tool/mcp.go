package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServer exposes the catalog over the Model Context Protocol. Every
// entry is registered with the schema the catalog declares and routed into
// the same dispatcher core the HTTP adapter uses.
func NewMCPServer(d *Dispatcher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "voxmail", Version: "v1.0.0"}, nil)

	for _, def := range Catalog() {
		server.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema(),
		}, mcpHandler(d, def.Name))
	}

	return server
}

func mcpHandler(d *Dispatcher, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("json.Unmarshal arguments failed: %w", err)
			}
		}

		result := d.Dispatch(ctx, Call{Name: name, Arguments: args})

		serialized, err := json.Marshal(result.Payload())
		if err != nil {
			return nil, fmt.Errorf("json.Marshal result failed: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(serialized)}},
			IsError: result.Error != "",
		}, nil
	}
}
