package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"tiptune-shell/lifecycle"
	"tiptune-shell/sidecar"
)

// NewServer builds the host's MCP server with the sidecar tools registered.
func NewServer(version string, ctl sidecar.Controller, bridge *lifecycle.Bridge) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "tiptune-shell",
		Version: version,
	}, nil)
	RegisterSidecarTools(server, ctl, bridge)
	return server
}

// Serve runs server over stdio until the client disconnects or ctx ends.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
