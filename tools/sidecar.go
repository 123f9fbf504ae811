package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"tiptune-shell/lifecycle"
	"tiptune-shell/sidecar"
)

type StatusArgs struct{}

type LogsArgs struct{}

type LifecycleEventArgs struct {
	Event string `json:"event" jsonschema:"the lifecycle event the desktop shell observed: window-close-requested, exit-requested or exit"`
}

type StopSidecarArgs struct{}

// RegisterSidecarTools registers sidecar_status, sidecar_logs,
// lifecycle_event and stop_sidecar on the given MCP server.
func RegisterSidecarTools(server *mcp.Server, ctl sidecar.Controller, bridge *lifecycle.Bridge) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "sidecar_status",
		Description: "Report whether the TipTune sidecar is running, with its pid, start time, exit status and resource usage.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
		return jsonResult(ctl.Status())
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sidecar_logs",
		Description: "Get the last ~100KB of the TipTune sidecar's log file.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args LogsArgs) (*mcp.CallToolResult, any, error) {
		logs, err := ctl.GetLogs()
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(logs), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name: "lifecycle_event",
		Description: `Notify the host of a window or application lifecycle event.

Send window-close-requested when the main window is asked to close, exit-requested when the application is asked to quit, and exit when it is exiting. Each of these stops the sidecar; sending more than one is harmless.`,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args LifecycleEventArgs) (*mcp.CallToolResult, any, error) {
		if args.Event == "" {
			return errorResult("event is required"), nil, nil
		}
		ev, err := lifecycle.ParseEvent(args.Event)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		if !bridge.Raise(ev) {
			return errorResult("host is already shutting down"), nil, nil
		}
		return textResult(fmt.Sprintf("%s delivered", ev)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stop_sidecar",
		Description: "Force-kill the TipTune sidecar without exiting the host. It is not restarted.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args StopSidecarArgs) (*mcp.CallToolResult, any, error) {
		ctl.Shutdown(sidecar.ReasonOperator)
		return jsonResult(ctl.Status())
	})
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling response: %w", err)
	}
	return textResult(string(data)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	r := textResult(text)
	r.IsError = true
	return r
}
