// Package lifecycle connects the host's window and application lifecycle
// to the sidecar supervisor.
//
// Whatever drives the host (OS signals for a headless run, or a desktop
// shell speaking MCP over stdio) raises events on a Bridge. Run turns each
// event into a Shutdown call on the supervisor. Calls are not deduplicated;
// the supervisor's teardown is idempotent.
package lifecycle
