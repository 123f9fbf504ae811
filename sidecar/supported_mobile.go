//go:build android || ios

package sidecar

// Supported is false on mobile targets, which cannot spawn subprocesses.
const Supported = false
