//go:build !android && !ios

package sidecar

// Supported reports whether this build can host a sidecar process.
const Supported = true
