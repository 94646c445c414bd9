// Package tools provides reusable runtime helpers shared by bridge modules.
//
// Ownership boundary:
// - command execution helpers
//
// - host/runtime utility primitives
package tools
