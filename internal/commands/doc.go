// Package commands owns the command dispatch contract.
//
// Ownership boundary:
// - handler function contract and metadata
// - name->handler registry with construction-time uniqueness
// - payload field validation helpers shared by handlers
//
// The registry performs no payload validation; required-key enforcement is
// each handler's contract.
package commands
