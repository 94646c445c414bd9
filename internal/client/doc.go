// Package client is the caller-side connection manager for the command
// endpoint.
//
// Ownership boundary:
// - dial/retry/reconnect policy for the single endpoint connection
//
// - serialized request/response round trips
//
// - tool facade mapping named operations to typed calls
//
// SendCommand never returns a Go error: transport failures come back as
// synthesized error envelopes so callers always hold a well-formed
// response.
package client
