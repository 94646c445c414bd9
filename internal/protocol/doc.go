// Package protocol owns the bridge wire contract.
//
// Ownership boundary:
// - command/response envelope shapes
// - envelope validation
// - line-delimited JSON framing over a byte stream
//
// One envelope per line. The line delimiter gives every message explicit
// framing; peers that treat one buffered socket read as one complete
// message stay byte-compatible as long as an envelope fits in a single
// read.
package protocol
