// Package bridge owns the TCP command endpoint.
//
// Ownership boundary:
// - listener lifecycle (start, accept, coordinated stop)
//
// - per-session read/dispatch/write loop
//
// - daemon supervision (signals, heartbeat, status plane)
//
// The server serves one session at a time; a session survives malformed
// input, unknown commands, and handler faults, and ends only when the
// peer disconnects or the server stops.
package bridge
