// Package scene holds the in-memory drawing model served by the builtin
// command handlers.
//
// Ownership boundary: the Engine owns all mutable drawing state (layers,
// strokes, selection, interaction mode) behind one mutex. Handlers mutate
// it only through exported methods; the status API reads it only through
// Snapshot. Nothing in this package performs I/O.
package scene
