// Package calls holds the call record model and the pure functions that turn
// a snapshot of the shared store into what the board shows.
package calls
