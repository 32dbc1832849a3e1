// Package queue provides a bounded channel with explicit open and closed
// state on each end.
//
// New returns one Sender and one Receiver. Either handle can be cloned, and
// each clone must be closed. When the last Sender closes, receivers drain
// what is buffered and then observe the end of the queue. When the last
// Receiver closes, every pending and future send fails with ErrClosed.
//
// Closing a handle twice is a no-op. Operations on a closed handle behave as
// if the queue itself were closed.
package queue
