// Package stateful holds a single typed value that can be read and updated by
// several producers and observed by any number of update handlers.
//
// # Updates
//
// An update is expressed as an Updater that receives a decoded object and a
// copy of the current value, mutates the copy and classifies the change:
//
//   - Unchanged: the copy is discarded and no handler runs
//   - Changed: the copy replaces the live value and handlers run
//   - ChangedRestart: as Changed, and the caller should restart whatever
//     consumes the value
//
// Handlers run synchronously, in the order they were added, before Update
// returns. UpdateWithoutPropagation replaces the value without running
// handlers; it is meant for initial hydration from storage.
//
// # Handler IDs
//
// AddUpdateHandler returns a HandlerID. IDs increase monotonically and are
// never reused. The zero ID is reserved to mean "not registered" so callers
// can keep a HandlerID field and test it against zero.
package stateful
