// Package session holds the edit state of one page load.
//
// A Session starts in view mode holding a working copy and a committed copy
// of the portfolio document. Entering edit mode requires the admin password;
// edits replace whole sections of the working copy; saving pushes the
// working copy to the remote store and, on success, makes it the committed
// copy. The session is dirty whenever the two copies differ.
//
// State is guarded by a mutex. Remote calls run without the lock and carry
// the epoch they started in; exiting edit mode or closing the session
// cancels them and bumps the epoch, so a late completion is dropped instead
// of overwriting newer state.
//
// Sessions are owned by a Registry keyed by an opaque id, one per page
// load. Nothing is persisted across page loads.
package session
