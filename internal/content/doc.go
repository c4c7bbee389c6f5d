// Package content holds the published portfolio document served to
// visitors.
//
// The [Manager] keeps the last committed document as an immutable
// [Snapshot] behind an atomic.Pointer, so readers never lock. It is filled
// once at startup (from the remote store or the bundled sample) and
// replaced after every successful save from an edit session.
package content
