// Package portfolio defines the content document shown on the site and
// edited in admin mode.
//
// A [Document] is the unit of persistence: the remote store only ever sees
// whole documents, so every edit is expressed as a replacement of one
// top-level [Section] on a copy of the working document. Equality is
// structural over the JSON encoding, which is the same shape the remote
// store keeps.
package portfolio
