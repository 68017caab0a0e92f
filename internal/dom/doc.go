// Package dom provides the small read-only DOM abstraction the in-page rule
// engine runs against, and an implementation backed by golang.org/x/net/html.
//
// The rule engine only depends on the Document and Element interfaces, so it
// can be exercised against a serialized snapshot of a live browser page or
// against a hand-written fixture in unit tests.
package dom
