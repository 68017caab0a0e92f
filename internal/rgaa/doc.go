// Package rgaa implements the in-page rule engine.
//
// The analyzer walks a dom.Document and runs thirteen independent check
// categories (images, frames, colors, multimedia, tables, links, scripts,
// mandatory elements, structure, presentation, forms, navigation and
// consultation). Each category reports violations with rule identifiers of
// the form "rgaa-<criterion>.<test>" and registers the catalog criteria it
// evaluated, so callers can tell which of the 106 criteria were not checked.
//
// Analysis is deterministic: elements are visited in document order and
// categories always run in catalog order, so analyzing an unchanged snapshot
// twice yields the same violations in the same order.
package rgaa
