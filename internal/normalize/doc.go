// Package normalize maps the native output of each engine into the common
// model.Violation schema.
//
// The mappings are data, not code: one versioned YAML table per engine is
// embedded in the binary (tables/axe.yaml, tables/wave.yaml). Unknown source
// identifiers never fail normalization; they fall back to the table defaults
// so that every produced violation carries an enumerated level and impact.
package normalize
