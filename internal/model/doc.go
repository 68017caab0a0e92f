// Package model defines the core data structures used throughout a11yscan.
//
// This package contains the following main types:
//   - Violation: A single accessibility non-conformity in the common schema
//   - AuditResult: The normalized, scored output of one engine run
//   - EngineRun: An AuditResult plus timing and success information
//   - ComparativeResult: The merged report of several engine runs
//   - Request/Response: The orchestrator's input and output envelopes
//
// Models live in their own package so that engines, the normalizer, the
// aggregator and the report writers can share them without import cycles.
// Every type is serializable to JSON using the camelCase keys of the public
// request/response contract.
package model
