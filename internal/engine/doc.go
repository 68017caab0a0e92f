// Package engine runs one accessibility engine against one URL.
//
// Each Adapter acquires its own browser session, drives it, and returns a
// normalized, scored model.AuditResult. Adapters never share state, so the
// orchestrator may run them concurrently.
package engine
