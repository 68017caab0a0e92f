// Package batch audits several URLs with bounded concurrency.
//
// Each request goes through the orchestrator independently: a rejected or
// failed request never stops the others. Results keep the order of the
// input requests.
package batch
