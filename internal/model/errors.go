package model

import "errors"

// Error taxonomy shared by the orchestrator and the engines.
// Callers wrap these with fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	// ErrConfiguration is returned for a malformed or missing URL.
	// Requests failing this check are rejected before any engine runs.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnknownEngineSelector is returned for an engine value other than
	// wave, axe, rgaa or all.
	ErrUnknownEngineSelector = errors.New("unknown engine selector")

	// ErrBrowserLaunch is returned when no browser could be started,
	// including after the minimal fallback configuration.
	ErrBrowserLaunch = errors.New("browser launch error")

	// ErrNavigation is returned when a page could not be loaded in time or
	// answered with a non-success HTTP status.
	ErrNavigation = errors.New("navigation error")

	// ErrExtraction is returned when an engine output has no recognizable
	// pattern. Engines degrade to best-effort results instead of raising it
	// whenever they can.
	ErrExtraction = errors.New("extraction error")

	// ErrEngineTimeout marks in-page script execution that exceeded its bound.
	// It is treated as an empty but valid result.
	ErrEngineTimeout = errors.New("engine timeout")

	// ErrQuotaExceeded is returned by quota collaborators to reject a request.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// IsRequestError reports whether err must be surfaced as a rejected request
// rather than folded into a degraded result.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrUnknownEngineSelector) ||
		errors.Is(err, ErrQuotaExceeded)
}
