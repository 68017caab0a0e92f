package config

import "errors"

// Configuration validation errors returned by Config.Validate and the
// commands. Callers test them with errors.Is.
var (
	// ErrNoTarget is returned when the audit command receives no URL.
	ErrNoTarget = errors.New("no target specified: provide at least one URL")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidCrawlLimits is returned for a negative crawl depth or delay,
	// or a non-positive page limit.
	ErrInvalidCrawlLimits = errors.New("invalid crawl limits: depth must be >= 0 and max pages > 0")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidPolling is returned for a non-positive poll count or a
	// negative poll interval.
	ErrInvalidPolling = errors.New("invalid WAVE polling settings")

	// ErrInvalidEnvironment is returned for an environment other than
	// auto, sandbox or local.
	ErrInvalidEnvironment = errors.New("invalid environment: must be auto, sandbox or local")

	// ErrUnknownPlan is returned when a requested plan is not configured.
	ErrUnknownPlan = errors.New("unknown plan")
)
