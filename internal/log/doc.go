// Package log provides secure logging built on top of the standard slog
// package.
//
// Audits can carry per-site cookies and authorization headers, and target
// URLs sometimes embed access tokens in their query string. SecureHandler
// masks those values before any record reaches the underlying handler:
//   - attributes whose key names a secret (cookie, authorization, token, ...)
//   - values that look like credentials (bearer tokens, JWTs, long API keys)
//   - sensitive query parameters and passwords inside URL values
//   - sensitive entries of header maps
//
// Even in verbose mode, sensitive values are masked.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("navigating",
//	    "url", "https://example.com/?token=abc", // logged as ?token=***REDACTED***
//	    "cookie", "session=abc123",              // logged as ***REDACTED***
//	)
//	slog.SetDefault(logger)
package log
