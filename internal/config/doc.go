// Package config provides configuration structures and utilities for a11yscan.
// It defines the audit options (engines, timeouts, scanner endpoints),
// the optional .a11yscan file with per-site settings and plan quotas, and
// environment overrides loaded from .env files.
package config
