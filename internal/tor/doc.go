// Package tor routes audits through the Tor network.
//
// A Route wraps a SOCKS5 proxy: either an external daemon, probed before
// use, or one embedded with tornago and stopped by Route.Close. Browser
// sessions take Route.ProxyURL; the axe script download and page discovery
// take Route.HTTPClient.
//
// Targets on .onion hosts need a route. RequiresTor detects them and
// CheckTarget rejects malformed v3 addresses before any browser starts.
package tor
