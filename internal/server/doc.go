// Package server exposes audits over HTTP.
//
// Routes:
//
//	POST /api/audit        run an audit (model.Request in, model.Response out)
//	GET  /api/audits       list stored audits, optionally filtered by ?url=
//	GET  /api/audits/:id   fetch one stored audit
//	GET  /healthz          liveness probe
//
// Validation errors answer 400 and quota rejections 429. Engine failures
// are not HTTP errors: they are reported inside the response body.
package server
