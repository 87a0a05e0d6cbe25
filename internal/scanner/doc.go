// Package scanner is the stateless request/response boundary to the remote
// note-scanning service: the three-step signed-URL upload pipeline, job
// listing and lookup, result fetch, retry, delete, and health checks.
//
// Failures are translated into a typed taxonomy (sentinel errors matched with
// errors.Is); transport-level failures map to ErrNetwork and are never
// conflated with server-reported errors. The client performs no internal
// retries.
package scanner
