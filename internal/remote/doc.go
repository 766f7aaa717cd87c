// Package remote is the REST client for the finance API.
//
// The client speaks the server's JSON dialect (see model's wire encoding),
// authenticates with a bearer token and forwards the correlation id and
// idempotency key carried by the request context.
//
// Every failure is returned as *StatusError or *NetworkError. Both expose
// SyncCode so the sync engine can classify them without importing this package.
package remote
