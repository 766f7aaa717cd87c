package remote

import (
	"fmt"
	"net/http"
)

// Sync error codes reported by SyncCode.
const (
	codeUnavailable  = "REMOTE_UNAVAILABLE"
	codeRejected     = "REMOTE_REJECTED"
	codeUnauthorized = "UNAUTHORIZED"
	codeNotFound     = "NOT_FOUND"
	codeDuplicateID  = "DUPLICATE_ID"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if len(e.Body) > 0 {
		body := e.Body
		if len(body) > 200 {
			body = body[:200]
		}
		msg += ": " + string(body)
	}
	return msg
}

// SyncCode maps the HTTP status onto the sync error taxonomy.
//
//	404                 NOT_FOUND
//	409 on create       DUPLICATE_ID
//	400, 409, 422       REMOTE_REJECTED
//	401, 403            UNAUTHORIZED
//	5xx, 408, 429       REMOTE_UNAVAILABLE
func (e *StatusError) SyncCode() string {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return codeNotFound
	case e.StatusCode == http.StatusConflict && e.Method == http.MethodPost:
		return codeDuplicateID
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return codeUnauthorized
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return codeUnavailable
	default:
		return codeRejected
	}
}

// NetworkError is a transport or decoding failure: the request may not have
// reached the server, or its answer could not be read.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SyncCode always reports REMOTE_UNAVAILABLE.
func (e *NetworkError) SyncCode() string { return codeUnavailable }
