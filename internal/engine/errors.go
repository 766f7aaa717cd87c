package engine

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// ErrorCode categorizes sync failures.
type ErrorCode string

const (
	// CodeRemoteUnavailable means network failure or timeout. Retryable.
	CodeRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE"

	// CodeRemoteRejected means validation or conflict. Surfaced to the user.
	CodeRemoteRejected ErrorCode = "REMOTE_REJECTED"

	// CodeUnauthorized means the API token was refused.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeLocalUnavailable means the on-device store failed.
	CodeLocalUnavailable ErrorCode = "LOCAL_UNAVAILABLE"

	// CodeNotFound means the id is absent in the target store.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeDuplicateID means a create hit an id that already exists.
	CodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// CodeSuperseded means a newer fetch replaced this one.
	CodeSuperseded ErrorCode = "SUPERSEDED"

	// CodeSessionClosed means the session stopped before the job ran.
	CodeSessionClosed ErrorCode = "SESSION_CLOSED"

	// CodeUnknown is reported for errors that carry no classification.
	CodeUnknown ErrorCode = "UNKNOWN"
)

var (
	// ErrSuperseded is returned by a fetch that a newer fetch replaced.
	ErrSuperseded = errors.New("fetch superseded by a newer request")

	// ErrSessionClosed is returned when the session stopped before the job ran.
	ErrSessionClosed = errors.New("sync session closed")
)

// SyncError is a classified engine failure.
type SyncError struct {
	Code ErrorCode
	Op   string // create, update, delete, fetch, replay, ...
	Kind model.Kind
	ID   int64
	Err  error
}

func (e *SyncError) Error() string {
	subject := e.Op
	if e.Kind != "" {
		subject = fmt.Sprintf("%s %s %d", e.Op, e.Kind, e.ID)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", subject, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", subject, e.Code, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// codedError is implemented by store and remote errors.
type codedError interface {
	SyncCode() string
}

// Classify returns the code of err, using fallback when err carries none.
// Uses errors.As so wrapped errors are classified by their cause.
func Classify(err error, fallback ErrorCode) ErrorCode {
	if err == nil {
		return ""
	}
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case errors.Is(err, ErrSuperseded):
		return CodeSuperseded
	case errors.Is(err, ErrSessionClosed):
		return CodeSessionClosed
	}
	var coded codedError
	if errors.As(err, &coded) {
		return ErrorCode(coded.SyncCode())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeRemoteUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CodeRemoteUnavailable
	}
	return fallback
}

// CodeOf returns the code of err, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	return Classify(err, CodeUnknown)
}

// IsRetryable reports whether retrying later may succeed.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeRemoteUnavailable
}

// IsNotFound reports whether err means the id is absent.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsDuplicateID reports whether err means the id already exists.
func IsDuplicateID(err error) bool {
	return CodeOf(err) == CodeDuplicateID
}

// UserMessage renders err as the single reason shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch CodeOf(err) {
	case CodeRemoteUnavailable:
		return "The server is unreachable. Check your connection and try again."
	case CodeRemoteRejected:
		return "The server rejected the change."
	case CodeUnauthorized:
		return "Authorization failed. Check your API token."
	case CodeLocalUnavailable:
		return "Local storage is unavailable."
	case CodeNotFound:
		return "The record no longer exists."
	case CodeDuplicateID:
		return "The record already exists."
	case CodeSuperseded:
		return "A newer request replaced this one."
	case CodeSessionClosed:
		return "Sync has stopped."
	default:
		return err.Error()
	}
}

func remoteError(op string, kind model.Kind, id int64, err error) error {
	return &SyncError{Code: Classify(err, CodeRemoteUnavailable), Op: op, Kind: kind, ID: id, Err: err}
}

func localError(op string, kind model.Kind, id int64, err error) error {
	return &SyncError{Code: Classify(err, CodeLocalUnavailable), Op: op, Kind: kind, ID: id, Err: err}
}
