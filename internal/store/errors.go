package store

// Error is a store failure the sync engine can classify.
type Error struct {
	code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// SyncCode reports the sync error code for this failure.
func (e *Error) SyncCode() string { return e.code }

var (
	// ErrNotFound is returned when the target row does not exist.
	ErrNotFound = &Error{code: "NOT_FOUND", msg: "not found"}

	// ErrDuplicateID is returned when creating a row whose id already exists.
	ErrDuplicateID = &Error{code: "DUPLICATE_ID", msg: "duplicate id"}
)
