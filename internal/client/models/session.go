package models

// SessionUser is the identity acting in the current interactive run.
// It is never persisted.
type SessionUser struct {
	Username string
	Role     Role

	// UserID is 0 when the identity did not come from a stored row.
	UserID int64
}
