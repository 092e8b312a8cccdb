package models

import "database/sql"

// OwnerKey identifies who a cart belongs to: an authenticated user or an
// anonymous browser session. Exactly one of the two fields is set.
type OwnerKey struct {
	UserID    string
	SessionID string
}

func UserKey(userID string) OwnerKey {
	return OwnerKey{UserID: userID}
}

func SessionKey(sessionID string) OwnerKey {
	return OwnerKey{SessionID: sessionID}
}

func (k OwnerKey) IsUser() bool {
	return k.UserID != ""
}

func (k OwnerKey) IsZero() bool {
	return k.UserID == "" && k.SessionID == ""
}

// Columns returns the (user_id, session_id) pair as nullable SQL values, so
// queries can match rows with IS NOT DISTINCT FROM semantics.
func (k OwnerKey) Columns() (sql.NullString, sql.NullString) {
	var userID, sessionID sql.NullString
	if k.UserID != "" {
		userID = sql.NullString{String: k.UserID, Valid: true}
	}
	if k.SessionID != "" {
		sessionID = sql.NullString{String: k.SessionID, Valid: true}
	}
	return userID, sessionID
}
