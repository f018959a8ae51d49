package sessions

import "time"

// Session is an opaque bearer token bound to a user. A session is valid
// iff now < ExpiresAt; expired rows are ignored at read time and only
// removed by the explicit cleanup entry point.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
