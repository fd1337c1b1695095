package models

import "time"

// User holds the presence-relevant view of an account. Credential issuance
// lives in the auth service; this service only reads identity and flips the
// online/last-seen fields.
type User struct {
	ID       int       `db:"id" json:"id"`
	Username string    `db:"username" json:"username"`
	IsOnline bool      `db:"is_online" json:"is_online"`
	LastSeen time.Time `db:"last_seen" json:"last_seen"`
}

// UserSummary is the embedded sender/participant view returned with
// conversations and messages.
type UserSummary struct {
	ID       int    `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	IsOnline bool   `db:"is_online" json:"is_online"`
}
