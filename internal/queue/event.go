// Package queue defines message payloads exchanged over the message broker.
package queue

// UserRegisteredEvent is published after an account and its profile row
// exist.  It contains enough information for downstream consumers (welcome
// mail, CRM sync, analytics) without querying the identity provider.
type UserRegisteredEvent struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	RegisteredAt string `json:"registered_at"`
}

// UserUpdatedEvent is published after an admin changes a profile.  Fields
// lists the attribute names that were present in the update payload so
// consumers can react selectively (e.g. re-sync on role changes only).
type UserUpdatedEvent struct {
	UserID    string   `json:"user_id"`
	UpdatedBy string   `json:"updated_by"`
	Fields    []string `json:"fields"`
	UpdatedAt string   `json:"updated_at"`
}
