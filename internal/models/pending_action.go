// Package models provides data model definitions for the EduSync client core.
package models

import (
	"encoding/json"
	"time"
)

// PendingAction represents one mutating HTTP request that has not yet
// been confirmed by the server. It is created when a mutating call is
// attempted while offline (or fails in flight) and destroyed by a
// successful replay or by exceeding the retry cap.
type PendingAction struct {
	ID        string            `json:"id" db:"id"`
	URL       string            `json:"url" db:"url"`
	Method    string            `json:"method" db:"method"`
	Body      json.RawMessage   `json:"body,omitempty" db:"body"`
	Headers   map[string]string `json:"headers,omitempty" db:"headers"`
	CreatedAt int64             `json:"created_at" db:"created_at"`
	Retries   int               `json:"retries" db:"retries"`
}

// TableName returns the table name for PendingAction.
func (PendingAction) TableName() string {
	return "pending_actions"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (a *PendingAction) CreatedAtTime() time.Time {
	return time.Unix(a.CreatedAt, 0)
}
