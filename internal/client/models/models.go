// Package models defines the records the tenant mirror receives from the
// identity service and keeps locally.
package models

import "time"

// ChangeAction is the kind of lifecycle event carried by a Change.
type ChangeAction string

const (
	ChangeActionNew ChangeAction = "new"
	ChangeActionDel ChangeAction = "del"
)

// Change is one entry of the domain's change feed.
type Change struct {
	ID        int64        `json:"id"`
	CreatedAt time.Time    `json:"created"`
	Action    ChangeAction `json:"action"`
	UserID    int64        `json:"user_id"`
}

// User is the mirrored profile of an identity service user.
type User struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Firstname *string `json:"firstname"`
	Patronym  *string `json:"patronym"`
	Surname   *string `json:"surname"`

	// SyncedAt is local bookkeeping and never comes over the wire.
	SyncedAt time.Time `json:"-"`
}
