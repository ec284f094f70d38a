package models

import (
	"fmt"
	"time"
)

type ChangeAction string

const (
	ChangeActionNew ChangeAction = "new"
	ChangeActionDel ChangeAction = "del"
)

func ParseChangeAction(s string) (ChangeAction, error) {
	switch ChangeAction(s) {
	case ChangeActionNew, ChangeActionDel:
		return ChangeAction(s), nil
	default:
		return "", fmt.Errorf("unknown change action %q", s)
	}
}

// Change is an immutable audit entry. UserID is a detached reference: it is
// not a foreign key and survives whatever happens to the user row.
type Change struct {
	ID        int64        `json:"id"`
	CreatedAt time.Time    `json:"created"`
	Action    ChangeAction `json:"action"`
	UserID    int64        `json:"user_id"`
}
