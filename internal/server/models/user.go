// Package models defines the entities persisted by the identity service.
package models

import "time"

// User is an identity record. Archived users keep their row and id so that
// change records referencing them stay resolvable; their Username is moved
// into the archived namespace.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Firstname    *string    `json:"firstname"`
	Patronym     *string    `json:"patronym"`
	Surname      *string    `json:"surname"`
	HPassword    string     `json:"-"`
	RefreshToken *string    `json:"-"`
	CreatedAt    time.Time  `json:"-"`
	ArchivedAt   *time.Time `json:"-"`
}

// Registration is the input of user creation.
type Registration struct {
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	Firstname *string `json:"firstname,omitempty"`
	Patronym  *string `json:"patronym,omitempty"`
	Surname   *string `json:"surname,omitempty"`
}

// Selector picks a single user by id or username. When both are set they
// must resolve to the same user.
type Selector struct {
	ID       *int64  `json:"id,omitempty"`
	Username *string `json:"username,omitempty"`
}

// UserQuery filters the tenant-facing user listing. Empty filters match all
// active users.
type UserQuery struct {
	IDs       []int64  `json:"ids,omitempty"`
	Usernames []string `json:"usernames,omitempty"`
}
