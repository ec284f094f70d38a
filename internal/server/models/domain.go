package models

// Domain is a tenant registered to receive user lifecycle changes.
type Domain struct {
	ID     int64  `json:"id"`
	Key    string `json:"key"`
	Secret string `json:"-"`
}
