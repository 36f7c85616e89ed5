package models

import (
	"time"

	"github.com/google/uuid"
)

// User holds one identity's points. FrozenPoints is the part of TotalPoints
// committed to open votes, open projects and pending withdrawals.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	TotalPoints  int64     `json:"total_points"`
	FrozenPoints int64     `json:"frozen_points"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Available is the spendable balance. It is always derived, never stored.
func (u *User) Available() int64 {
	return u.TotalPoints - u.FrozenPoints
}
