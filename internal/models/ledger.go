package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryType tags a history entry for display and localization. Values are stable.
type EntryType string

// Entries written while projects and votes are open.
const (
	EntryProjectFreeze  EntryType = "project_freeze"
	EntryVoteFreeze     EntryType = "vote_freeze"
	EntryWithdrawFreeze EntryType = "withdraw_freeze"
	EntryAdminGrant     EntryType = "admin_grant"
)

// Entries written by settlement.
const (
	EntryVotePenalty     EntryType = "vote_penalty"
	EntryVoteUnfreeze    EntryType = "vote_unfreeze"
	EntryVoteReward      EntryType = "vote_reward"
	EntryProjectIncome   EntryType = "project_income"
	EntryProjectPayout   EntryType = "project_payout"
	EntryProjectUnfreeze EntryType = "project_unfreeze"
)

// Entries written when an admin reviews a withdrawal request.
const (
	EntryWithdrawRelease EntryType = "withdraw_release"
	EntryWithdrawPayout  EntryType = "withdraw_payout"
)

// LedgerEntry is one line of a user's append-only points history.
// Delta is the change to TotalPoints; FrozenDelta the change to FrozenPoints.
type LedgerEntry struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	ProjectID    *uuid.UUID `json:"project_id,omitempty"`
	Type         EntryType  `json:"type"`
	Delta        int64      `json:"delta"`
	FrozenDelta  int64      `json:"frozen_delta"`
	Description  string     `json:"description"`
	BalanceAfter int64      `json:"balance_after"`
	FrozenAfter  int64      `json:"frozen_after"`
	CreatedAt    time.Time  `json:"created_at"`
}
