package models

import (
	"time"

	"github.com/google/uuid"
)

// Option is one side of a binary project.
type Option string

const (
	OptionYes Option = "yes"
	OptionNo  Option = "no"
)

// Options lists the fixed outcome set in display order.
var Options = []Option{OptionYes, OptionNo}

// Valid reports whether o is one of the two project outcomes.
func (o Option) Valid() bool {
	return o == OptionYes || o == OptionNo
}

// VoteDetail is one vote cast. A user may vote several times on either option.
type VoteDetail struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	VoterID   uuid.UUID `json:"voter_id"`
	Option    Option    `json:"option"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Project is a yes/no question with its tallies. HiddenByCreator is derived
// from the hidden keys and never written back.
type Project struct {
	ID                 uuid.UUID        `json:"id"`
	CreatorID          uuid.UUID        `json:"creator_id"`
	Title              string           `json:"title"`
	Description        string           `json:"description,omitempty"`
	MaxPointsPerOption int64            `json:"max_points_per_option"`
	Votes              map[Option]int64 `json:"votes"`
	VoteDetails        []VoteDetail     `json:"vote_details"`
	FrozenPoints       int64            `json:"frozen_points"`
	ResultPublished    bool             `json:"result_published"`
	Result             *Option          `json:"result,omitempty"`
	IsPaused           bool             `json:"is_paused"`
	CreatedAt          time.Time        `json:"created_at"`
	SettledAt          *time.Time       `json:"settled_at,omitempty"`
	HiddenByCreator    bool             `json:"hidden_by_creator"`
}

// Clone returns a deep copy so callers can mutate it without touching a snapshot.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Votes = make(map[Option]int64, len(p.Votes))
	for o, v := range p.Votes {
		cp.Votes[o] = v
	}
	cp.VoteDetails = append([]VoteDetail(nil), p.VoteDetails...)
	if p.Result != nil {
		r := *p.Result
		cp.Result = &r
	}
	if p.SettledAt != nil {
		t := *p.SettledAt
		cp.SettledAt = &t
	}
	return &cp
}

// Participants returns the creator followed by every distinct voter in cast order.
func (p *Project) Participants() []uuid.UUID {
	seen := map[uuid.UUID]bool{p.CreatorID: true}
	ids := []uuid.UUID{p.CreatorID}
	for _, v := range p.VoteDetails {
		if !seen[v.VoterID] {
			seen[v.VoterID] = true
			ids = append(ids, v.VoterID)
		}
	}
	return ids
}

// HiddenKey identifies a project hidden from one user's list.
type HiddenKey struct {
	UserID    uuid.UUID `json:"user_id"`
	ProjectID uuid.UUID `json:"project_id"`
}
