// Package settlement publishes a project's result and redistributes every
// staked point. It does no I/O: callers load a snapshot, call Settle and
// persist the Outcome in one transaction.
package settlement

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/ledger"
	"github.com/pivote/backend/internal/models"
)

// Input is the locked snapshot a settlement runs against.
type Input struct {
	Project       *models.Project
	Result        models.Option
	Accounts      map[uuid.UUID]models.User
	CreatorHidden bool
}

// Delta is the net change one settlement applied to one user.
type Delta struct {
	UserID uuid.UUID `json:"user_id"`
	Total  int64     `json:"total"`
	Frozen int64     `json:"frozen"`
}

type Summary struct {
	TotalCorrectPoints   int64 `json:"total_correct_points"`
	TotalIncorrectPoints int64 `json:"total_incorrect_points"`
	RewardsToOthers      int64 `json:"rewards_to_others"`
	Remaining            int64 `json:"remaining"`
	Winners              int   `json:"winners"`
	Losers               int   `json:"losers"`
}

// Outcome is everything a settlement changed. Nothing in it aliases the Input.
type Outcome struct {
	Project  *models.Project
	Deltas   []Delta
	Entries  []models.LedgerEntry
	Accounts map[uuid.UUID]models.User
	Summary  Summary
}

// Net sums the total-point deltas over every participant. A correct
// settlement always returns 0.
func (o *Outcome) Net() int64 {
	var n int64
	for _, d := range o.Deltas {
		n += d.Total
	}
	return n
}

type Engine struct {
	now func() time.Time
}

type EngineOption func(*Engine)

// WithClock overrides the time source used for entries and SettledAt.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Settle declares in.Result the winning option of in.Project.
//
// Incorrect stakes are forfeited to the creator. Each correct stake is
// unfrozen and, unless the voter is the creator, matched by an equal reward
// paid from the creator's balance. The creator's coverage is then unfrozen.
// Any failure returns before anything leaves the engine.
func (e *Engine) Settle(in Input) (*Outcome, error) {
	p := in.Project
	if !in.Result.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResult, in.Result)
	}
	if p.ResultPublished {
		return nil, ErrAlreadySettled
	}
	if in.CreatorHidden {
		return nil, ErrProjectUnavailable
	}

	now := e.now()
	ledgers := make(map[uuid.UUID]*ledger.Ledger)
	var order []uuid.UUID
	for _, id := range p.Participants() {
		u, ok := in.Accounts[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingAccount, id)
		}
		ledgers[id] = ledger.Open(u, func() time.Time { return now }).WithProject(p.ID)
		order = append(order, id)
	}

	var correct, incorrect []models.VoteDetail
	var sum Summary
	for _, v := range p.VoteDetails {
		if v.Option == in.Result {
			correct = append(correct, v)
			sum.TotalCorrectPoints += v.Points
		} else {
			incorrect = append(incorrect, v)
			sum.TotalIncorrectPoints += v.Points
		}
	}
	sum.Winners = len(correct)
	sum.Losers = len(incorrect)

	settled := p.Clone()
	result := in.Result
	settled.Result = &result
	settled.ResultPublished = true
	settled.SettledAt = &now

	for _, v := range incorrect {
		l := ledgers[v.VoterID]
		desc := fmt.Sprintf("Lost %d points on %q (%s)", v.Points, p.Title, v.Option)
		if err := l.Forfeit(v.Points, models.EntryVotePenalty, desc); err != nil {
			return nil, err
		}
	}

	for _, v := range correct {
		l := ledgers[v.VoterID]
		desc := fmt.Sprintf("Stake of %d points on %q returned", v.Points, p.Title)
		if err := l.Unfreeze(v.Points, models.EntryVoteUnfreeze, desc); err != nil {
			return nil, err
		}
		if v.VoterID == p.CreatorID {
			continue
		}
		sum.RewardsToOthers += v.Points
		desc = fmt.Sprintf("Reward of %d points for predicting %q", v.Points, p.Title)
		if err := l.Credit(v.Points, models.EntryVoteReward, desc); err != nil {
			return nil, err
		}
	}

	creator := ledgers[p.CreatorID]
	if sum.TotalIncorrectPoints > 0 {
		desc := fmt.Sprintf("Income of %d points from incorrect votes on %q", sum.TotalIncorrectPoints, p.Title)
		if err := creator.Credit(sum.TotalIncorrectPoints, models.EntryProjectIncome, desc); err != nil {
			return nil, err
		}
	}
	if sum.RewardsToOthers > 0 {
		desc := fmt.Sprintf("Paid %d points in rewards on %q", sum.RewardsToOthers, p.Title)
		if err := creator.Debit(sum.RewardsToOthers, models.EntryProjectPayout, desc); err != nil {
			return nil, err
		}
	}
	sum.Remaining = p.FrozenPoints - sum.RewardsToOthers
	desc := fmt.Sprintf("Coverage of %d points on %q released, %d left after rewards",
		p.FrozenPoints, p.Title, max(sum.Remaining, 0))
	if err := creator.Unfreeze(p.FrozenPoints, models.EntryProjectUnfreeze, desc); err != nil {
		return nil, err
	}

	out := &Outcome{
		Project:  settled,
		Accounts: make(map[uuid.UUID]models.User, len(ledgers)),
		Summary:  sum,
	}
	for _, id := range order {
		l := ledgers[id]
		if err := l.Check(); err != nil {
			return nil, err
		}
		u := l.User()
		u.UpdatedAt = now
		out.Accounts[id] = u
		total, frozen := l.Delta()
		out.Deltas = append(out.Deltas, Delta{UserID: id, Total: total, Frozen: frozen})
	}
	out.Entries = collectEntries(ledgers, order, p.CreatorID)
	sort.Slice(out.Deltas, func(i, j int) bool {
		return out.Deltas[i].UserID.String() < out.Deltas[j].UserID.String()
	})
	return out, nil
}

func collectEntries(ledgers map[uuid.UUID]*ledger.Ledger, order []uuid.UUID, creatorID uuid.UUID) []models.LedgerEntry {
	var entries []models.LedgerEntry
	for _, id := range order {
		if id == creatorID {
			continue
		}
		entries = append(entries, ledgers[id].Entries()...)
	}
	// The creator goes last; a self-vote's entries precede the pool settlement.
	return append(entries, ledgers[creatorID].Entries()...)
}
