// Package ledger tracks one user's total and frozen points and records every
// mutation as a history entry. A Ledger works on a copy of the user; nothing is
// persisted until the caller takes User() and Entries() to the store.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pivote/backend/internal/models"
)

type Ledger struct {
	user    models.User
	opening models.User
	project *uuid.UUID
	entries []models.LedgerEntry
	now     func() time.Time
}

// Open starts a ledger over a copy of u. A nil now uses time.Now.
func Open(u models.User, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{user: u, opening: u, now: now}
}

// WithProject tags subsequent entries with the given project.
func (l *Ledger) WithProject(id uuid.UUID) *Ledger {
	l.project = &id
	return l
}

func (l *Ledger) UserID() uuid.UUID { return l.user.ID }

// User returns the current state of the user record.
func (l *Ledger) User() models.User { return l.user }

func (l *Ledger) Balance() int64 { return l.user.TotalPoints }

func (l *Ledger) Frozen() int64 { return l.user.FrozenPoints }

func (l *Ledger) Available() int64 { return l.user.TotalPoints - l.user.FrozenPoints }

// Delta returns the change in total and frozen points since Open.
func (l *Ledger) Delta() (total, frozen int64) {
	return l.user.TotalPoints - l.opening.TotalPoints, l.user.FrozenPoints - l.opening.FrozenPoints
}

// Entries returns the history entries appended since Open, in order.
func (l *Ledger) Entries() []models.LedgerEntry {
	out := make([]models.LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Freeze earmarks points. The balance does not move, only availability.
func (l *Ledger) Freeze(points int64, typ models.EntryType, desc string) error {
	if err := l.nonNegative("freeze", points); err != nil {
		return err
	}
	if points > l.Available() {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientPoints, points, l.Available())
	}
	l.user.FrozenPoints += points
	l.append(typ, 0, points, desc)
	return nil
}

// Unfreeze returns frozen points to the spendable balance.
func (l *Ledger) Unfreeze(points int64, typ models.EntryType, desc string) error {
	if err := l.nonNegative("unfreeze", points); err != nil {
		return err
	}
	if points > l.user.FrozenPoints {
		return l.violation("unfreeze", points)
	}
	l.user.FrozenPoints -= points
	l.append(typ, 0, -points, desc)
	return nil
}

func (l *Ledger) Credit(points int64, typ models.EntryType, desc string) error {
	if err := l.nonNegative("credit", points); err != nil {
		return err
	}
	l.user.TotalPoints += points
	l.append(typ, points, 0, desc)
	return nil
}

// Debit removes points from the balance. The balance may dip below the frozen
// amount while a transaction is in flight; Check catches it if it stays there.
func (l *Ledger) Debit(points int64, typ models.EntryType, desc string) error {
	if err := l.nonNegative("debit", points); err != nil {
		return err
	}
	if points > l.user.TotalPoints {
		return l.violation("debit", points)
	}
	l.user.TotalPoints -= points
	l.append(typ, -points, 0, desc)
	return nil
}

// Forfeit unfreezes points and debits the same amount as a single entry.
func (l *Ledger) Forfeit(points int64, typ models.EntryType, desc string) error {
	if err := l.nonNegative("forfeit", points); err != nil {
		return err
	}
	if points > l.user.FrozenPoints || points > l.user.TotalPoints {
		return l.violation("forfeit", points)
	}
	l.user.FrozenPoints -= points
	l.user.TotalPoints -= points
	l.append(typ, -points, -points, desc)
	return nil
}

// Note records a zero-delta entry.
func (l *Ledger) Note(typ models.EntryType, desc string) {
	l.append(typ, 0, 0, desc)
}

// Check verifies 0 <= frozen <= total.
func (l *Ledger) Check() error {
	if l.user.FrozenPoints < 0 || l.user.TotalPoints < 0 || l.user.FrozenPoints > l.user.TotalPoints {
		return l.violation("check", 0)
	}
	return nil
}

func (l *Ledger) nonNegative(op string, points int64) error {
	if points < 0 {
		return l.violation(op, points)
	}
	return nil
}

func (l *Ledger) violation(op string, points int64) error {
	return &InvariantError{
		UserID: l.user.ID,
		Op:     op,
		Points: points,
		Total:  l.user.TotalPoints,
		Frozen: l.user.FrozenPoints,
	}
}

func (l *Ledger) append(typ models.EntryType, delta, frozenDelta int64, desc string) {
	l.entries = append(l.entries, models.LedgerEntry{
		ID:           uuid.New(),
		UserID:       l.user.ID,
		ProjectID:    l.project,
		Type:         typ,
		Delta:        delta,
		FrozenDelta:  frozenDelta,
		Description:  desc,
		BalanceAfter: l.user.TotalPoints,
		FrozenAfter:  l.user.FrozenPoints,
		CreatedAt:    l.now(),
	})
}

// Net sums the total-point deltas of entries. A settled project's entries net to 0.
func Net(entries []models.LedgerEntry) int64 {
	var n int64
	for _, e := range entries {
		n += e.Delta
	}
	return n
}
