package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvariant matches every *InvariantError. It signals a defect upstream
// (stake validation, bookkeeping), never a condition worth retrying.
var ErrInvariant = errors.New("ledger invariant violated")

// ErrInsufficientPoints is returned when a freeze asks for more than is available.
var ErrInsufficientPoints = errors.New("insufficient available points")

// InvariantError describes the operation that would have broken 0 <= frozen <= total.
type InvariantError struct {
	UserID uuid.UUID
	Op     string
	Points int64
	Total  int64
	Frozen int64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("ledger invariant violated: %s %d on user %s (total %d, frozen %d)",
		e.Op, e.Points, e.UserID, e.Total, e.Frozen)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}
