package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cash-request-service/internal/models"
)

var (
	// ErrValidation is returned before any write when input is unusable.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when the addressed user, copy or acceptor does not exist.
	ErrNotFound = errors.New("not found")
)

// StateConflictError reports a transition rejected because of the copy's current status.
type StateConflictError struct {
	Op     string
	Status models.Status
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s rejected: request copy is %s", e.Op, e.Status)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// checkIDs rejects identifiers that cannot name a stored record.
func checkIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return notFoundf("%q", id)
		}
	}
	return nil
}
