/*
errors.go - Centralized error types for the account-book core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Workflow packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Invalid argument - bad quantity, discount outside [0,1), nil references
  2. Illegal state    - mutating a transaction after it left the editable states
  3. Ledger errors    - duplicate IDs, corrupted records

  "Not found" and "not allowed" are NOT errors in this package: probing for a
  missing transaction or overdrawing a return are routine outcomes that
  callers branch on, so they come back as booleans/ok flags.

USAGE:
  if errors.Is(err, ledger.ErrIllegalState) {
      // transaction already settled
  }

SEE ALSO:
  - sale.go, returns.go, book.go: producers of these errors
  - shop package: wraps them with workflow context
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidQuantity is returned when a quantity is zero or negative.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidDiscountRate is returned when a discount rate falls outside [0, 1).
	ErrInvalidDiscountRate = errors.New("discount rate must be in [0, 1)")

	// ErrInvalidAmount is returned when a stored amount is negative where a
	// positive magnitude is required (Credit/Debit construction).
	ErrInvalidAmount = errors.New("amount must not be negative")

	// ErrIllegalState is returned when a mutation arrives after the governing
	// transaction has left the state that permits it.
	ErrIllegalState = errors.New("transaction state does not permit this operation")

	// ErrDuplicateID is returned when registering an operation whose ID is
	// already present in the account book.
	ErrDuplicateID = errors.New("operation id already registered")

	// ErrNilOperation is returned when a nil operation is handed to the book.
	ErrNilOperation = errors.New("operation must not be nil")

	// ErrInvalidDate is returned when a required date is missing.
	ErrInvalidDate = errors.New("date is required")

	// ErrReturnFinalized is returned when committing or rolling back a return
	// transaction that was already committed or rolled back.
	ErrReturnFinalized = errors.New("return transaction already finalized")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IllegalStateError reports which operation was in which state when a
// forbidden mutation was attempted.
type IllegalStateError struct {
	OperationID int
	Status      OperationStatus
	Action      string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("cannot %s: operation %d is %s", e.Action, e.OperationID, e.Status)
}

func (e *IllegalStateError) Unwrap() error { return ErrIllegalState }

// DuplicateIDError reports a registration collision.
type DuplicateIDError struct {
	ID int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("operation id %d already registered", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidDiscountRate) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrIllegalState) ||
		errors.Is(err, ErrReturnFinalized)
}
