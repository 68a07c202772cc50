/*
Package shop is the caller-facing workflow layer over the account book.

PURPOSE:
  The ledger package deliberately leaves one question to its callers: which
  status transitions are legal for which operation kind. This package answers
  it. It owns an AccountBook and a Catalog collaborator and drives the sale,
  return, order and manual-movement lifecycles, enforcing the transition
  rules the core does not.

WHY A WRAPPER?
  The account book happily sets any status on any operation - that is its
  contract. But a shop must not pay a sale twice, refund an uncommitted
  return, or delete a paid sale. Those rules live here, next to payments,
  receipts and loyalty points, which are workflow concerns rather than
  accounting ones.

STATE TRANSITIONS ENFORCED HERE:
  Sale:   OPEN -(close)-> CLOSED -(payment)-> PAID
  Return: OPEN -(commit)-> COMPLETED -(refund)-> PAID, or OPEN -> removed
  Order:  OPEN -(pay)-> PAID -(arrival)-> COMPLETED

ERROR HANDLING:
  Invalid input and illegal transitions come back as errors (wrapping the
  ledger sentinels); unknown IDs and capacity violations come back as
  ok=false, the routine outcomes callers branch on.

SEE ALSO:
  - sale.go, returns.go, orders.go: the lifecycles
  - payments.go: cash/card settlement and receipts
  - cards.go: loyalty cards and points
*/
package shop

import (
	"errors"
	"time"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidCreditCard is returned when a card number fails the Luhn check.
	ErrInvalidCreditCard = errors.New("invalid credit card number")

	// ErrInsufficientCash is returned when handed cash does not cover the sale.
	ErrInsufficientCash = errors.New("cash does not cover the sale total")

	// ErrInsufficientFunds is returned when the balance cannot cover a payment.
	ErrInsufficientFunds = errors.New("balance cannot cover this payment")

	// ErrNegativeBalance is returned when a manual debit would drive the
	// balance below zero.
	ErrNegativeBalance = errors.New("update would drive the balance negative")
)

// =============================================================================
// SHOP
// =============================================================================

// Shop composes the account book with its collaborators. Single writer, like
// the book itself; the HTTP layer serializes calls.
type Shop struct {
	book    *ledger.AccountBook
	catalog ledger.Catalog

	cards      map[string]int // loyalty card code -> points
	cardBySale map[int]string // sale id -> card accruing its points
	receipts   []Receipt
	now        func() time.Time
}

func New(book *ledger.AccountBook, catalog ledger.Catalog) *Shop {
	return &Shop{
		book:       book,
		catalog:    catalog,
		cards:      make(map[string]int),
		cardBySale: make(map[int]string),
		now:        time.Now,
	}
}

// Book exposes the underlying account book for queries and persistence.
func (s *Shop) Book() *ledger.AccountBook { return s.book }

// =============================================================================
// BALANCE QUERIES AND MANUAL MOVEMENTS
// =============================================================================

// Balance returns the cached running balance.
func (s *Shop) Balance() ledger.Money { return s.book.GetBalance() }

// RecomputeBalance runs the authoritative full recompute.
func (s *Shop) RecomputeBalance() ledger.Money { return s.book.ComputeBalance() }

// RecordBalanceUpdate registers a manual movement: a Credit when amount is
// positive, a Debit when negative. A debit that would drive the balance
// negative is rejected.
func (s *Shop) RecordBalanceUpdate(amount ledger.Money) (int, error) {
	id := s.book.GenerateNewID()
	var op ledger.BalanceOperation
	var err error
	if amount.IsNegative() {
		if !s.book.CheckAvailability(amount.Neg()) {
			return 0, ErrNegativeBalance
		}
		op, err = ledger.NewDebit(id, s.now(), amount.Neg())
	} else {
		op, err = ledger.NewCredit(id, s.now(), amount)
	}
	if err != nil {
		return 0, err
	}
	if err := s.book.AddTransaction(op); err != nil {
		return 0, err
	}
	return id, nil
}

// Reset clears the book, the loyalty cards and the receipts.
func (s *Shop) Reset() {
	s.book.Reset()
	s.cards = make(map[string]int)
	s.cardBySale = make(map[int]string)
	s.receipts = nil
}
