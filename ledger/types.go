/*
Package ledger provides the account-book core of the shop back office.

PURPOSE:
  This package contains the types and algorithms for recording every event
  that changes the shop's cash position: sales, returns, supplier orders and
  manual credits/debits. The AccountBook owns the full set of operations and
  keeps a running balance consistent with each operation's status.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money helpers: decimal-backed amounts (never float64 for currency)
  - OperationStatus: the lifecycle state gating balance inclusion
  - OperationKind: the closed set of operation variants
  - TicketEntry / ReturnItem: line items inside sales and returns

DESIGN PRINCIPLES:
  1. Precision: uses decimal.Decimal to avoid floating-point errors
  2. Snapshotting: line items copy product data at add time, so later
     catalog edits never rewrite historical tickets
  3. Single writer: no internal locking; callers serialize mutations
  4. Closed variants: OperationKind is a fixed set, not an open interface

USAGE:
  book := ledger.NewAccountBook()
  credit := ledger.NewCredit(book.GenerateNewID(), time.Now(), ledger.MoneyFromFloat(50))
  credit.SetStatus(ledger.StatusPaid)
  book.AddTransaction(credit)
  book.GetBalance() // 50

SEE ALSO:
  - operation.go: BalanceOperation variants (Credit, Debit, Order)
  - sale.go:      SaleTransaction engine
  - returns.go:   ReturnTransaction engine
  - book.go:      AccountBook (the ledger itself)
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - decimal-backed currency amounts
// =============================================================================

// Money is an alias kept for readability at call sites; all monetary values
// in this package are decimal.Decimal.
type Money = decimal.Decimal

func MoneyFromFloat(v float64) Money { return decimal.NewFromFloat(v) }

func MoneyFromInt(v int64) Money { return decimal.NewFromInt(v) }

func ZeroMoney() Money { return decimal.Zero }

// MustParseMoney parses a decimal string, returning zero on malformed input.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// OPERATION STATUS - gates inclusion in the balance
// =============================================================================

type OperationStatus string

const (
	StatusOpen      OperationStatus = "OPEN"
	StatusClosed    OperationStatus = "CLOSED"
	StatusPaid      OperationStatus = "PAID"
	StatusCompleted OperationStatus = "COMPLETED"
)

// AffectsBalance is the sole determinant of ledger inclusion: only PAID and
// COMPLETED operations count toward the balance. Re-evaluated on every status
// change, never cached.
func AffectsBalance(s OperationStatus) bool {
	return s == StatusPaid || s == StatusCompleted
}

// ValidStatus reports whether s is one of the four known states.
func ValidStatus(s OperationStatus) bool {
	switch s {
	case StatusOpen, StatusClosed, StatusPaid, StatusCompleted:
		return true
	}
	return false
}

// =============================================================================
// OPERATION KIND - closed set of variants
// =============================================================================

type OperationKind string

const (
	KindCredit OperationKind = "CREDIT"
	KindDebit  OperationKind = "DEBIT"
	KindOrder  OperationKind = "ORDER"
	KindSale   OperationKind = "SALE"
	KindReturn OperationKind = "RETURN"
)

// =============================================================================
// LINE ITEMS
// =============================================================================

// TicketEntry is one line of a sale: a quantity of a product at a snapshotted
// unit price with an optional per-line discount. The product code, description
// and price are copied at add time; they are never re-read from the catalog.
type TicketEntry struct {
	ProductCode  string
	Description  string
	Quantity     int
	UnitPrice    Money
	DiscountRate decimal.Decimal // in [0, 1)
}

// Subtotal returns (1 - discountRate) * quantity * unitPrice.
func (e TicketEntry) Subtotal() Money {
	gross := e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
	return gross.Mul(decimal.NewFromInt(1).Sub(e.DiscountRate))
}

// ReturnItem is one line of a return: a quantity of a product priced at the
// unit price copied from the originating sale line at return time, so any
// line discount already granted is captured in the refund.
type ReturnItem struct {
	ProductCode string
	Quantity    int
	UnitPrice   Money
}

// Refund returns quantity * unitPrice (positive; the return transaction
// negates it).
func (i ReturnItem) Refund() Money {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// validDiscountRate reports whether rate is inside [0, 1).
func validDiscountRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThan(decimal.NewFromInt(1))
}
