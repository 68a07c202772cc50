/*
returns.go - ReturnTransaction engine

PURPOSE:
  A return refunds part of a previously paid sale. It references the sale by
  ID only (resolved through the account book at use time, never owned) and
  prices every returned unit at the sale line's discounted unit price, so a
  discount already granted on the line is refunded, not the shelf price.

CAPACITY INVARIANT:
  Across the life of a return, the quantity returned for a product may not
  exceed the quantity still present on the originating sale for that product.
  CanReturn checks it; Commit re-validates before touching the sale so a
  failed commit leaves the sale untouched.

LIFECYCLE:
  Created OPEN. Commit decrements the matching sale lines (through the sale's
  ungated primitive) and refreshes the sale's cached money; it never touches
  the status or the book's balance. The caller completes the commit by
  transitioning the return to COMPLETED through the account book, and that
  single status change is what moves the balance by the return's negative
  money. Rollback discards the return without touching the sale; the account
  book removal is the caller's step. A finalized return rejects any second
  commit or rollback. Item adds after settlement are silently ignored.

SEE ALSO:
  - sale.go: removeEntry, the decrement primitive Commit relies on
  - book.go: weak-reference resolution and removal
*/
package ledger

import (
	"time"
)

// =============================================================================
// RETURN TRANSACTION
// =============================================================================

// ReturnTransaction is a BalanceOperation whose money is the negated sum of
// its return items.
type ReturnTransaction struct {
	operation
	saleID    int
	items     []*ReturnItem // insertion order
	byCode    map[string]*ReturnItem
	finalized bool
}

// NewReturnTransaction creates an OPEN return against the sale with the given
// ID. The date is required.
func NewReturnTransaction(id int, date time.Time, saleID int) (*ReturnTransaction, error) {
	if date.IsZero() {
		return nil, ErrInvalidDate
	}
	return &ReturnTransaction{
		operation: operation{id: id, date: date, status: StatusOpen},
		saleID:    saleID,
		byCode:    make(map[string]*ReturnItem),
	}, nil
}

// SaleID returns the originating sale's ID. Weak reference: resolve it
// through the account book.
func (r *ReturnTransaction) SaleID() int { return r.saleID }

// Money returns the negated refund total: a return reduces the balance.
func (r *ReturnTransaction) Money() Money {
	sum := ZeroMoney()
	for _, it := range r.items {
		sum = sum.Add(it.Refund())
	}
	return sum.Neg()
}

func (r *ReturnTransaction) Kind() OperationKind { return KindReturn }

// Items returns the return lines in insertion order.
func (r *ReturnTransaction) Items() []*ReturnItem {
	out := make([]*ReturnItem, len(r.items))
	copy(out, r.items)
	return out
}

// QuantityReturned returns how many units of code this return already holds.
func (r *ReturnTransaction) QuantityReturned(code string) int {
	if it, ok := r.byCode[code]; ok {
		return it.Quantity
	}
	return 0
}

// Finalized reports whether the return was already committed or rolled back.
func (r *ReturnTransaction) Finalized() bool { return r.finalized }

// =============================================================================
// ITEM MANAGEMENT
// =============================================================================

// CanReturn reports whether quantity more units of code fit within what the
// sale still holds, given what this return already claims.
func (r *ReturnTransaction) CanReturn(sale *SaleTransaction, code string, quantity int) bool {
	if quantity <= 0 {
		return false
	}
	e, ok := sale.Entry(code)
	if !ok {
		return false
	}
	return r.QuantityReturned(code)+quantity <= e.Quantity
}

// AddItem records quantity units of code at the given unit price, merging
// with an existing line for the same code. Once the return is settled (left
// OPEN, or finalized) the call is silently ignored and false is returned.
// Capacity against the sale is the caller's check, via CanReturn.
func (r *ReturnTransaction) AddItem(code string, quantity int, unitPrice Money) bool {
	if r.status != StatusOpen || r.finalized || quantity <= 0 {
		return false
	}
	if it, ok := r.byCode[code]; ok {
		it.Quantity += quantity
	} else {
		it := &ReturnItem{ProductCode: code, Quantity: quantity, UnitPrice: unitPrice}
		r.items = append(r.items, it)
		r.byCode[code] = it
	}
	return true
}

// =============================================================================
// COMMIT / ROLLBACK
// =============================================================================

// Commit permanently decrements the matching lines on the originating sale
// and refreshes the sale's cached money. Neither the return's status nor the
// book's balance moves here: the caller transitions the return to COMPLETED
// through the account book, and that status change carries the balance
// adjustment.
//
// All items are validated before any line is touched: a commit either applies
// entirely or not at all. Returns ok=false when some item no longer fits on
// the sale.
func (r *ReturnTransaction) Commit(sale *SaleTransaction) (bool, error) {
	if r.finalized {
		return false, ErrReturnFinalized
	}
	for _, it := range r.items {
		e, ok := sale.Entry(it.ProductCode)
		if !ok || it.Quantity > e.Quantity {
			return false, nil
		}
	}
	for _, it := range r.items {
		sale.removeEntry(it.ProductCode, it.Quantity)
	}
	sale.RefreshMoney()
	r.finalized = true
	return true, nil
}

// Rollback discards the return without touching the sale. Removing the
// operation from the account book is the caller's step.
func (r *ReturnTransaction) Rollback() error {
	if r.finalized {
		return ErrReturnFinalized
	}
	r.finalized = true
	return nil
}
