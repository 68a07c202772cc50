/*
sale.go - SaleTransaction engine

PURPOSE:
  A sale is an ordered ticket of line items plus a transaction-level discount.
  This file owns line-item management (merge-by-code, removal, per-line
  discounts), the total computation, and loyalty point computation.

EDITABILITY RULES:
  - Line items mutate only while OPEN
  - The sale-level discount may still change while CLOSED (pre-payment),
    but not once PAID or COMPLETED
  - removeEntry, the low-level decrement, is deliberately NOT status-gated:
    the return-commit path uses it to shrink a COMPLETED sale. The exported
    RemoveItem enforces the OPEN gate for normal callers.

MONEY CACHING:
  ComputeTotal() recomputes the authoritative price from live line state on
  every call. Money() returns a cached copy refreshed on each line mutation
  and by RefreshMoney(); the AccountBook's full recompute calls RefreshMoney()
  to heal any drift after out-of-band line edits.

TOTAL FORMULA:
  (1 - saleDiscountRate) * Σ (1 - line.discountRate) * line.qty * line.unitPrice

SEE ALSO:
  - returns.go: partial returns against a sale
  - book.go:    registration and balance caching
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SALE TRANSACTION
// =============================================================================

// SaleTransaction is a BalanceOperation whose money derives from its ticket.
// Line items are unique per product code; re-adding a product merges
// quantities rather than duplicating the line.
type SaleTransaction struct {
	operation
	entries          []*TicketEntry // insertion order
	byCode           map[string]*TicketEntry
	saleDiscountRate decimal.Decimal
	money            Money // cached; refreshed on line mutation and RefreshMoney
}

func NewSaleTransaction(id int, date time.Time) *SaleTransaction {
	return &SaleTransaction{
		operation: operation{id: id, date: date, status: StatusOpen},
		byCode:    make(map[string]*TicketEntry),
	}
}

func (s *SaleTransaction) Money() Money        { return s.money }
func (s *SaleTransaction) Kind() OperationKind { return KindSale }

// DiscountRate returns the transaction-level discount in [0, 1).
func (s *SaleTransaction) DiscountRate() decimal.Decimal { return s.saleDiscountRate }

// Entries returns the ticket in insertion order. The slice is a copy; the
// entries are live pointers owned by the sale.
func (s *SaleTransaction) Entries() []*TicketEntry {
	out := make([]*TicketEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Entry returns the line for code, or ok=false if the product is not on the
// ticket. Missing is a routine outcome, not an error.
func (s *SaleTransaction) Entry(code string) (*TicketEntry, bool) {
	e, ok := s.byCode[code]
	return e, ok
}

// =============================================================================
// LINE ITEM MANAGEMENT
// =============================================================================

// AddItem adds quantity units of product to the ticket, snapshotting the
// catalog description and price. If a line for the code already exists the
// quantities are summed. OPEN only.
func (s *SaleTransaction) AddItem(product ProductInfo, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if s.status != StatusOpen {
		return &IllegalStateError{OperationID: s.id, Status: s.status, Action: "add item"}
	}
	if e, ok := s.byCode[product.Code]; ok {
		e.Quantity += quantity
	} else {
		e := &TicketEntry{
			ProductCode:  product.Code,
			Description:  product.Description,
			Quantity:     quantity,
			UnitPrice:    product.Price,
			DiscountRate: decimal.Zero,
		}
		s.entries = append(s.entries, e)
		s.byCode[product.Code] = e
	}
	s.money = s.ComputeTotal()
	return nil
}

// RemoveItem decrements the line for code by quantity, dropping the line when
// it reaches zero. Returns false if no line exists or quantity exceeds what
// the line holds (no partial overdraw). OPEN only; the return-commit path
// uses removeEntry directly instead.
func (s *SaleTransaction) RemoveItem(code string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	if s.status != StatusOpen {
		return false, &IllegalStateError{OperationID: s.id, Status: s.status, Action: "remove item"}
	}
	return s.removeEntry(code, quantity), nil
}

// removeEntry is the ungated decrement primitive shared by RemoveItem and the
// return-commit path. Returns false on missing line or overdraw; otherwise
// mutates the line and refreshes the cached money.
func (s *SaleTransaction) removeEntry(code string, quantity int) bool {
	e, ok := s.byCode[code]
	if !ok || quantity > e.Quantity {
		return false
	}
	e.Quantity -= quantity
	if e.Quantity == 0 {
		delete(s.byCode, code)
		for i, cur := range s.entries {
			if cur == e {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				break
			}
		}
	}
	s.money = s.ComputeTotal()
	return true
}

// ApplyDiscountToProduct sets the per-line discount for code. Returns false
// if the product is not on the ticket. OPEN only.
func (s *SaleTransaction) ApplyDiscountToProduct(code string, rate decimal.Decimal) (bool, error) {
	if !validDiscountRate(rate) {
		return false, ErrInvalidDiscountRate
	}
	if s.status != StatusOpen {
		return false, &IllegalStateError{OperationID: s.id, Status: s.status, Action: "discount product"}
	}
	e, ok := s.byCode[code]
	if !ok {
		return false, nil
	}
	e.DiscountRate = rate
	s.money = s.ComputeTotal()
	return true, nil
}

// SetDiscountRate sets the transaction-level discount. Permitted while OPEN
// or CLOSED; illegal once the sale has been paid.
func (s *SaleTransaction) SetDiscountRate(rate decimal.Decimal) error {
	if !validDiscountRate(rate) {
		return ErrInvalidDiscountRate
	}
	if s.status != StatusOpen && s.status != StatusClosed {
		return &IllegalStateError{OperationID: s.id, Status: s.status, Action: "set sale discount"}
	}
	s.saleDiscountRate = rate
	s.money = s.ComputeTotal()
	return nil
}

// =============================================================================
// TOTALS AND POINTS
// =============================================================================

// ComputeTotal recomputes the authoritative sale price from current line
// state: (1 - saleDiscount) * Σ line subtotals. Independent of the cached
// money field.
func (s *SaleTransaction) ComputeTotal() Money {
	sum := decimal.Zero
	for _, e := range s.entries {
		sum = sum.Add(e.Subtotal())
	}
	return sum.Mul(decimal.NewFromInt(1).Sub(s.saleDiscountRate))
}

// ComputePoints returns the loyalty points earned: one point per 10 currency
// units of the final total, truncated toward zero.
func (s *SaleTransaction) ComputePoints() int {
	return int(s.ComputeTotal().Div(decimal.NewFromInt(10)).IntPart())
}

// RefreshMoney overwrites the cached money with ComputeTotal(). Called by the
// return-commit path and by the account book's full recompute.
func (s *SaleTransaction) RefreshMoney() {
	s.money = s.ComputeTotal()
}
