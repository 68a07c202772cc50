/*
returns.go - Return lifecycle workflows

PURPOSE:
  Drives a return from creation against a paid sale to its commit (which
  permanently shrinks the sale's ticket) or rollback (which discards the
  return without a trace). The refund itself is a payment concern
  (payments.go); committing only fixes what is owed.

WEAK REFERENCE:
  A return knows its sale only by id and resolves it through the account book
  on every use. The sale outlives any particular return.

PRICING:
  Each returned unit is priced at the sale line's discounted unit price at
  the moment the item is added to the return, so a line discount already
  granted is refunded, not the shelf price.

SEE ALSO:
  - ledger/returns.go: the engine, including the capacity invariant
*/
package shop

import (
	"github.com/shopspring/decimal"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
)

// StartReturnTransaction opens a return against a paid or completed sale.
// ok=false when the sale is unknown or not yet settled.
func (s *Shop) StartReturnTransaction(saleID int) (int, bool) {
	sale, ok := s.book.GetSale(saleID)
	if !ok || !ledger.AffectsBalance(sale.Status()) {
		return 0, false
	}
	ret, err := ledger.NewReturnTransaction(s.book.GenerateNewID(), s.now(), saleID)
	if err != nil {
		return 0, false
	}
	_ = s.book.AddTransaction(ret)
	return ret.ID(), true
}

// ReturnProduct adds quantity units of the product to the return, priced at
// the sale line's discounted unit price. ok=false when the return or sale is
// unknown, the product is not on the sale, or the quantity exceeds what the
// sale still holds.
func (s *Shop) ReturnProduct(returnID int, productCode string, quantity int) (bool, error) {
	ret, ok := s.book.GetReturn(returnID)
	if !ok {
		return false, nil
	}
	sale, ok := s.book.GetSale(ret.SaleID())
	if !ok {
		return false, nil
	}
	if !ret.CanReturn(sale, productCode, quantity) {
		return false, nil
	}
	entry, _ := sale.Entry(productCode)
	unit := entry.UnitPrice.Mul(decimal.NewFromInt(1).Sub(entry.DiscountRate))
	return ret.AddItem(productCode, quantity, unit), nil
}

// EndReturnTransaction finishes a return. With commit=true the sale's lines
// are decremented and the return is completed through the book, which is the
// step that moves the balance by the refund. With commit=false the return is
// rolled back and removed from the book, leaving the sale untouched.
func (s *Shop) EndReturnTransaction(returnID int, commit bool) (bool, error) {
	ret, ok := s.book.GetReturn(returnID)
	if !ok {
		return false, nil
	}
	if !commit {
		if err := ret.Rollback(); err != nil {
			return false, err
		}
		return s.book.RemoveTransaction(returnID), nil
	}
	sale, ok := s.book.GetSale(ret.SaleID())
	if !ok {
		return false, nil
	}
	ok, err := ret.Commit(sale)
	if err != nil || !ok {
		return false, err
	}
	s.book.SetTransactionStatus(returnID, ledger.StatusCompleted)
	return true, nil
}

// DeleteReturnTransaction removes a committed but not yet refunded return,
// restoring the sale's lines. ok=false when the return is unknown; rejected
// once refunded.
func (s *Shop) DeleteReturnTransaction(returnID int) (bool, error) {
	ret, ok := s.book.GetReturn(returnID)
	if !ok {
		return false, nil
	}
	if ret.Status() == ledger.StatusPaid {
		return false, &ledger.IllegalStateError{OperationID: returnID, Status: ret.Status(), Action: "delete return"}
	}
	if ret.Status() == ledger.StatusCompleted {
		// Undo the committed decrements before dropping the operation.
		if sale, ok := s.book.GetSale(ret.SaleID()); ok {
			for _, it := range ret.Items() {
				product := ledger.ProductInfo{Code: it.ProductCode, Price: it.UnitPrice}
				if entry, exists := sale.Entry(it.ProductCode); exists {
					product.Description = entry.Description
				}
				restoreSaleLine(sale, product, it.Quantity)
			}
			sale.RefreshMoney()
		}
	}
	return s.book.RemoveTransaction(returnID), nil
}

// restoreSaleLine re-adds returned units to a settled sale. The sale's
// AddItem gate only admits OPEN sales, so the restore goes through a
// temporary status flip on the object itself; the book's cache is adjusted
// by the removal that follows.
func restoreSaleLine(sale *ledger.SaleTransaction, product ledger.ProductInfo, quantity int) {
	prev := sale.Status()
	sale.SetStatus(ledger.StatusOpen)
	_ = sale.AddItem(product, quantity)
	sale.SetStatus(prev)
}

// ReturnTransaction resolves a return for read-only inspection.
func (s *Shop) ReturnTransaction(returnID int) (*ledger.ReturnTransaction, bool) {
	return s.book.GetReturn(returnID)
}
