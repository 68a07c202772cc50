/*
sale.go - Sale lifecycle workflows

PURPOSE:
  Drives a sale from an empty open ticket to a closed, payable transaction.
  Catalog lookups happen here (the core only ever sees snapshots), and so
  does the OPEN/CLOSED gating the core leaves to callers.

FLOW:
  id := shop.StartSaleTransaction()
  shop.AddProductToSale(id, "400638133390", 2)
  shop.ApplyDiscountRateToSale(id, 0.1)
  shop.EndSaleTransaction(id)               // OPEN -> CLOSED
  shop.ReceiveCashPayment(id, cash)         // CLOSED -> PAID (payments.go)

SEE ALSO:
  - ledger/sale.go: the engine these workflows drive
*/
package shop

import (
	"github.com/shopspring/decimal"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
)

// StartSaleTransaction opens a new empty sale and registers it. Returns its id.
func (s *Shop) StartSaleTransaction() int {
	sale := ledger.NewSaleTransaction(s.book.GenerateNewID(), s.now())
	// A fresh id cannot collide; registration of an OPEN sale never moves the balance.
	_ = s.book.AddTransaction(sale)
	return sale.ID()
}

// AddProductToSale adds quantity units of the catalog product to the sale.
// ok=false when the sale or the product is unknown.
func (s *Shop) AddProductToSale(saleID int, productCode string, quantity int) (bool, error) {
	sale, ok := s.book.GetSale(saleID)
	if !ok {
		return false, nil
	}
	product, ok := s.catalog.Product(productCode)
	if !ok {
		return false, nil
	}
	if err := sale.AddItem(product, quantity); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteProductFromSale removes quantity units of the product from the sale.
// ok=false for unknown sale, missing line, or overdraw.
func (s *Shop) DeleteProductFromSale(saleID int, productCode string, quantity int) (bool, error) {
	sale, ok := s.book.GetSale(saleID)
	if !ok {
		return false, nil
	}
	return sale.RemoveItem(productCode, quantity)
}

// ApplyDiscountRateToProduct sets the line discount for the product on the sale.
func (s *Shop) ApplyDiscountRateToProduct(saleID int, productCode string, rate decimal.Decimal) (bool, error) {
	sale, ok := s.book.GetSale(saleID)
	if !ok {
		return false, nil
	}
	return sale.ApplyDiscountToProduct(productCode, rate)
}

// ApplyDiscountRateToSale sets the transaction-level discount. Permitted
// while the sale is OPEN or CLOSED.
func (s *Shop) ApplyDiscountRateToSale(saleID int, rate decimal.Decimal) (bool, error) {
	sale, ok := s.book.GetSale(saleID)
	if !ok {
		return false, nil
	}
	if err := sale.SetDiscountRate(rate); err != nil {
		return false, err
	}
	return true, nil
}

// ComputePointsForSale returns the loyalty points the sale currently earns.
// ok=false for an unknown sale.
func (s *Shop) ComputePointsForSale(saleID int) (int, bool) {
	sale, ok := s.book.GetSale(saleID)
	if !ok {
		return 0, false
	}
	return sale.ComputePoints(), true
}

// EndSaleTransaction closes an open sale, freezing its ticket. The sale
// discount may still change until payment.
func (s *Shop) EndSaleTransaction(saleID int) (bool, error) {
	sale, ok := s.book.GetSale(saleID)
	if !ok {
		return false, nil
	}
	if sale.Status() != ledger.StatusOpen {
		return false, &ledger.IllegalStateError{OperationID: saleID, Status: sale.Status(), Action: "close sale"}
	}
	s.book.SetTransactionStatus(saleID, ledger.StatusClosed)
	return true, nil
}

// DeleteSaleTransaction undoes an unpaid sale, removing it from the book.
// Rejected once the sale has been paid.
func (s *Shop) DeleteSaleTransaction(saleID int) (bool, error) {
	sale, ok := s.book.GetSale(saleID)
	if !ok {
		return false, nil
	}
	if ledger.AffectsBalance(sale.Status()) {
		return false, &ledger.IllegalStateError{OperationID: saleID, Status: sale.Status(), Action: "delete sale"}
	}
	return s.book.RemoveTransaction(saleID), nil
}

// SaleTransaction resolves a sale for read-only inspection.
func (s *Shop) SaleTransaction(saleID int) (*ledger.SaleTransaction, bool) {
	return s.book.GetSale(saleID)
}
