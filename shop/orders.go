/*
orders.go - Supplier order workflows

PURPOSE:
  Drives a supplier order through its three stations: issued (OPEN, not yet
  counted), paid (PAID, the outflow hits the balance) and arrived
  (COMPLETED, goods received; no further money movement).

AVAILABILITY:
  Paying an order requires the balance to cover it; the shop never runs a
  negative cash position on purpose.
*/
package shop

import (
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
)

// IssueOrder registers a new OPEN order for quantity units of the catalog
// product at pricePerUnit. ok=false for an unknown product.
func (s *Shop) IssueOrder(productCode string, quantity int, pricePerUnit ledger.Money) (int, bool, error) {
	if _, ok := s.catalog.Product(productCode); !ok {
		return 0, false, nil
	}
	order, err := ledger.NewOrder(s.book.GenerateNewID(), s.now(), productCode, pricePerUnit, quantity)
	if err != nil {
		return 0, false, err
	}
	if err := s.book.AddTransaction(order); err != nil {
		return 0, false, err
	}
	return order.ID(), true, nil
}

// PayOrder settles an issued order, moving it to PAID. ok=false for an
// unknown order; ErrInsufficientFunds when the balance cannot cover it;
// illegal-state unless the order is OPEN.
func (s *Shop) PayOrder(orderID int) (bool, error) {
	op, ok := s.book.GetTransaction(orderID)
	if !ok {
		return false, nil
	}
	order, ok := op.(*ledger.Order)
	if !ok {
		return false, nil
	}
	if order.Status() != ledger.StatusOpen {
		return false, &ledger.IllegalStateError{OperationID: orderID, Status: order.Status(), Action: "pay order"}
	}
	cost := order.Money().Neg()
	if !s.book.CheckAvailability(cost) {
		return false, ErrInsufficientFunds
	}
	s.book.SetTransactionStatus(orderID, ledger.StatusPaid)
	s.recordReceipt(orderID, MethodCash, cost.Neg())
	return true, nil
}

// RecordOrderArrival marks a paid order as arrived (COMPLETED). The goods
// inventory itself is the catalog collaborator's concern.
func (s *Shop) RecordOrderArrival(orderID int) (bool, error) {
	op, ok := s.book.GetTransaction(orderID)
	if !ok {
		return false, nil
	}
	order, ok := op.(*ledger.Order)
	if !ok {
		return false, nil
	}
	if order.Status() != ledger.StatusPaid {
		return false, &ledger.IllegalStateError{OperationID: orderID, Status: order.Status(), Action: "record arrival"}
	}
	s.book.SetTransactionStatus(orderID, ledger.StatusCompleted)
	return true, nil
}
