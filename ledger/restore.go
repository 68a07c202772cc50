/*
restore.go - Rehydration support for persistence

PURPOSE:
  The persistence collaborator must rebuild operations exactly as they were
  saved, including states the normal constructors cannot reach (a COMPLETED
  sale with decremented lines, a finalized return). These constructors bypass
  the workflow gates for that one purpose; they are not for general use.

The cached balance is restored verbatim rather than recomputed so that a
save/load cycle reproduces the incremental trace exactly, committed returns
included.
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// RestoreCredit rebuilds a saved credit.
func RestoreCredit(id int, date time.Time, status OperationStatus, amount Money) *Credit {
	return &Credit{operation: operation{id: id, date: date, status: status}, amount: amount}
}

// RestoreDebit rebuilds a saved debit. amount is the stored positive magnitude.
func RestoreDebit(id int, date time.Time, status OperationStatus, amount Money) *Debit {
	return &Debit{operation: operation{id: id, date: date, status: status}, amount: amount}
}

// RestoreOrder rebuilds a saved order.
func RestoreOrder(id int, date time.Time, status OperationStatus, productCode string, pricePerUnit Money, quantity int) *Order {
	return &Order{
		operation:    operation{id: id, date: date, status: status},
		productCode:  productCode,
		pricePerUnit: pricePerUnit,
		quantity:     quantity,
	}
}

// RestoreSaleTransaction rebuilds a saved sale with its ticket in the given
// order. The cached money is re-derived from the restored lines.
func RestoreSaleTransaction(id int, date time.Time, status OperationStatus, discountRate decimal.Decimal, entries []TicketEntry) *SaleTransaction {
	s := &SaleTransaction{
		operation:        operation{id: id, date: date, status: status},
		byCode:           make(map[string]*TicketEntry, len(entries)),
		saleDiscountRate: discountRate,
	}
	for i := range entries {
		e := entries[i]
		s.entries = append(s.entries, &e)
		s.byCode[e.ProductCode] = &e
	}
	s.money = s.ComputeTotal()
	return s
}

// RestoreReturnTransaction rebuilds a saved return, preserving the weak
// reference to its sale and whether it was already finalized.
func RestoreReturnTransaction(id int, date time.Time, status OperationStatus, saleID int, finalized bool, items []ReturnItem) *ReturnTransaction {
	r := &ReturnTransaction{
		operation: operation{id: id, date: date, status: status},
		saleID:    saleID,
		byCode:    make(map[string]*ReturnItem, len(items)),
		finalized: finalized,
	}
	for i := range items {
		it := items[i]
		r.items = append(r.items, &it)
		r.byCode[it.ProductCode] = &it
	}
	return r
}

// RestoreBalance overwrites the cached balance with a saved value.
// Persistence-only; everyone else goes through the incremental paths or
// ComputeBalance.
func (b *AccountBook) RestoreBalance(balance Money) {
	b.balance = balance
}
