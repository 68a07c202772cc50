/*
payments.go - Settlement of sales, returns and orders

PURPOSE:
  Payment is what flips an operation into the affects-balance states, so this
  file is where the cached balance actually moves. Every settlement records a
  Receipt with a unique reference for the back-office audit trail.

CARD VALIDATION:
  Credit card numbers are Luhn-checked here. The card circuit itself (does
  the card have funds?) is an external collaborator and out of scope; a
  number that passes the check is accepted.

SEE ALSO:
  - shop.go:  error sentinels
  - cards.go: loyalty points accrued on payment
*/
package shop

import (
	"time"

	"github.com/google/uuid"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
)

// =============================================================================
// RECEIPTS
// =============================================================================

type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodCard PaymentMethod = "card"
)

// Receipt records one settlement. Amount is positive for money taken in,
// negative for money handed back.
type Receipt struct {
	Ref         string
	OperationID int
	Method      PaymentMethod
	Amount      ledger.Money
	At          time.Time
}

func (s *Shop) recordReceipt(opID int, method PaymentMethod, amount ledger.Money) Receipt {
	r := Receipt{
		Ref:         uuid.NewString(),
		OperationID: opID,
		Method:      method,
		Amount:      amount,
		At:          s.now(),
	}
	s.receipts = append(s.receipts, r)
	return r
}

// Receipts returns every recorded settlement, oldest first.
func (s *Shop) Receipts() []Receipt {
	out := make([]Receipt, len(s.receipts))
	copy(out, s.receipts)
	return out
}

// RestoreReceipts replaces the settlement log with a persisted one.
// Persistence-only; payments append through recordReceipt.
func (s *Shop) RestoreReceipts(receipts []Receipt) {
	s.receipts = make([]Receipt, len(receipts))
	copy(s.receipts, receipts)
}

// =============================================================================
// SALE PAYMENTS
// =============================================================================

// ReceiveCashPayment settles a closed sale with cash and returns the change.
// ok=false for an unknown sale; ErrInsufficientCash when the cash does not
// cover the total; illegal-state unless the sale is CLOSED.
func (s *Shop) ReceiveCashPayment(saleID int, cash ledger.Money) (ledger.Money, bool, error) {
	sale, ok := s.book.GetSale(saleID)
	if !ok {
		return ledger.ZeroMoney(), false, nil
	}
	if sale.Status() != ledger.StatusClosed {
		return ledger.ZeroMoney(), false, &ledger.IllegalStateError{OperationID: saleID, Status: sale.Status(), Action: "pay sale"}
	}
	total := sale.ComputeTotal()
	if cash.LessThan(total) {
		return ledger.ZeroMoney(), false, ErrInsufficientCash
	}
	s.book.SetTransactionStatus(saleID, ledger.StatusPaid)
	s.recordReceipt(saleID, MethodCash, total)
	s.accruePoints(saleID)
	return cash.Sub(total), true, nil
}

// ReceiveCreditCardPayment settles a closed sale against a Luhn-valid card
// number. Loyalty points accrue to the card attached via AttachCardToSale,
// if any.
func (s *Shop) ReceiveCreditCardPayment(saleID int, cardNumber string) (bool, error) {
	if !luhnValid(cardNumber) {
		return false, ErrInvalidCreditCard
	}
	sale, ok := s.book.GetSale(saleID)
	if !ok {
		return false, nil
	}
	if sale.Status() != ledger.StatusClosed {
		return false, &ledger.IllegalStateError{OperationID: saleID, Status: sale.Status(), Action: "pay sale"}
	}
	s.book.SetTransactionStatus(saleID, ledger.StatusPaid)
	s.recordReceipt(saleID, MethodCard, sale.ComputeTotal())
	s.accruePoints(saleID)
	return true, nil
}

// =============================================================================
// RETURN REFUNDS
// =============================================================================

// refundReturn settles a committed return: the PAID transition is a no-move
// (COMPLETED already counts), so the refund amount was already carried by
// the completion; here we gate double refunds and cut the receipt.
func (s *Shop) refundReturn(returnID int, method PaymentMethod) (ledger.Money, bool, error) {
	ret, ok := s.book.GetReturn(returnID)
	if !ok {
		return ledger.ZeroMoney(), false, nil
	}
	if ret.Status() != ledger.StatusCompleted {
		return ledger.ZeroMoney(), false, &ledger.IllegalStateError{OperationID: returnID, Status: ret.Status(), Action: "refund return"}
	}
	refund := ret.Money().Neg() // positive amount handed back
	s.book.SetTransactionStatus(returnID, ledger.StatusPaid)
	s.recordReceipt(returnID, method, refund.Neg())
	return refund, true, nil
}

// ReturnCashPayment hands the refund back in cash. Returns the refunded
// amount; ok=false for an unknown return; illegal-state unless committed and
// not yet refunded.
func (s *Shop) ReturnCashPayment(returnID int) (ledger.Money, bool, error) {
	return s.refundReturn(returnID, MethodCash)
}

// ReturnCreditCardPayment refunds onto a Luhn-valid card.
func (s *Shop) ReturnCreditCardPayment(returnID int, cardNumber string) (ledger.Money, bool, error) {
	if !luhnValid(cardNumber) {
		return ledger.ZeroMoney(), false, ErrInvalidCreditCard
	}
	return s.refundReturn(returnID, MethodCard)
}

// =============================================================================
// LUHN CHECK
// =============================================================================

// luhnValid reports whether the digits pass the Luhn checksum. Empty strings
// and non-digits fail.
func luhnValid(number string) bool {
	if number == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
