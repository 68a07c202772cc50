/*
operation.go - BalanceOperation variants

PURPOSE:
  Defines the shared accounting contract every ledger entry honors (id, date,
  signed money, status, kind) and the three flat variants: Credit, Debit and
  Order. Sales and returns live in their own files because they carry line
  items and their own engines.

SIGN CONVENTION:
  Money() always returns the operation's signed contribution to the balance:
    Credit  -> +amount
    Debit   -> -amount
    Order   -> -pricePerUnit * quantity
    Sale    -> +total (cached, see sale.go)
    Return  -> -refund (see returns.go)
  Credit and Debit store their magnitude positive; the sign lives in Money().

INVARIANTS:
  - ID and date are immutable after construction
  - SetStatus never touches money, id or date
  - Money for Credit/Debit is fixed at construction; Order derives it from
    its fields on every call

SEE ALSO:
  - sale.go:    SaleTransaction
  - returns.go: ReturnTransaction
  - book.go:    AccountBook registration and balance caching
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE OPERATION - shared accounting contract
// =============================================================================

// BalanceOperation is the contract shared by every ledger entry. The set of
// implementations is closed: Credit, Debit, Order, SaleTransaction and
// ReturnTransaction. Dispatch on Kind() for reporting.
type BalanceOperation interface {
	ID() int
	Date() time.Time
	// Money returns the signed contribution to the balance.
	Money() Money
	Status() OperationStatus
	// SetStatus mutates the status in place. It never changes money, id or
	// date; whether the transition is legal for the operation kind is the
	// calling workflow's responsibility.
	SetStatus(OperationStatus)
	Kind() OperationKind
}

// DisplayName maps a variant tag to the label used in reporting.
func (k OperationKind) DisplayName() string {
	switch k {
	case KindCredit:
		return "Credit"
	case KindDebit:
		return "Debit"
	case KindOrder:
		return "Order"
	case KindSale:
		return "Sale Transaction"
	case KindReturn:
		return "Return Transaction"
	}
	return string(k)
}

// operation carries the fields common to every variant.
type operation struct {
	id     int
	date   time.Time
	status OperationStatus
}

func (o *operation) ID() int                    { return o.id }
func (o *operation) Date() time.Time            { return o.date }
func (o *operation) Status() OperationStatus    { return o.status }
func (o *operation) SetStatus(s OperationStatus) { o.status = s }

// =============================================================================
// CREDIT - manual positive movement
// =============================================================================

// Credit records money entering the shop outside of a sale (e.g. an owner
// top-up). The amount is stored positive and contributes positively.
type Credit struct {
	operation
	amount Money
}

func NewCredit(id int, date time.Time, amount Money) (*Credit, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	return &Credit{
		operation: operation{id: id, date: date, status: StatusPaid},
		amount:    amount,
	}, nil
}

func (c *Credit) Money() Money        { return c.amount }
func (c *Credit) Amount() Money       { return c.amount }
func (c *Credit) Kind() OperationKind { return KindCredit }

// =============================================================================
// DEBIT - manual negative movement
// =============================================================================

// Debit records money leaving the shop outside of an order or return. The
// amount is stored positive and contributes negatively.
type Debit struct {
	operation
	amount Money
}

func NewDebit(id int, date time.Time, amount Money) (*Debit, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	return &Debit{
		operation: operation{id: id, date: date, status: StatusPaid},
		amount:    amount,
	}, nil
}

func (d *Debit) Money() Money        { return d.amount.Neg() }
func (d *Debit) Amount() Money       { return d.amount }
func (d *Debit) Kind() OperationKind { return KindDebit }

// =============================================================================
// ORDER - supplier restock order
// =============================================================================

// Order records a supplier order: a quantity of one product at an agreed
// per-unit price. Contributes negatively once paid. Money is derived from the
// fields on every call, so a full recompute always sees fresh values.
type Order struct {
	operation
	productCode  string
	pricePerUnit Money
	quantity     int
}

func NewOrder(id int, date time.Time, productCode string, pricePerUnit Money, quantity int) (*Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if pricePerUnit.IsNegative() {
		return nil, ErrInvalidAmount
	}
	return &Order{
		operation:    operation{id: id, date: date, status: StatusOpen},
		productCode:  productCode,
		pricePerUnit: pricePerUnit,
		quantity:     quantity,
	}, nil
}

func (o *Order) Money() Money {
	return o.pricePerUnit.Mul(decimal.NewFromInt(int64(o.quantity))).Neg()
}

func (o *Order) ProductCode() string  { return o.productCode }
func (o *Order) PricePerUnit() Money  { return o.pricePerUnit }
func (o *Order) Quantity() int        { return o.quantity }
func (o *Order) Kind() OperationKind  { return KindOrder }

// setProductCode supports catalog renumbering via AccountBook.UpdateBarcodeInOrders.
func (o *Order) setProductCode(code string) { o.productCode = code }
