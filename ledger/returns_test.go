package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
)

// paidSale builds a book holding a PAID sale with 3 units of pasta at 10.
func paidSale(t *testing.T) (*ledger.AccountBook, *ledger.SaleTransaction) {
	t.Helper()
	book := ledger.NewAccountBook()
	sale := ledger.NewSaleTransaction(book.GenerateNewID(), today())
	if err := sale.AddItem(pasta(), 3); err != nil {
		t.Fatal(err)
	}
	sale.SetStatus(ledger.StatusPaid)
	if err := book.AddTransaction(sale); err != nil {
		t.Fatal(err)
	}
	return book, sale
}

// returnedPrice is the discounted unit price a return copies from a sale line.
func returnedPrice(sale *ledger.SaleTransaction, code string) ledger.Money {
	e, _ := sale.Entry(code)
	return e.Subtotal().Div(ledger.MoneyFromInt(int64(e.Quantity)))
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestReturn_RequiresDate(t *testing.T) {
	if _, err := ledger.NewReturnTransaction(2, time.Time{}, 1); !errors.Is(err, ledger.ErrInvalidDate) {
		t.Fatalf("want ErrInvalidDate, got %v", err)
	}
}

// =============================================================================
// PARTIAL RETURN CONSISTENCY
// =============================================================================

func TestReturn_CommitDecrementsSaleAndMoney(t *testing.T) {
	// GIVEN: a PAID sale with 3 units of P at 10 (balance 30)
	// WHEN: a return of 1 unit is committed and completed through the book
	// THEN: the sale keeps exactly 2 units, its money drops by 10, and the
	//       balance drops by the refund only at the status transition

	book, sale := paidSale(t)
	ret, err := ledger.NewReturnTransaction(book.GenerateNewID(), today(), sale.ID())
	if err != nil {
		t.Fatal(err)
	}
	if err := book.AddTransaction(ret); err != nil {
		t.Fatal(err)
	}

	if !ret.CanReturn(sale, pasta().Code, 1) {
		t.Fatal("1 of 3 units must be returnable")
	}
	if !ret.AddItem(pasta().Code, 1, returnedPrice(sale, pasta().Code)) {
		t.Fatal("AddItem rejected a valid item")
	}

	ok, err := ret.Commit(sale)
	if err != nil || !ok {
		t.Fatalf("Commit: ok=%v err=%v", ok, err)
	}
	if e, _ := sale.Entry(pasta().Code); e.Quantity != 2 {
		t.Fatalf("sale line quantity = %d, want 2", e.Quantity)
	}
	if !sale.Money().Equal(m(20)) {
		t.Fatalf("sale money = %v, want 20", sale.Money())
	}
	// Commit itself never touches the book's cache; only the status
	// transition through the book does.
	if !book.GetBalance().Equal(m(30)) {
		t.Fatalf("balance moved during commit: %v", book.GetBalance())
	}

	book.SetTransactionStatus(ret.ID(), ledger.StatusCompleted)
	if !book.GetBalance().Equal(m(20)) {
		t.Fatalf("balance after completion = %v, want 20", book.GetBalance())
	}
	if ret.Status() != ledger.StatusCompleted {
		t.Fatalf("return status = %s, want COMPLETED", ret.Status())
	}
}

func TestReturn_CannotExceedRemainingSaleQuantity(t *testing.T) {
	// GIVEN: a sale with 3 units, 1 already returned and committed
	// WHEN: a new return asks for 3 more
	// THEN: not allowed (only 2 remain)

	book, sale := paidSale(t)
	first, _ := ledger.NewReturnTransaction(book.GenerateNewID(), today(), sale.ID())
	first.AddItem(pasta().Code, 1, returnedPrice(sale, pasta().Code))
	if ok, err := first.Commit(sale); err != nil || !ok {
		t.Fatalf("first commit: ok=%v err=%v", ok, err)
	}

	second, _ := ledger.NewReturnTransaction(book.GenerateNewID(), today(), sale.ID())
	if second.CanReturn(sale, pasta().Code, 3) {
		t.Fatal("returning 3 of the remaining 2 must not be allowed")
	}
	if !second.CanReturn(sale, pasta().Code, 2) {
		t.Fatal("returning the remaining 2 must be allowed")
	}
}

func TestReturn_CapacityCountsItemsAlreadyOnThisReturn(t *testing.T) {
	// The invariant holds across the life of one return, not per call.

	_, sale := paidSale(t)
	ret, _ := ledger.NewReturnTransaction(2, today(), sale.ID())
	ret.AddItem(pasta().Code, 2, returnedPrice(sale, pasta().Code))

	if ret.CanReturn(sale, pasta().Code, 2) {
		t.Fatal("2 claimed + 2 more exceeds the 3 on the sale")
	}
	if !ret.CanReturn(sale, pasta().Code, 1) {
		t.Fatal("2 claimed + 1 more fits the 3 on the sale")
	}
}

func TestReturn_FailedCommitLeavesSaleUntouched(t *testing.T) {
	// GIVEN: two returns over the same line whose combined quantity overdraws
	// WHEN: the second commit no longer fits
	// THEN: it reports not-allowed and mutates nothing

	book, sale := paidSale(t)
	first, _ := ledger.NewReturnTransaction(book.GenerateNewID(), today(), sale.ID())
	first.AddItem(pasta().Code, 2, returnedPrice(sale, pasta().Code))
	second, _ := ledger.NewReturnTransaction(book.GenerateNewID(), today(), sale.ID())
	second.AddItem(pasta().Code, 2, returnedPrice(sale, pasta().Code))

	if ok, err := first.Commit(sale); err != nil || !ok {
		t.Fatal("first commit must pass")
	}
	ok, err := second.Commit(sale)
	if err != nil || ok {
		t.Fatalf("second commit: ok=%v err=%v, want false,nil", ok, err)
	}
	if e, _ := sale.Entry(pasta().Code); e.Quantity != 1 {
		t.Fatalf("failed commit mutated the sale: qty=%d", e.Quantity)
	}
}

// =============================================================================
// ROLLBACK
// =============================================================================

func TestReturn_RollbackLeavesSaleUntouched(t *testing.T) {
	// GIVEN: a return of 1 unit, never committed
	// WHEN: it is rolled back and removed from the book
	// THEN: the sale's quantity, money and the balance are as before

	book, sale := paidSale(t)
	moneyBefore := sale.Money()

	ret, _ := ledger.NewReturnTransaction(book.GenerateNewID(), today(), sale.ID())
	if err := book.AddTransaction(ret); err != nil {
		t.Fatal(err)
	}
	ret.AddItem(pasta().Code, 1, returnedPrice(sale, pasta().Code))

	if err := ret.Rollback(); err != nil {
		t.Fatal(err)
	}
	if !book.RemoveTransaction(ret.ID()) {
		t.Fatal("rolled-back return must be removable")
	}

	if e, _ := sale.Entry(pasta().Code); e.Quantity != 3 {
		t.Fatalf("rollback touched the sale: qty=%d", e.Quantity)
	}
	if !sale.Money().Equal(moneyBefore) {
		t.Fatalf("rollback touched sale money: %v", sale.Money())
	}
	assertBalance(t, book, 30)
}

func TestReturn_FinalizedRejectsSecondCommitOrRollback(t *testing.T) {
	_, sale := paidSale(t)
	ret, _ := ledger.NewReturnTransaction(2, today(), sale.ID())
	ret.AddItem(pasta().Code, 1, returnedPrice(sale, pasta().Code))
	if ok, err := ret.Commit(sale); err != nil || !ok {
		t.Fatal("commit must pass")
	}

	if _, err := ret.Commit(sale); !errors.Is(err, ledger.ErrReturnFinalized) {
		t.Fatalf("double commit: want ErrReturnFinalized, got %v", err)
	}
	if err := ret.Rollback(); !errors.Is(err, ledger.ErrReturnFinalized) {
		t.Fatalf("rollback after commit: want ErrReturnFinalized, got %v", err)
	}

	other, _ := ledger.NewReturnTransaction(3, today(), sale.ID())
	if err := other.Rollback(); err != nil {
		t.Fatal(err)
	}
	if _, err := other.Commit(sale); !errors.Is(err, ledger.ErrReturnFinalized) {
		t.Fatalf("commit after rollback: want ErrReturnFinalized, got %v", err)
	}
}

// =============================================================================
// SETTLED RETURNS IGNORE ITEM ADDS
// =============================================================================

func TestReturn_AddItemIgnoredOnceSettled(t *testing.T) {
	_, sale := paidSale(t)
	ret, _ := ledger.NewReturnTransaction(2, today(), sale.ID())
	ret.SetStatus(ledger.StatusClosed)

	if ret.AddItem(pasta().Code, 1, m(10)) {
		t.Fatal("add on a settled return must be ignored")
	}
	if len(ret.Items()) != 0 {
		t.Fatal("ignored add still recorded an item")
	}
	if !ret.Money().IsZero() {
		t.Fatalf("money = %v, want 0", ret.Money())
	}
}

// =============================================================================
// REFUND PRICING
// =============================================================================

func TestReturn_RefundUsesDiscountedLinePrice(t *testing.T) {
	// GIVEN: a sale line with a 20% line discount (unit price 10 -> 8)
	// WHEN: one unit is returned at return time
	// THEN: the refund is 8, not the shelf price

	book := ledger.NewAccountBook()
	sale := ledger.NewSaleTransaction(book.GenerateNewID(), today())
	if err := sale.AddItem(pasta(), 2); err != nil {
		t.Fatal(err)
	}
	if _, err := sale.ApplyDiscountToProduct(pasta().Code, rate(0.2)); err != nil {
		t.Fatal(err)
	}
	sale.SetStatus(ledger.StatusPaid)
	if err := book.AddTransaction(sale); err != nil {
		t.Fatal(err)
	}

	ret, _ := ledger.NewReturnTransaction(book.GenerateNewID(), today(), sale.ID())
	ret.AddItem(pasta().Code, 1, returnedPrice(sale, pasta().Code))

	if !ret.Money().Equal(m(-8)) {
		t.Fatalf("return money = %v, want -8", ret.Money())
	}
}
