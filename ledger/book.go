/*
book.go - AccountBook, the ledger itself

PURPOSE:
  The AccountBook exclusively owns every BalanceOperation once registered,
  hands out unique positive IDs, and keeps a cached running balance that is
  readable in O(1).

TWO BALANCE PATHS:
  1. INCREMENTAL: AddTransaction / RemoveTransaction / SetTransactionStatus
     adjust the cache by the operation's money whenever the affects-balance
     predicate holds or flips. Correct as long as an operation's money only
     changes through the sanctioned paths.
  2. FULL RECOMPUTE: ComputeBalance() re-derives money for the derived-value
     variants (sales refresh from their line items; orders and returns derive
     on every call) and re-sums everything, overwriting the cache. This is the
     recovery path after any out-of-band line-item mutation; it is idempotent
     and matches a correct incremental trace over any sequence of add, remove
     and status-change calls. Note that a committed return shrinks its sale's
     lines, so a recompute after one values the sale at its reduced total.

OWNERSHIP:
  No operation exists outside the book once registered, none is duplicated or
  aliased across books, and removal is permanent. Lookups for unknown IDs are
  routine outcomes, reported with ok=false rather than errors.

CONCURRENCY:
  Single-writer by design. No internal locking; embedders serialize mutations
  externally (the HTTP layer does).

SEE ALSO:
  - operation.go: the variants the book aggregates
  - store/sqlite:  persistence of a whole book
*/
package ledger

// =============================================================================
// ACCOUNT BOOK
// =============================================================================

type AccountBook struct {
	ops     map[int]BalanceOperation
	order   []int // registration order, for stable views
	nextID  int
	balance Money
}

func NewAccountBook() *AccountBook {
	return &AccountBook{
		ops:    make(map[int]BalanceOperation),
		nextID: 1,
	}
}

// =============================================================================
// ID GENERATION
// =============================================================================

// GenerateNewID returns a positive integer not assigned to any operation in
// the book. Sequential calls never repeat, registered or not.
func (b *AccountBook) GenerateNewID() int {
	id := b.nextID
	for {
		if _, taken := b.ops[id]; !taken {
			break
		}
		id++
	}
	b.nextID = id + 1
	return id
}

// =============================================================================
// REGISTRATION AND REMOVAL
// =============================================================================

// AddTransaction registers op. Registration with an already-present ID is
// rejected. If the operation currently affects the balance, the cache is
// incremented by its money immediately.
func (b *AccountBook) AddTransaction(op BalanceOperation) error {
	if op == nil {
		return ErrNilOperation
	}
	if _, exists := b.ops[op.ID()]; exists {
		return &DuplicateIDError{ID: op.ID()}
	}
	b.ops[op.ID()] = op
	b.order = append(b.order, op.ID())
	if op.ID() >= b.nextID {
		b.nextID = op.ID() + 1
	}
	if AffectsBalance(op.Status()) {
		b.balance = b.balance.Add(op.Money())
	}
	return nil
}

// RemoveTransaction deletes the operation, decrementing the cache first when
// the operation currently counts. Returns false for unknown IDs.
func (b *AccountBook) RemoveTransaction(id int) bool {
	op, ok := b.ops[id]
	if !ok {
		return false
	}
	if AffectsBalance(op.Status()) {
		b.balance = b.balance.Sub(op.Money())
	}
	delete(b.ops, id)
	for i, cur := range b.order {
		if cur == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// SetTransactionStatus transitions the operation's status in place. When the
// affects-balance predicate flips, the cache moves by the operation's money;
// the money itself is untouched. Returns false (no-op) for unknown IDs or
// unknown statuses.
func (b *AccountBook) SetTransactionStatus(id int, status OperationStatus) bool {
	if !ValidStatus(status) {
		return false
	}
	op, ok := b.ops[id]
	if !ok {
		return false
	}
	was := AffectsBalance(op.Status())
	now := AffectsBalance(status)
	op.SetStatus(status)
	if was != now {
		if now {
			b.balance = b.balance.Add(op.Money())
		} else {
			b.balance = b.balance.Sub(op.Money())
		}
	}
	return true
}

// =============================================================================
// QUERIES
// =============================================================================

// GetTransaction returns the operation for id, or ok=false.
func (b *AccountBook) GetTransaction(id int) (BalanceOperation, bool) {
	op, ok := b.ops[id]
	return op, ok
}

// GetAllTransactions returns every operation in registration order.
func (b *AccountBook) GetAllTransactions() []BalanceOperation {
	out := make([]BalanceOperation, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.ops[id])
	}
	return out
}

func (b *AccountBook) kindView(kind OperationKind) []BalanceOperation {
	var out []BalanceOperation
	for _, id := range b.order {
		if op := b.ops[id]; op.Kind() == kind {
			out = append(out, op)
		}
	}
	return out
}

func (b *AccountBook) GetCreditTransactions() []*Credit {
	var out []*Credit
	for _, op := range b.kindView(KindCredit) {
		out = append(out, op.(*Credit))
	}
	return out
}

func (b *AccountBook) GetDebitTransactions() []*Debit {
	var out []*Debit
	for _, op := range b.kindView(KindDebit) {
		out = append(out, op.(*Debit))
	}
	return out
}

func (b *AccountBook) GetOrders() []*Order {
	var out []*Order
	for _, op := range b.kindView(KindOrder) {
		out = append(out, op.(*Order))
	}
	return out
}

func (b *AccountBook) GetSaleTransactions() []*SaleTransaction {
	var out []*SaleTransaction
	for _, op := range b.kindView(KindSale) {
		out = append(out, op.(*SaleTransaction))
	}
	return out
}

func (b *AccountBook) GetReturnTransactions() []*ReturnTransaction {
	var out []*ReturnTransaction
	for _, op := range b.kindView(KindReturn) {
		out = append(out, op.(*ReturnTransaction))
	}
	return out
}

// GetSale resolves id to a sale transaction. The weak-reference lookup used
// by the return workflow.
func (b *AccountBook) GetSale(id int) (*SaleTransaction, bool) {
	op, ok := b.ops[id]
	if !ok {
		return nil, false
	}
	sale, ok := op.(*SaleTransaction)
	return sale, ok
}

// GetReturn resolves id to a return transaction.
func (b *AccountBook) GetReturn(id int) (*ReturnTransaction, bool) {
	op, ok := b.ops[id]
	if !ok {
		return nil, false
	}
	ret, ok := op.(*ReturnTransaction)
	return ret, ok
}

// =============================================================================
// BALANCE
// =============================================================================

// GetBalance returns the cached balance in O(1).
func (b *AccountBook) GetBalance() Money { return b.balance }

// CheckAvailability reports whether a non-negative amount is covered by the
// current balance.
func (b *AccountBook) CheckAvailability(amount Money) bool {
	return !amount.IsNegative() && amount.LessThanOrEqual(b.balance)
}

// ComputeBalance re-derives every derived money value and re-sums the
// operations whose status affects the balance, overwriting the cache. The
// authoritative recovery path; idempotent, callable at any time.
func (b *AccountBook) ComputeBalance() Money {
	total := ZeroMoney()
	for _, id := range b.order {
		op := b.ops[id]
		if sale, ok := op.(*SaleTransaction); ok {
			sale.RefreshMoney()
		}
		if AffectsBalance(op.Status()) {
			total = total.Add(op.Money())
		}
	}
	b.balance = total
	return total
}

// Reset clears all operations and zeroes the cache.
func (b *AccountBook) Reset() {
	b.ops = make(map[int]BalanceOperation)
	b.order = nil
	b.nextID = 1
	b.balance = ZeroMoney()
}

// =============================================================================
// CATALOG SUPPORT
// =============================================================================

// UpdateBarcodeInOrders rewrites the stored product code on every order
// matching oldCode, so a catalog renumbering does not orphan historical
// orders. Returns how many orders were rewritten.
func (b *AccountBook) UpdateBarcodeInOrders(oldCode, newCode string) int {
	n := 0
	for _, id := range b.order {
		if o, ok := b.ops[id].(*Order); ok && o.ProductCode() == oldCode {
			o.setProductCode(newCode)
			n++
		}
	}
	return n
}
