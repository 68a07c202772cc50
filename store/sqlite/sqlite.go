/*
Package sqlite persists the account book and the product catalog.

PURPOSE:
  Implements the persistence collaborator: the whole account book (every
  operation with its variant identity, nested line items, and the cached
  balance) and the catalog's product table survive a save/load cycle intact,
  including the weak reference from each return transaction to its sale.

SERIALIZATION MODEL:
  The ledger is a single-writer, in-memory structure, so persistence is
  snapshot-style: SaveBook rewrites the operation tables atomically inside
  one database transaction; LoadBook rebuilds the book in registration
  order. There is no per-operation UPDATE surface.

KEY TABLES:
  operations:    one row per BalanceOperation, tagged by kind; variant
                 columns are NULL where they do not apply
  sale_items:    the ticket lines of sales, ordered
  return_items:  the lines of returns, ordered
  book_meta:     the cached balance
  products:      the catalog collaborator's table
  receipts:      the settlement log, in recording order

MONEY COLUMNS:
  Stored as decimal strings, never floats, round-tripped through
  shopspring/decimal.

WAL MODE:
  SQLite is opened with WAL for better crash recovery; a mutex serializes
  writers, matching the single-writer contract of the core.

USAGE:
  st, err := sqlite.New("./shop.db")
  ...
  st.SaveBook(ctx, shop.Book())
  book, err := st.LoadBook(ctx)

SEE ALSO:
  - ledger/restore.go: the rehydration constructors used by LoadBook
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/shop"
)

// Store persists the account book and catalog in SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- One row per BalanceOperation; kind selects which variant columns apply.
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY,
		kind TEXT NOT NULL,
		op_date TEXT NOT NULL,
		status TEXT NOT NULL,
		position INTEGER NOT NULL,        -- registration order
		amount TEXT,                      -- credit/debit magnitude
		product_code TEXT,                -- orders
		price_per_unit TEXT,              -- orders
		quantity INTEGER,                 -- orders
		discount_rate TEXT,               -- sales
		sale_id INTEGER,                  -- returns: originating sale
		finalized BOOLEAN                 -- returns
	);

	CREATE INDEX IF NOT EXISTS idx_operations_kind ON operations(kind);
	CREATE INDEX IF NOT EXISTS idx_operations_position ON operations(position);

	-- Ticket lines of sales, in ticket order.
	CREATE TABLE IF NOT EXISTS sale_items (
		operation_id INTEGER NOT NULL REFERENCES operations(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		product_code TEXT NOT NULL,
		description TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		discount_rate TEXT NOT NULL,
		PRIMARY KEY (operation_id, position)
	);

	-- Lines of return transactions, in order.
	CREATE TABLE IF NOT EXISTS return_items (
		operation_id INTEGER NOT NULL REFERENCES operations(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		product_code TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		PRIMARY KEY (operation_id, position)
	);

	-- The cached balance, restored verbatim on load.
	CREATE TABLE IF NOT EXISTS book_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		balance TEXT NOT NULL
	);

	-- The catalog collaborator's product table.
	CREATE TABLE IF NOT EXISTS products (
		code TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		price TEXT NOT NULL
	);

	-- Settlement log, in recording order.
	CREATE TABLE IF NOT EXISTS receipts (
		ref TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		operation_id INTEGER NOT NULL,
		method TEXT NOT NULL,
		amount TEXT NOT NULL,
		at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNT BOOK - save
// =============================================================================

// SaveBook atomically replaces the persisted book with the current one.
func (s *Store) SaveBook(ctx context.Context, book *ledger.AccountBook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"sale_items", "return_items", "operations", "book_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for pos, op := range book.GetAllTransactions() {
		if err := insertOperation(ctx, tx, pos, op); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO book_meta (id, balance) VALUES (1, ?)`,
		book.GetBalance().String(),
	); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}

	return tx.Commit()
}

func insertOperation(ctx context.Context, tx *sql.Tx, pos int, op ledger.BalanceOperation) error {
	date := op.Date().UTC().Format(time.RFC3339)

	switch v := op.(type) {
	case *ledger.Credit:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO operations (id, kind, op_date, status, position, amount) VALUES (?, ?, ?, ?, ?, ?)`,
			v.ID(), string(v.Kind()), date, string(v.Status()), pos, v.Amount().String())
		return err

	case *ledger.Debit:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO operations (id, kind, op_date, status, position, amount) VALUES (?, ?, ?, ?, ?, ?)`,
			v.ID(), string(v.Kind()), date, string(v.Status()), pos, v.Amount().String())
		return err

	case *ledger.Order:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO operations (id, kind, op_date, status, position, product_code, price_per_unit, quantity)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID(), string(v.Kind()), date, string(v.Status()), pos,
			v.ProductCode(), v.PricePerUnit().String(), v.Quantity())
		return err

	case *ledger.SaleTransaction:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO operations (id, kind, op_date, status, position, discount_rate) VALUES (?, ?, ?, ?, ?, ?)`,
			v.ID(), string(v.Kind()), date, string(v.Status()), pos, v.DiscountRate().String()); err != nil {
			return err
		}
		for i, e := range v.Entries() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sale_items (operation_id, position, product_code, description, quantity, unit_price, discount_rate)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				v.ID(), i, e.ProductCode, e.Description, e.Quantity,
				e.UnitPrice.String(), e.DiscountRate.String()); err != nil {
				return err
			}
		}
		return nil

	case *ledger.ReturnTransaction:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO operations (id, kind, op_date, status, position, sale_id, finalized) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			v.ID(), string(v.Kind()), date, string(v.Status()), pos, v.SaleID(), v.Finalized()); err != nil {
			return err
		}
		for i, it := range v.Items() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO return_items (operation_id, position, product_code, quantity, unit_price)
				 VALUES (?, ?, ?, ?, ?)`,
				v.ID(), i, it.ProductCode, it.Quantity, it.UnitPrice.String()); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("unknown operation kind %s (id %d)", op.Kind(), op.ID())
}

// =============================================================================
// ACCOUNT BOOK - load
// =============================================================================

// LoadBook rebuilds the persisted book in registration order. An empty
// database yields an empty book.
func (s *Store) LoadBook(ctx context.Context) (*ledger.AccountBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := ledger.NewAccountBook()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, op_date, status, amount, product_code, price_per_unit,
		       quantity, discount_rate, sale_id, finalized
		FROM operations ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                            int
			kind, dateStr, status         string
			amount, code, price, discount sql.NullString
			quantity, saleID              sql.NullInt64
			finalized                     sql.NullBool
		)
		if err := rows.Scan(&id, &kind, &dateStr, &status, &amount, &code, &price,
			&quantity, &discount, &saleID, &finalized); err != nil {
			return nil, err
		}
		date, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			return nil, fmt.Errorf("operation %d: bad date %q: %w", id, dateStr, err)
		}

		var op ledger.BalanceOperation
		st := ledger.OperationStatus(status)
		switch ledger.OperationKind(kind) {
		case ledger.KindCredit:
			op = ledger.RestoreCredit(id, date, st, mustDecimal(amount.String))
		case ledger.KindDebit:
			op = ledger.RestoreDebit(id, date, st, mustDecimal(amount.String))
		case ledger.KindOrder:
			op = ledger.RestoreOrder(id, date, st, code.String, mustDecimal(price.String), int(quantity.Int64))
		case ledger.KindSale:
			entries, err := s.loadSaleItems(ctx, id)
			if err != nil {
				return nil, err
			}
			op = ledger.RestoreSaleTransaction(id, date, st, mustDecimal(discount.String), entries)
		case ledger.KindReturn:
			items, err := s.loadReturnItems(ctx, id)
			if err != nil {
				return nil, err
			}
			op = ledger.RestoreReturnTransaction(id, date, st, int(saleID.Int64), finalized.Bool, items)
		default:
			return nil, fmt.Errorf("operation %d: unknown kind %q", id, kind)
		}

		if err := book.AddTransaction(op); err != nil {
			return nil, fmt.Errorf("operation %d: %w", id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var balance string
	err = s.db.QueryRowContext(ctx, `SELECT balance FROM book_meta WHERE id = 1`).Scan(&balance)
	switch {
	case err == sql.ErrNoRows:
		// Fresh database; the book is already zeroed.
	case err != nil:
		return nil, err
	default:
		book.RestoreBalance(mustDecimal(balance))
	}

	return book, nil
}

func (s *Store) loadSaleItems(ctx context.Context, opID int) ([]ledger.TicketEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_code, description, quantity, unit_price, discount_rate
		FROM sale_items WHERE operation_id = ? ORDER BY position`, opID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.TicketEntry
	for rows.Next() {
		var e ledger.TicketEntry
		var price, discount string
		if err := rows.Scan(&e.ProductCode, &e.Description, &e.Quantity, &price, &discount); err != nil {
			return nil, err
		}
		e.UnitPrice = mustDecimal(price)
		e.DiscountRate = mustDecimal(discount)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) loadReturnItems(ctx context.Context, opID int) ([]ledger.ReturnItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_code, quantity, unit_price
		FROM return_items WHERE operation_id = ? ORDER BY position`, opID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ledger.ReturnItem
	for rows.Next() {
		var it ledger.ReturnItem
		var price string
		if err := rows.Scan(&it.ProductCode, &it.Quantity, &price); err != nil {
			return nil, err
		}
		it.UnitPrice = mustDecimal(price)
		items = append(items, it)
	}
	return items, rows.Err()
}

// =============================================================================
// CATALOG
// =============================================================================

// SaveCatalog replaces the persisted product table.
func (s *Store) SaveCatalog(ctx context.Context, products []ledger.ProductInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM products"); err != nil {
		return err
	}
	for _, p := range products {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (code, description, price) VALUES (?, ?, ?)`,
			p.Code, p.Description, p.Price.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadCatalog returns every persisted product.
func (s *Store) LoadCatalog(ctx context.Context) ([]ledger.ProductInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT code, description, price FROM products ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []ledger.ProductInfo
	for rows.Next() {
		var p ledger.ProductInfo
		var price string
		if err := rows.Scan(&p.Code, &p.Description, &price); err != nil {
			return nil, err
		}
		p.Price = mustDecimal(price)
		products = append(products, p)
	}
	return products, rows.Err()
}

// =============================================================================
// RECEIPTS
// =============================================================================

// SaveReceipts replaces the persisted settlement log.
func (s *Store) SaveReceipts(ctx context.Context, receipts []shop.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM receipts"); err != nil {
		return err
	}
	for i, rc := range receipts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO receipts (ref, position, operation_id, method, amount, at) VALUES (?, ?, ?, ?, ?, ?)`,
			rc.Ref, i, rc.OperationID, string(rc.Method), rc.Amount.String(),
			rc.At.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadReceipts returns the persisted settlement log, oldest first.
func (s *Store) LoadReceipts(ctx context.Context) ([]shop.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, operation_id, method, amount, at
		FROM receipts ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []shop.Receipt
	for rows.Next() {
		var rc shop.Receipt
		var method, amount, at string
		if err := rows.Scan(&rc.Ref, &rc.OperationID, &method, &amount, &at); err != nil {
			return nil, err
		}
		rc.Method = shop.PaymentMethod(method)
		rc.Amount = mustDecimal(amount)
		rc.At, err = time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, fmt.Errorf("receipt %s: bad timestamp %q: %w", rc.Ref, at, err)
		}
		receipts = append(receipts, rc)
	}
	return receipts, rows.Err()
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
