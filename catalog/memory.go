/*
Package catalog provides the in-memory product catalog collaborator.

PURPOSE:
  The ledger core only consumes the narrow ledger.Catalog lookup; this
  package is the collaborator behind it for the HTTP layer and tests. It
  keeps a barcode-keyed product table with GTIN check-digit validation.
  Catalog CRUD beyond what the ledger workflows need stays out of scope.

BARCODES:
  Product codes are GTIN-12/13/14 barcodes: 12 to 14 digits whose last digit
  is the standard modulo-10 check digit.
*/
package catalog

import (
	"errors"
	"sync"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
)

var (
	// ErrInvalidBarcode is returned for codes that are not valid GTINs.
	ErrInvalidBarcode = errors.New("invalid product barcode")

	// ErrDuplicateBarcode is returned when adding a product under a code
	// already in the catalog.
	ErrDuplicateBarcode = errors.New("barcode already in catalog")
)

// Memory is a mutex-guarded in-memory catalog implementing ledger.Catalog.
type Memory struct {
	mu       sync.RWMutex
	products map[string]ledger.ProductInfo
}

func NewMemory() *Memory {
	return &Memory{products: make(map[string]ledger.ProductInfo)}
}

// Product implements ledger.Catalog.
func (m *Memory) Product(code string) (ledger.ProductInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[code]
	return p, ok
}

// Products returns every catalog entry (unspecified order).
func (m *Memory) Products() []ledger.ProductInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.ProductInfo, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out
}

// Add registers a product under a valid, unused barcode.
func (m *Memory) Add(p ledger.ProductInfo) error {
	if !ValidBarcode(p.Code) {
		return ErrInvalidBarcode
	}
	if p.Price.IsNegative() {
		return ledger.ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.products[p.Code]; exists {
		return ErrDuplicateBarcode
	}
	m.products[p.Code] = p
	return nil
}

// UpdateBarcode renumbers a product. ok=false when oldCode is unknown;
// ErrDuplicateBarcode when newCode is taken. The account book's order
// rewrite is the caller's follow-up step.
func (m *Memory) UpdateBarcode(oldCode, newCode string) (bool, error) {
	if !ValidBarcode(newCode) {
		return false, ErrInvalidBarcode
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[oldCode]
	if !ok {
		return false, nil
	}
	if _, taken := m.products[newCode]; taken {
		return false, ErrDuplicateBarcode
	}
	delete(m.products, oldCode)
	p.Code = newCode
	m.products[newCode] = p
	return true, nil
}

// ValidBarcode reports whether code is a GTIN-12/13/14: all digits, length
// 12 to 14, correct modulo-10 check digit.
func ValidBarcode(code string) bool {
	if len(code) < 12 || len(code) > 14 {
		return false
	}
	sum := 0
	weightThree := true // rightmost digit excluded, then alternate starting at 3
	for i := len(code) - 2; i >= 0; i-- {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if weightThree {
			d *= 3
		}
		sum += d
		weightThree = !weightThree
	}
	last := code[len(code)-1]
	if last < '0' || last > '9' {
		return false
	}
	check := (10 - sum%10) % 10
	return int(last-'0') == check
}
