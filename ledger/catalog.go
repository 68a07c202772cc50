// catalog.go - Narrow lookup interface to the product catalog collaborator.
//
// The sale engine snapshots description and price at add time and never
// re-queries the catalog afterward, so this is the whole surface it needs.
package ledger

// ProductInfo is the catalog data a sale line snapshots.
type ProductInfo struct {
	Code        string
	Description string
	Price       Money
}

// Catalog is the product lookup collaborator. Implementations live outside
// this package (see the catalog package for the in-memory one).
type Catalog interface {
	// Product returns the current catalog entry for code, or ok=false if the
	// code is unknown.
	Product(code string) (ProductInfo, bool)
}
