/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts cross the wire as JSON numbers. They are parsed back into
  decimals immediately on the way in; float64 only exists at the boundary.

VALIDATION:
  Request types carry validator struct tags. Handlers run the shared
  validator instance before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger: the domain types these mirror
*/
package api

import (
	"time"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/shop"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// OperationDTO is the common projection of a balance operation.
type OperationDTO struct {
	ID     int     `json:"id"`
	Kind   string  `json:"kind"`
	Date   string  `json:"date"`
	Status string  `json:"status"`
	Money  float64 `json:"money"`
}

// TicketEntryDTO represents one sale line.
type TicketEntryDTO struct {
	ProductCode  string  `json:"product_code"`
	Description  string  `json:"description"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	DiscountRate float64 `json:"discount_rate"`
	Subtotal     float64 `json:"subtotal"`
}

// SaleDTO represents a sale transaction with its ticket.
type SaleDTO struct {
	OperationDTO
	DiscountRate float64          `json:"discount_rate"`
	Entries      []TicketEntryDTO `json:"entries"`
	Total        float64          `json:"total"`
	Points       int              `json:"points"`
}

// ReturnItemDTO represents one returned line.
type ReturnItemDTO struct {
	ProductCode string  `json:"product_code"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Refund      float64 `json:"refund"`
}

// ReturnDTO represents a return transaction.
type ReturnDTO struct {
	OperationDTO
	SaleID    int             `json:"sale_id"`
	Finalized bool            `json:"finalized"`
	Items     []ReturnItemDTO `json:"items"`
}

// OrderDTO represents a stock order.
type OrderDTO struct {
	OperationDTO
	ProductCode  string  `json:"product_code"`
	PricePerUnit float64 `json:"price_per_unit"`
	Quantity     int     `json:"quantity"`
}

// BalanceDTO carries the running balance.
type BalanceDTO struct {
	Balance float64 `json:"balance"`
}

// UpdateBalanceRequest records a manual credit (positive) or debit (negative).
type UpdateBalanceRequest struct {
	Amount float64 `json:"amount"`
}

// OperationIDResponse is returned by endpoints that register an operation.
type OperationIDResponse struct {
	ID int `json:"id"`
}

// AddItemRequest adds or removes units of a product on an open sale.
type AddItemRequest struct {
	ProductCode string `json:"product_code" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
}

// DiscountRequest applies a discount to a sale, or to one of its lines when
// product_code is set.
type DiscountRequest struct {
	Rate        float64 `json:"rate" validate:"gte=0,lt=1"`
	ProductCode string  `json:"product_code,omitempty"`
}

// PaymentRequest settles a closed sale.
type PaymentRequest struct {
	Method     string  `json:"method" validate:"required,oneof=cash card"`
	Cash       float64 `json:"cash,omitempty" validate:"gte=0"`
	CardNumber string  `json:"card_number,omitempty"`
}

// PaymentResponse reports the settlement outcome.
type PaymentResponse struct {
	Change  float64    `json:"change"`
	Receipt ReceiptDTO `json:"receipt"`
}

// ReceiptDTO represents one recorded settlement.
type ReceiptDTO struct {
	Ref         string  `json:"ref"`
	OperationID int     `json:"operation_id"`
	Method      string  `json:"method"`
	Amount      float64 `json:"amount"`
	At          string  `json:"at"`
}

// StartReturnRequest opens a return against a settled sale.
type StartReturnRequest struct {
	SaleID int `json:"sale_id" validate:"required"`
}

// RefundRequest pays out a committed return.
type RefundRequest struct {
	Method     string `json:"method" validate:"required,oneof=cash card"`
	CardNumber string `json:"card_number,omitempty"`
}

// RefundResponse reports the paid-out amount.
type RefundResponse struct {
	Amount float64 `json:"amount"`
}

// IssueOrderRequest registers a stock order for a catalog product.
type IssueOrderRequest struct {
	ProductCode  string  `json:"product_code" validate:"required"`
	Quantity     int     `json:"quantity" validate:"required,gt=0"`
	PricePerUnit float64 `json:"price_per_unit" validate:"required,gt=0"`
}

// ProductDTO represents a catalog product.
type ProductDTO struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// CreateProductRequest adds a product to the catalog.
type CreateProductRequest struct {
	Code        string  `json:"code" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price" validate:"required,gt=0"`
}

// UpdateBarcodeRequest rewrites a product's barcode. Pending and completed
// orders referencing the old code are rewritten as well.
type UpdateBarcodeRequest struct {
	NewCode string `json:"new_code" validate:"required"`
}

// UpdateBarcodeResponse reports how many orders were rewritten.
type UpdateBarcodeResponse struct {
	OrdersUpdated int `json:"orders_updated"`
}

// CardDTO represents a loyalty card.
type CardDTO struct {
	Code   string `json:"code"`
	Points int    `json:"points"`
}

// AttachCardRequest binds a loyalty card to an open sale.
type AttachCardRequest struct {
	CardCode string `json:"card_code" validate:"required,len=10,numeric"`
}

// ModifyCardPointsRequest adjusts a card's point balance.
type ModifyCardPointsRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// PointsDTO carries a point total.
type PointsDTO struct {
	Points int `json:"points"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toOperationDTO(op ledger.BalanceOperation) OperationDTO {
	return OperationDTO{
		ID:     op.ID(),
		Kind:   string(op.Kind()),
		Date:   op.Date().Format("2006-01-02"),
		Status: string(op.Status()),
		Money:  op.Money().InexactFloat64(),
	}
}

func toSaleDTO(sale *ledger.SaleTransaction) SaleDTO {
	entries := sale.Entries()
	dtos := make([]TicketEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = TicketEntryDTO{
			ProductCode:  e.ProductCode,
			Description:  e.Description,
			Quantity:     e.Quantity,
			UnitPrice:    e.UnitPrice.InexactFloat64(),
			DiscountRate: e.DiscountRate.InexactFloat64(),
			Subtotal:     e.Subtotal().InexactFloat64(),
		}
	}
	return SaleDTO{
		OperationDTO: toOperationDTO(sale),
		DiscountRate: sale.DiscountRate().InexactFloat64(),
		Entries:      dtos,
		Total:        sale.ComputeTotal().InexactFloat64(),
		Points:       sale.ComputePoints(),
	}
}

func toReturnDTO(ret *ledger.ReturnTransaction) ReturnDTO {
	items := ret.Items()
	dtos := make([]ReturnItemDTO, len(items))
	for i, it := range items {
		dtos[i] = ReturnItemDTO{
			ProductCode: it.ProductCode,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.InexactFloat64(),
			Refund:      it.Refund().InexactFloat64(),
		}
	}
	return ReturnDTO{
		OperationDTO: toOperationDTO(ret),
		SaleID:       ret.SaleID(),
		Finalized:    ret.Finalized(),
		Items:        dtos,
	}
}

func toOrderDTO(order *ledger.Order) OrderDTO {
	return OrderDTO{
		OperationDTO: toOperationDTO(order),
		ProductCode:  order.ProductCode(),
		PricePerUnit: order.PricePerUnit().InexactFloat64(),
		Quantity:     order.Quantity(),
	}
}

func toProductDTO(p ledger.ProductInfo) ProductDTO {
	return ProductDTO{
		Code:        p.Code,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
	}
}

func toReceiptDTO(rc shop.Receipt) ReceiptDTO {
	return ReceiptDTO{
		Ref:         rc.Ref,
		OperationID: rc.OperationID,
		Method:      string(rc.Method),
		Amount:      rc.Amount.InexactFloat64(),
		At:          rc.At.Format(time.RFC3339),
	}
}
