/*
handlers.go - HTTP API handlers for the shop back office

PURPOSE:
  Exposes the account book and the shop workflows via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Balance:
    GET    /api/balance                 Cached running balance
    POST   /api/balance/recompute       Authoritative full recompute
    POST   /api/balance/update          Manual credit/debit

  Operations:
    GET    /api/operations              List (optional ?kind= filter)
    GET    /api/operations/{id}         Detail with variant-specific fields

  Sales:
    POST   /api/sales                   Open a sale
    POST   /api/sales/{id}/items        Add units of a product
    DELETE /api/sales/{id}/items        Remove units of a product
    POST   /api/sales/{id}/discount     Sale or per-line discount
    POST   /api/sales/{id}/close        OPEN -> CLOSED
    POST   /api/sales/{id}/payments     Cash or card settlement
    GET    /api/sales/{id}/points       Loyalty points preview
    POST   /api/sales/{id}/card         Attach a loyalty card
    DELETE /api/sales/{id}              Discard an unsettled sale

  Returns, orders, products, cards: see server.go for the full route table.

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Shop: workflow layer over the account book
  - Catalog: product catalog collaborator
  - Store: optional sqlite persistence, snapshot after every mutation

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator tags on the request DTOs)
  3. Call domain logic
  4. Persist the new snapshot
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown operation, product or card; not-allowed outcomes
  - 409: Illegal state transitions
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/catalog"
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/shop"
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Shop    *shop.Shop
	Catalog *catalog.Memory

	// Store is optional. When set, every mutating handler snapshots the
	// book and the catalog after a successful change.
	Store *sqlite.Store

	validate *validator.Validate
}

// NewHandler creates a new handler. store may be nil for in-memory use.
func NewHandler(sh *shop.Shop, cat *catalog.Memory, store *sqlite.Store) *Handler {
	return &Handler{
		Shop:     sh,
		Catalog:  cat,
		Store:    store,
		validate: validator.New(),
	}
}

// persist snapshots the book and catalog. A persistence failure surfaces as
// a 500; the in-memory state is already mutated, so the client is told the
// change happened but may not survive a restart.
func (h *Handler) persist(w http.ResponseWriter, r *http.Request) bool {
	if h.Store == nil {
		return true
	}
	ctx := r.Context()
	if err := h.Store.SaveBook(ctx, h.Shop.Book()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist account book", err)
		return false
	}
	if err := h.Store.SaveCatalog(ctx, h.Catalog.Products()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist catalog", err)
		return false
	}
	if err := h.Store.SaveReceipts(ctx, h.Shop.Receipts()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to persist receipts", err)
		return false
	}
	return true
}

// decode parses and validates a JSON request body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// idParam parses the {id} URL parameter.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrIllegalState):
		writeError(w, http.StatusConflict, "Operation not allowed in current state", err)
	case ledger.IsClientError(err),
		errors.Is(err, shop.ErrInvalidCreditCard),
		errors.Is(err, shop.ErrInsufficientCash),
		errors.Is(err, shop.ErrInsufficientFunds),
		errors.Is(err, shop.ErrNegativeBalance),
		errors.Is(err, catalog.ErrInvalidBarcode),
		errors.Is(err, catalog.ErrDuplicateBarcode):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalance returns the cached running balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BalanceDTO{Balance: h.Shop.Balance().InexactFloat64()})
}

// RecomputeBalance runs the authoritative recompute and returns the result.
func (h *Handler) RecomputeBalance(w http.ResponseWriter, r *http.Request) {
	balance := h.Shop.RecomputeBalance()
	if !h.persist(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Balance: balance.InexactFloat64()})
}

// UpdateBalance records a manual credit or debit.
func (h *Handler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	var req UpdateBalanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.Shop.RecordBalanceUpdate(ledger.MoneyFromFloat(req.Amount))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !h.persist(w, r) {
		return
	}
	writeJSON(w, http.StatusCreated, OperationIDResponse{ID: id})
}

// =============================================================================
// OPERATION HANDLERS
// =============================================================================

// ListOperations returns all operations, optionally filtered by kind.
func (h *Handler) ListOperations(w http.ResponseWriter, r *http.Request) {
	book := h.Shop.Book()
	ops := book.GetAllTransactions()

	kind := r.URL.Query().Get("kind")
	dtos := make([]OperationDTO, 0, len(ops))
	for _, op := range ops {
		if kind != "" && string(op.Kind()) != kind {
			continue
		}
		dtos = append(dtos, toOperationDTO(op))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOperation returns one operation with its variant-specific fields.
func (h *Handler) GetOperation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	op, ok := h.Shop.Book().GetTransaction(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Operation not found", nil)
		return
	}

	var dto any
	switch v := op.(type) {
	case *ledger.SaleTransaction:
		dto = toSaleDTO(v)
	case *ledger.ReturnTransaction:
		dto = toReturnDTO(v)
	case *ledger.Order:
		dto = toOrderDTO(v)
	default:
		dto = toOperationDTO(op)
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// StartSale opens a new sale transaction.
func (h *Handler) StartSale(w http.ResponseWriter, r *http.Request) {
	id := h.Shop.StartSaleTransaction()
	if !h.persist(w, r) {
		return
	}
	writeJSON(w, http.StatusCreated, OperationIDResponse{ID: id})
}

// AddSaleItem adds units of a catalog product to an open sale.
func (h *Handler) AddSaleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	ok, err := h.Shop.AddProductToSale(id, req.ProductCode, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Sale or product not found", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	sale, _ := h.Shop.SaleTransaction(id)
	writeJSON(w, http.StatusOK, toSaleDTO(sale))
}

// RemoveSaleItem removes units of a product from an open sale.
func (h *Handler) RemoveSaleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	ok, err := h.Shop.DeleteProductFromSale(id, req.ProductCode, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Sale not found, product not on ticket, or quantity exceeds the line", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	sale, _ := h.Shop.SaleTransaction(id)
	writeJSON(w, http.StatusOK, toSaleDTO(sale))
}

// ApplySaleDiscount applies a discount to the whole sale, or to one line
// when product_code is set.
func (h *Handler) ApplySaleDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req DiscountRequest
	if !h.decode(w, r, &req) {
		return
	}

	rate := decimal.NewFromFloat(req.Rate)
	var err error
	if req.ProductCode != "" {
		ok, err = h.Shop.ApplyDiscountRateToProduct(id, req.ProductCode, rate)
	} else {
		ok, err = h.Shop.ApplyDiscountRateToSale(id, rate)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Sale or product not found", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	sale, _ := h.Shop.SaleTransaction(id)
	writeJSON(w, http.StatusOK, toSaleDTO(sale))
}

// CloseSale freezes the ticket: OPEN -> CLOSED.
func (h *Handler) CloseSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ok, err := h.Shop.EndSaleTransaction(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	sale, _ := h.Shop.SaleTransaction(id)
	writeJSON(w, http.StatusOK, toSaleDTO(sale))
}

// PaySale settles a closed sale with cash or card.
func (h *Handler) PaySale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	var change ledger.Money
	var err error
	switch req.Method {
	case "cash":
		change, ok, err = h.Shop.ReceiveCashPayment(id, ledger.MoneyFromFloat(req.Cash))
	case "card":
		change = ledger.ZeroMoney()
		ok, err = h.Shop.ReceiveCreditCardPayment(id, req.CardNumber)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}

	receipts := h.Shop.Receipts()
	writeJSON(w, http.StatusOK, PaymentResponse{
		Change:  change.InexactFloat64(),
		Receipt: toReceiptDTO(receipts[len(receipts)-1]),
	})
}

// GetSalePoints previews the loyalty points a sale would earn.
func (h *Handler) GetSalePoints(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	points, ok := h.Shop.ComputePointsForSale(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, PointsDTO{Points: points})
}

// AttachCard binds a loyalty card to a sale; points accrue on payment.
func (h *Handler) AttachCard(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req AttachCardRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.Shop.AttachCardToSale(id, req.CardCode) {
		writeError(w, http.StatusNotFound, "Sale or card not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSale discards a sale that has not settled yet.
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ok, err := h.Shop.DeleteSaleTransaction(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RETURN HANDLERS
// =============================================================================

// StartReturn opens a return against a settled sale.
func (h *Handler) StartReturn(w http.ResponseWriter, r *http.Request) {
	var req StartReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, ok := h.Shop.StartReturnTransaction(req.SaleID)
	if !ok {
		writeError(w, http.StatusNotFound, "Sale not found or not settled", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	writeJSON(w, http.StatusCreated, OperationIDResponse{ID: id})
}

// AddReturnItem stages units for return, capped by what the sale still holds.
func (h *Handler) AddReturnItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	ok, err := h.Shop.ReturnProduct(id, req.ProductCode, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Return not found, product not on the sale, or quantity exceeds what remains", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	ret, _ := h.Shop.ReturnTransaction(id)
	writeJSON(w, http.StatusOK, toReturnDTO(ret))
}

// CommitReturn closes a return: commit=true moves the staged items off the
// sale, commit=false discards the return entirely.
func (h *Handler) CommitReturn(commit bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		ok, err := h.Shop.EndReturnTransaction(id, commit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "Return or its sale not found", nil)
			return
		}
		if !h.persist(w, r) {
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RefundReturn pays out a committed return with cash or card.
func (h *Handler) RefundReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req RefundRequest
	if !h.decode(w, r, &req) {
		return
	}

	var amount ledger.Money
	var err error
	switch req.Method {
	case "cash":
		amount, ok, err = h.Shop.ReturnCashPayment(id)
	case "card":
		amount, ok, err = h.Shop.ReturnCreditCardPayment(id, req.CardNumber)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Return not found", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, RefundResponse{Amount: amount.InexactFloat64()})
}

// DeleteReturn undoes a return that has not been refunded, restoring the
// sale's lines if the return had committed.
func (h *Handler) DeleteReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ok, err := h.Shop.DeleteReturnTransaction(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Return not found", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// IssueOrder registers a stock order for a catalog product.
func (h *Handler) IssueOrder(w http.ResponseWriter, r *http.Request) {
	var req IssueOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, ok, err := h.Shop.IssueOrder(req.ProductCode, req.Quantity, ledger.MoneyFromFloat(req.PricePerUnit))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Product not in catalog", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	writeJSON(w, http.StatusCreated, OperationIDResponse{ID: id})
}

// PayOrder settles an open order out of the balance.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ok, err := h.Shop.PayOrder(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Order not found", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordOrderArrival marks a paid order as arrived.
func (h *Handler) RecordOrderArrival(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ok, err := h.Shop.RecordOrderArrival(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Order not found", nil)
		return
	}
	if !h.persist(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.Catalog.Products()
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	p := ledger.ProductInfo{
		Code:        req.Code,
		Description: req.Description,
		Price:       ledger.MoneyFromFloat(req.Price),
	}
	if err := h.Catalog.Add(p); err != nil {
		writeDomainError(w, err)
		return
	}
	if !h.persist(w, r) {
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// UpdateProductBarcode rewrites a product's barcode and propagates the new
// code into every order that references the old one.
func (h *Handler) UpdateProductBarcode(w http.ResponseWriter, r *http.Request) {
	oldCode := chi.URLParam(r, "code")
	var req UpdateBarcodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	ok, err := h.Catalog.UpdateBarcode(oldCode, req.NewCode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	updated := h.Shop.Book().UpdateBarcodeInOrders(oldCode, req.NewCode)
	if !h.persist(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, UpdateBarcodeResponse{OrdersUpdated: updated})
}

// =============================================================================
// CARD HANDLERS
// =============================================================================

// CreateCard issues a new loyalty card with zero points.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	code := h.Shop.CreateCard()
	writeJSON(w, http.StatusCreated, CardDTO{Code: code})
}

// GetCard returns a card's point balance.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	points, ok := h.Shop.CardPoints(code)
	if !ok {
		writeError(w, http.StatusNotFound, "Card not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, CardDTO{Code: code, Points: points})
}

// ModifyCardPoints adjusts a card's points; it cannot go negative.
func (h *Handler) ModifyCardPoints(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req ModifyCardPointsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.Shop.ModifyPointsOnCard(code, req.Delta) {
		writeError(w, http.StatusNotFound, "Card not found or points would go negative", nil)
		return
	}
	points, _ := h.Shop.CardPoints(code)
	writeJSON(w, http.StatusOK, CardDTO{Code: code, Points: points})
}

// =============================================================================
// RECEIPTS AND RESET
// =============================================================================

// ListReceipts returns every recorded settlement, oldest first.
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts := h.Shop.Receipts()
	dtos := make([]ReceiptDTO, len(receipts))
	for i, rc := range receipts {
		dtos[i] = toReceiptDTO(rc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResetShop wipes the book, the cards and the receipts.
func (h *Handler) ResetShop(w http.ResponseWriter, r *http.Request) {
	h.Shop.Reset()
	if !h.persist(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
