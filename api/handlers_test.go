/*
handlers_test.go - Unit tests for API handlers

Tests exercise the full router with httptest recorders against an
in-memory shop, covering the happy paths and the error status mapping.
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polito-se2-21-r03/se1-ezshop-sub001/catalog"
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/ledger"
	"github.com/polito-se2-21-r03/se1-ezshop-sub001/shop"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	cat := catalog.NewMemory()
	require.NoError(t, cat.Add(ledger.ProductInfo{
		Code: "400638133390", Description: "pasta 500g", Price: ledger.MoneyFromFloat(10),
	}))
	require.NoError(t, cat.Add(ledger.ProductInfo{
		Code: "4006381333931", Description: "coffee beans", Price: ledger.MoneyFromFloat(4.5),
	}))
	sh := shop.New(ledger.NewAccountBook(), cat)
	return NewRouter(NewHandler(sh, cat, nil))
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

// startSale opens a sale and returns its id.
func startSale(t *testing.T, r http.Handler) int {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/sales", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[OperationIDResponse](t, rec).ID
}

// paidSale runs a sale through items, close and cash payment.
func paidSale(t *testing.T, r http.Handler, qty int) int {
	t.Helper()
	id := startSale(t, r)
	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/items", id),
		AddItemRequest{ProductCode: "400638133390", Quantity: qty})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/close", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/payments", id),
		PaymentRequest{Method: "cash", Cash: float64(qty) * 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return id
}

// =============================================================================
// BALANCE AND SALES
// =============================================================================

func TestAPI_SaleLifecycle(t *testing.T) {
	// GIVEN: a fresh shop
	r := newTestRouter(t)

	// WHEN: a sale of 3 pasta with a 10% discount settles with 50 in cash
	id := startSale(t, r)

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/items", id),
		AddItemRequest{ProductCode: "400638133390", Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sale := decodeBody[SaleDTO](t, rec)
	assert.InDelta(t, 30.0, sale.Total, 1e-9)

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/discount", id),
		DiscountRequest{Rate: 0.1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/close", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/payments", id),
		PaymentRequest{Method: "cash", Cash: 50})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payment := decodeBody[PaymentResponse](t, rec)

	// THEN: change is 23, the receipt covers 27, and the balance shows 27
	assert.InDelta(t, 23.0, payment.Change, 1e-9)
	assert.InDelta(t, 27.0, payment.Receipt.Amount, 1e-9)
	assert.Equal(t, "cash", payment.Receipt.Method)
	assert.NotEmpty(t, payment.Receipt.Ref)

	rec = doJSON(t, r, http.MethodGet, "/api/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 27.0, decodeBody[BalanceDTO](t, rec).Balance, 1e-9)
}

func TestAPI_AddItem_ValidationFailure(t *testing.T) {
	r := newTestRouter(t)
	id := startSale(t, r)

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/items", id),
		AddItemRequest{ProductCode: "400638133390", Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_UnknownSaleIs404(t *testing.T) {
	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/sales/999/items",
		AddItemRequest{ProductCode: "400638133390", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_PayOpenSaleIs409(t *testing.T) {
	// GIVEN: a sale that was never closed
	r := newTestRouter(t)
	id := startSale(t, r)
	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/items", id),
		AddItemRequest{ProductCode: "400638133390", Quantity: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	// WHEN: payment is attempted
	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/payments", id),
		PaymentRequest{Method: "cash", Cash: 100})

	// THEN: the transition is rejected as a conflict
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_DeletePaidSaleIs409(t *testing.T) {
	r := newTestRouter(t)
	id := paidSale(t, r, 2)

	rec := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/sales/%d", id), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_ManualBalanceUpdate(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/balance/update", UpdateBalanceRequest{Amount: 100})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, "/api/balance/update", UpdateBalanceRequest{Amount: -40})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// A debit past zero is rejected and the balance is unchanged.
	rec = doJSON(t, r, http.MethodPost, "/api/balance/update", UpdateBalanceRequest{Amount: -70})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/balance", nil)
	assert.InDelta(t, 60.0, decodeBody[BalanceDTO](t, rec).Balance, 1e-9)
}

// =============================================================================
// OPERATIONS
// =============================================================================

func TestAPI_ListOperations_KindFilter(t *testing.T) {
	r := newTestRouter(t)
	paidSale(t, r, 1)
	rec := doJSON(t, r, http.MethodPost, "/api/balance/update", UpdateBalanceRequest{Amount: 100})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/operations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]OperationDTO](t, rec), 2)

	rec = doJSON(t, r, http.MethodGet, "/api/operations?kind=SALE", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ops := decodeBody[[]OperationDTO](t, rec)
	require.Len(t, ops, 1)
	assert.Equal(t, "SALE", ops[0].Kind)
}

func TestAPI_GetOperation_SaleDetail(t *testing.T) {
	r := newTestRouter(t)
	id := paidSale(t, r, 2)

	rec := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/operations/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sale := decodeBody[SaleDTO](t, rec)
	assert.Equal(t, "PAID", sale.Status)
	require.Len(t, sale.Entries, 1)
	assert.Equal(t, 2, sale.Entries[0].Quantity)
	assert.Equal(t, "pasta 500g", sale.Entries[0].Description)
}

// =============================================================================
// RETURNS
// =============================================================================

func TestAPI_ReturnLifecycle(t *testing.T) {
	// GIVEN: a paid sale of 3 pasta (balance 30)
	r := newTestRouter(t)
	saleID := paidSale(t, r, 3)

	// WHEN: one unit comes back, the return commits and is refunded in cash
	rec := doJSON(t, r, http.MethodPost, "/api/returns", StartReturnRequest{SaleID: saleID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	retID := decodeBody[OperationIDResponse](t, rec).ID

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/returns/%d/items", retID),
		AddItemRequest{ProductCode: "400638133390", Quantity: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/returns/%d/commit", retID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/returns/%d/refund", retID),
		RefundRequest{Method: "cash"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 10.0, decodeBody[RefundResponse](t, rec).Amount, 1e-9)

	// THEN: the balance nets to 20 and the sale keeps 2 units
	rec = doJSON(t, r, http.MethodGet, "/api/balance", nil)
	assert.InDelta(t, 20.0, decodeBody[BalanceDTO](t, rec).Balance, 1e-9)

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/operations/%d", saleID), nil)
	sale := decodeBody[SaleDTO](t, rec)
	require.Len(t, sale.Entries, 1)
	assert.Equal(t, 2, sale.Entries[0].Quantity)
}

func TestAPI_ReturnAgainstOpenSaleIs404(t *testing.T) {
	r := newTestRouter(t)
	id := startSale(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/returns", StartReturnRequest{SaleID: id})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ReturnRollbackLeavesBalanceUntouched(t *testing.T) {
	r := newTestRouter(t)
	saleID := paidSale(t, r, 3)

	rec := doJSON(t, r, http.MethodPost, "/api/returns", StartReturnRequest{SaleID: saleID})
	retID := decodeBody[OperationIDResponse](t, rec).ID
	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/returns/%d/items", retID),
		AddItemRequest{ProductCode: "400638133390", Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/returns/%d/rollback", retID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/balance", nil)
	assert.InDelta(t, 30.0, decodeBody[BalanceDTO](t, rec).Balance, 1e-9)
}

// =============================================================================
// ORDERS AND PRODUCTS
// =============================================================================

func TestAPI_OrderLifecycle(t *testing.T) {
	// GIVEN: 100 on the balance
	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/balance/update", UpdateBalanceRequest{Amount: 100})
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: an order for 10 pasta at 2.5 is issued, paid and arrives
	rec = doJSON(t, r, http.MethodPost, "/api/orders",
		IssueOrderRequest{ProductCode: "400638133390", Quantity: 10, PricePerUnit: 2.5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := decodeBody[OperationIDResponse](t, rec).ID

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/orders/%d/pay", orderID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/orders/%d/arrival", orderID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// THEN: the balance moved exactly once
	rec = doJSON(t, r, http.MethodGet, "/api/balance", nil)
	assert.InDelta(t, 75.0, decodeBody[BalanceDTO](t, rec).Balance, 1e-9)
}

func TestAPI_OrderForUnknownProductIs404(t *testing.T) {
	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/orders",
		IssueOrderRequest{ProductCode: "40063813339307", Quantity: 1, PricePerUnit: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CreateProduct_RejectsBadBarcode(t *testing.T) {
	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/products",
		CreateProductRequest{Code: "123", Description: "nope", Price: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_UpdateBarcode_PropagatesToOrders(t *testing.T) {
	// GIVEN: a paid order referencing the old barcode
	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/balance/update", UpdateBalanceRequest{Amount: 100})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, r, http.MethodPost, "/api/orders",
		IssueOrderRequest{ProductCode: "400638133390", Quantity: 2, PricePerUnit: 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := decodeBody[OperationIDResponse](t, rec).ID

	// WHEN: the product's barcode changes
	rec = doJSON(t, r, http.MethodPut, "/api/products/400638133390/barcode",
		UpdateBarcodeRequest{NewCode: "40063813339307"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeBody[UpdateBarcodeResponse](t, rec).OrdersUpdated)

	// THEN: the order shows the new code
	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/operations/%d", orderID), nil)
	assert.Equal(t, "40063813339307", decodeBody[OrderDTO](t, rec).ProductCode)
}

// =============================================================================
// CARDS AND RESET
// =============================================================================

func TestAPI_CardFlow(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/cards", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	card := decodeBody[CardDTO](t, rec)
	require.Len(t, card.Code, 10)

	rec = doJSON(t, r, http.MethodPost, "/api/cards/"+card.Code+"/points",
		ModifyCardPointsRequest{Delta: 25})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, decodeBody[CardDTO](t, rec).Points)

	// Attaching a malformed code fails validation before the domain runs.
	saleID := startSale(t, r)
	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/sales/%d/card", saleID),
		AttachCardRequest{CardCode: "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Reset(t *testing.T) {
	r := newTestRouter(t)
	paidSale(t, r, 2)

	rec := doJSON(t, r, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/balance", nil)
	assert.InDelta(t, 0.0, decodeBody[BalanceDTO](t, rec).Balance, 1e-9)
	rec = doJSON(t, r, http.MethodGet, "/api/operations", nil)
	assert.Empty(t, decodeBody[[]OperationDTO](t, rec))
}
