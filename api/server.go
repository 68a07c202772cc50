/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the register frontend

ROUTE GROUPS:
  /api/balance/*     Running balance and manual movements
  /api/operations/*  Account book queries
  /api/sales/*       Sale lifecycle
  /api/returns/*     Return lifecycle
  /api/orders/*      Stock order lifecycle
  /api/products/*    Product catalog
  /api/cards/*       Loyalty cards
  /api/receipts      Settlement log
  /api/reset         Full reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Balance routes
		r.Route("/balance", func(r chi.Router) {
			r.Get("/", h.GetBalance)
			r.Post("/recompute", h.RecomputeBalance)
			r.Post("/update", h.UpdateBalance)
		})

		// Account book queries
		r.Route("/operations", func(r chi.Router) {
			r.Get("/", h.ListOperations)
			r.Get("/{id}", h.GetOperation)
		})

		// Sale routes
		r.Route("/sales", func(r chi.Router) {
			r.Post("/", h.StartSale)
			r.Post("/{id}/items", h.AddSaleItem)
			r.Delete("/{id}/items", h.RemoveSaleItem)
			r.Post("/{id}/discount", h.ApplySaleDiscount)
			r.Post("/{id}/close", h.CloseSale)
			r.Post("/{id}/payments", h.PaySale)
			r.Get("/{id}/points", h.GetSalePoints)
			r.Post("/{id}/card", h.AttachCard)
			r.Delete("/{id}", h.DeleteSale)
		})

		// Return routes
		r.Route("/returns", func(r chi.Router) {
			r.Post("/", h.StartReturn)
			r.Post("/{id}/items", h.AddReturnItem)
			r.Post("/{id}/commit", h.CommitReturn(true))
			r.Post("/{id}/rollback", h.CommitReturn(false))
			r.Post("/{id}/refund", h.RefundReturn)
			r.Delete("/{id}", h.DeleteReturn)
		})

		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.IssueOrder)
			r.Post("/{id}/pay", h.PayOrder)
			r.Post("/{id}/arrival", h.RecordOrderArrival)
		})

		// Product catalog routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Put("/{code}/barcode", h.UpdateProductBarcode)
		})

		// Loyalty card routes
		r.Route("/cards", func(r chi.Router) {
			r.Post("/", h.CreateCard)
			r.Get("/{code}", h.GetCard)
			r.Post("/{code}/points", h.ModifyCardPoints)
		})

		r.Get("/receipts", h.ListReceipts)
		r.Post("/reset", h.ResetShop)
	})

	return r
}
