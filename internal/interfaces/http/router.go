package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ledger"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/stocktake"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Stocktakes *stocktake.Service
	Ledger     *ledger.MovementProcessor
	JWTSecret  string
	Log        zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Todas las rutas requieren Bearer Token: el token identifica al operador (actor).
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Conteos físicos
	stHandler := NewStocktakeHandler(deps.Stocktakes, deps.Log)
	stocktakes := protected.Group("/stocktakes")
	stocktakes.Post("/", stHandler.Create)
	stocktakes.Get("/", stHandler.List)
	stocktakes.Get("/:id", stHandler.Get)
	stocktakes.Get("/:id/progress", stHandler.Progress)
	stocktakes.Delete("/:id", stHandler.Delete)
	stocktakes.Post("/:id/assignments", stHandler.AddAssignment)
	stocktakes.Delete("/:id/assignments/:locationId", stHandler.RemoveAssignment)
	stocktakes.Post("/:id/assignments/:locationId/complete", stHandler.CompleteAssignment)
	stocktakes.Post("/:id/start", stHandler.Start)
	stocktakes.Post("/:id/reconcile", stHandler.Reconcile)
	stocktakes.Post("/:id/complete", stHandler.Complete)
	stocktakes.Post("/:id/cancel", stHandler.Cancel)
	stocktakes.Put("/:id/results", stHandler.SubmitResultsBulk)
	protected.Put("/stocktake-results/:resultId", stHandler.SubmitResult)

	// Entradas, salidas y kardex
	invHandler := NewInventoryHandler(deps.Ledger, deps.Log)
	inventory := protected.Group("/inventory")
	inventory.Post("/inbound", invHandler.Inbound)
	inventory.Post("/outbound", invHandler.Outbound)
	inventory.Get("/materials/:id/logs", invHandler.History)
	inventory.Get("/consistency", invHandler.Consistency)
}
