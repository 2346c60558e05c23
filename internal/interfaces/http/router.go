package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vendas-estoque/internal/application/order"
	"github.com/jhoicas/vendas-estoque/internal/application/usecase"
)

// SalesRouterDeps dependencias del servicio de ventas.
type SalesRouterDeps struct {
	CreateOrder *order.CreateOrderUseCase
	OrderQuery  *order.QueryUseCase
	JWTSecret   string
}

// SalesRouter registra las rutas de /api/vendas.
func SalesRouter(app *fiber.App, deps SalesRouterDeps) {
	api := app.Group("/api")

	// Todo protegido (Bearer Token)
	vendas := api.Group("/vendas", AuthMiddleware(deps.JWTSecret))
	orderHandler := NewOrderHandler(deps.CreateOrder, deps.OrderQuery)
	vendas.Post("/", RequireRole(RoleAdmin, RoleVendedor), orderHandler.Create)
	vendas.Get("/", orderHandler.List)
	vendas.Get("/:id", orderHandler.GetByID)
	vendas.Delete("/:id", RequireRole(RoleAdmin), orderHandler.Delete)
}

// InventoryRouterDeps dependencias del servicio de inventario.
type InventoryRouterDeps struct {
	ProductUC *usecase.ProductUseCase
	JWTSecret string
}

// InventoryRouter registra las rutas de /api/produtos.
func InventoryRouter(app *fiber.App, deps InventoryRouterDeps) {
	api := app.Group("/api")

	produtos := api.Group("/produtos", AuthMiddleware(deps.JWTSecret))
	productHandler := NewProductHandler(deps.ProductUC)
	produtos.Get("/", productHandler.List)
	produtos.Get("/:id", productHandler.GetByID)

	// Mutaciones: solo admin o estoquista
	mutate := RequireRole(RoleAdmin, RoleEstoquista)
	produtos.Post("/", mutate, productHandler.Create)
	produtos.Put("/:id", mutate, productHandler.Update)
	produtos.Delete("/:id", mutate, productHandler.Delete)
}
