package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderItemRequest línea del pedido.
type CreateOrderItemRequest struct {
	ProductID string          `json:"produtoId" validate:"required"`
	Quantity  int             `json:"quantidade" validate:"min=1"`
	UnitPrice decimal.Decimal `json:"precoUnitario"`
}

// CreateOrderRequest entrada para registrar una venta. El ID lo asigna el cliente.
type CreateOrderRequest struct {
	ID         int                      `json:"id" validate:"required,min=1"`
	CustomerID string                   `json:"clienteId" validate:"required"`
	Items      []CreateOrderItemRequest `json:"itens" validate:"required,min=1"`
}

// OrderItemResponse línea del pedido en respuestas.
type OrderItemResponse struct {
	ProductID string          `json:"produtoId"`
	Quantity  int             `json:"quantidade"`
	UnitPrice decimal.Decimal `json:"precoUnitario"`
}

// OrderResponse salida de un pedido.
type OrderResponse struct {
	ID         int                 `json:"id"`
	CustomerID string              `json:"clienteId"`
	Total      decimal.Decimal     `json:"valorTotal"`
	Status     string              `json:"status"`
	Reason     string              `json:"motivo,omitempty"`
	CreatedAt  time.Time           `json:"dataCriacao"`
	Items      []OrderItemResponse `json:"itens"`
}

// OrderListResponse lista paginada de pedidos.
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}
