package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto. ID vacío = se genera uno.
type CreateProductRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"nome" validate:"required,min=1,max=200"`
	Description string          `json:"descricao"`
	Price       decimal.Decimal `json:"preco"`
	Quantity    int             `json:"quantidade" validate:"min=0"`
}

// UpdateProductRequest entrada para actualizar un producto. Los campos nil no se tocan.
type UpdateProductRequest struct {
	Name        *string          `json:"nome" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"descricao"`
	Price       *decimal.Decimal `json:"preco"`
	Quantity    *int             `json:"quantidade" validate:"omitempty,min=0"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"nome"`
	Description string          `json:"descricao"`
	Price       decimal.Decimal `json:"preco"`
	Quantity    int             `json:"quantidade"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
