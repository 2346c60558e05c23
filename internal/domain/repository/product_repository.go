package repository

import (
	"context"

	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
)

// ProductFilter filtros de listado. MaxQuantity nil = sin filtro de stock.
type ProductFilter struct {
	MaxQuantity *int
	Limit       int
	Offset      int
}

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByID devuelve nil, nil si el producto no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id string) error
	// DecrementQuantity descuenta amount solo si hay stock suficiente.
	// Devuelve ErrNotFound o ErrInsufficientStock sin modificar nada en caso contrario.
	DecrementQuantity(ctx context.Context, id string, amount int) error
}
