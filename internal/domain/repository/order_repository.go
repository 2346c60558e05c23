package repository

import (
	"context"

	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
)

// OrderRepository define el puerto de persistencia para pedidos de venta.
type OrderRepository interface {
	// Create persiste el pedido y sus ítems. ErrDuplicate si el ID ya existe.
	Create(ctx context.Context, order *entity.Order) error
	Exists(ctx context.Context, id int) (bool, error)
	GetByID(ctx context.Context, id int) (*entity.Order, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Order, error)
	UpdateStatus(ctx context.Context, id int, status, reason string) error
	Delete(ctx context.Context, id int) error
}
