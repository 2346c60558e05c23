package order

import (
	"context"

	"github.com/jhoicas/vendas-estoque/internal/application/dto"
	"github.com/jhoicas/vendas-estoque/internal/domain/repository"
)

// QueryUseCase consultas y baja de pedidos.
type QueryUseCase struct {
	orders repository.OrderRepository
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(orders repository.OrderRepository) *QueryUseCase {
	return &QueryUseCase{orders: orders}
}

// GetByID devuelve nil, nil si el pedido no existe.
func (uc *QueryUseCase) GetByID(ctx context.Context, id int) (*dto.OrderResponse, error) {
	o, err := uc.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(o), nil
}

// List lista pedidos con paginación.
func (uc *QueryUseCase) List(ctx context.Context, limit, offset int) (*dto.OrderListResponse, error) {
	list, err := uc.orders.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.OrderResponse, 0, len(list))
	for _, o := range list {
		items = append(items, *ToOrderResponse(o))
	}
	return &dto.OrderListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Delete elimina un pedido. No devuelve el stock reservado.
func (uc *QueryUseCase) Delete(ctx context.Context, id int) error {
	return uc.orders.Delete(ctx, id)
}
