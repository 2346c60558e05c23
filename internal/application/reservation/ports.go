package reservation

import (
	"context"

	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/internal/domain/repository"
)

// TxRunner unidad de trabajo del inventario: los descuentos y el registro de
// idempotencia se confirman juntos. Si fn devuelve error no se confirma nada.
type TxRunner interface {
	RunReservation(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		processedRepo repository.ProcessedReservationRepository,
	) error) error
}

// ProcessedCache caché opcional delante del registro durable.
// Get devuelve nil, nil si no hay entrada.
type ProcessedCache interface {
	Get(ctx context.Context, orderID int) (*entity.StockCheckResponse, error)
	Set(ctx context.Context, resp entity.StockCheckResponse) error
}
