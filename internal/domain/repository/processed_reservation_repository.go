package repository

import (
	"context"

	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
)

// ProcessedReservationRepository registro de idempotencia del inventario.
type ProcessedReservationRepository interface {
	// Get devuelve nil, nil si el pedido no fue procesado.
	Get(ctx context.Context, orderID int) (*entity.ProcessedReservation, error)
	// Save devuelve ErrDuplicate si el pedido ya tiene registro.
	Save(ctx context.Context, rec *entity.ProcessedReservation) error
}
