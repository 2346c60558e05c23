package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/vendas-estoque/internal/domain"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/internal/domain/repository"
)

var _ repository.ProcessedReservationRepository = (*ProcessedReservationRepo)(nil)

// ProcessedReservationRepo registro de idempotencia (tabla reservas_processadas).
type ProcessedReservationRepo struct {
	q Querier
}

// NewProcessedReservationRepository construye el repositorio. Pasar pool o tx (Querier).
func NewProcessedReservationRepository(q Querier) *ProcessedReservationRepo {
	return &ProcessedReservationRepo{q: q}
}

// Get obtiene el registro del pedido o nil si no fue procesado.
func (r *ProcessedReservationRepo) Get(ctx context.Context, orderID int) (*entity.ProcessedReservation, error) {
	var rec entity.ProcessedReservation
	var reason *string
	err := r.q.QueryRow(ctx,
		`SELECT pedido_id, estoque_ok, motivo, processado_em FROM reservas_processadas WHERE pedido_id = $1`,
		orderID,
	).Scan(&rec.OrderID, &rec.Approved, &reason, &rec.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get processed reservation: %w", err)
	}
	if reason != nil {
		rec.Reason = *reason
	}
	return &rec, nil
}

// Save inserta el registro. La PK sobre pedido_id convierte una segunda
// confirmación del mismo pedido en ErrDuplicate.
func (r *ProcessedReservationRepo) Save(ctx context.Context, rec *entity.ProcessedReservation) error {
	var reason *string
	if rec.Reason != "" {
		reason = &rec.Reason
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO reservas_processadas (pedido_id, estoque_ok, motivo, processado_em) VALUES ($1, $2, $3, $4)`,
		rec.OrderID, rec.Approved, reason, rec.ProcessedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert processed reservation: %w", err)
	}
	return nil
}
