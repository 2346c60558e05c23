package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/vendas-estoque/internal/application/reservation"
	"github.com/jhoicas/vendas-estoque/internal/domain/repository"
)

var _ reservation.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunReservation inicia una transacción, ejecuta fn con los repos de productos y de
// reservas procesadas atados a la tx y hace Commit o Rollback.
func (r *TxRunner) RunReservation(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	processedRepo repository.ProcessedReservationRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	productRepo := NewProductRepository(tx)
	processedRepo := NewProcessedReservationRepository(tx)

	if err := fn(productRepo, processedRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
