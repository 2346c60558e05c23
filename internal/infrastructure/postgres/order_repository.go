package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/vendas-estoque/internal/domain"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo pedidos e itens sobre PostgreSQL. Necesita el pool para abrir su
// propia transacción al insertar cabecera e itens.
type OrderRepo struct {
	pool *pgxpool.Pool
}

// NewOrderRepository construye el repositorio de pedidos.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserta el pedido y sus itens en una transacción.
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO pedidos (id, cliente_id, valor_total, status, motivo, data_criacao, atualizado_em)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID, o.CustomerID, o.Total, o.Status, o.Reason, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(
				`INSERT INTO pedido_itens (pedido_id, produto_id, quantidade, preco_unitario) VALUES ($1, $2, $3, $4)`,
				o.ID, it.ProductID, it.Quantity, it.UnitPrice,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// Exists indica si ya hay un pedido con ese ID.
func (r *OrderRepo) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pedidos WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("order exists: %w", err)
	}
	return exists, nil
}

// GetByID obtiene el pedido con sus itens; nil si no existe.
func (r *OrderRepo) GetByID(ctx context.Context, id int) (*entity.Order, error) {
	var o entity.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, cliente_id, valor_total, status, motivo, data_criacao, atualizado_em
		FROM pedidos WHERE id = $1`, id,
	).Scan(&o.ID, &o.CustomerID, &o.Total, &o.Status, &o.Reason, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.items(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	return &o, nil
}

// List lista pedidos por ID ascendente con sus itens.
func (r *OrderRepo) List(ctx context.Context, limit, offset int) ([]*entity.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, cliente_id, valor_total, status, motivo, data_criacao, atualizado_em
		FROM pedidos ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		list []*entity.Order
		ids  []int
	)
	for rows.Next() {
		var o entity.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Total, &o.Status, &o.Reason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, &o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}

	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range list {
		o.Items = items[o.ID]
	}
	return list, nil
}

func (r *OrderRepo) items(ctx context.Context, orderIDs []int) (map[int][]entity.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pedido_id, produto_id, quantidade, preco_unitario
		FROM pedido_itens WHERE pedido_id = ANY($1) ORDER BY id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]entity.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID int
			it      entity.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

// UpdateStatus registra el estado final del pedido.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id int, status, reason string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE pedidos SET status = $2, motivo = $3, atualizado_em = now() WHERE id = $1`,
		id, status, reason,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina el pedido; los itens caen por ON DELETE CASCADE.
func (r *OrderRepo) Delete(ctx context.Context, id int) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM pedidos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
