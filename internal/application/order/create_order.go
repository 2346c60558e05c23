package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/vendas-estoque/internal/application/dto"
	"github.com/jhoicas/vendas-estoque/internal/domain"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/internal/domain/repository"
	"github.com/jhoicas/vendas-estoque/pkg/logger"
)

// StockReserver reserva stock para un pedido (implementado por el cliente RabbitMQ).
type StockReserver interface {
	Reserve(ctx context.Context, req entity.StockCheckRequest) (*entity.StockCheckResponse, error)
}

// StockDeniedError el inventario rechazó la reserva. errors.Is(err, domain.ErrStockDenied) es true.
type StockDeniedError struct {
	OrderID int
	Reason  string
}

func (e *StockDeniedError) Error() string {
	return fmt.Sprintf("pedido %d rechazado por el inventario: %s", e.OrderID, e.Reason)
}

func (e *StockDeniedError) Unwrap() error {
	return domain.ErrStockDenied
}

// CreateOrderUseCase registra una venta y reserva su stock.
// El pedido se persiste pending antes de publicar la reserva y pasa a un estado
// final según la respuesta: approved, rejected, unconfirmed (timeout) o failed.
type CreateOrderUseCase struct {
	orders   repository.OrderRepository
	reserver StockReserver
	log      *logger.Logger
	now      func() time.Time
}

// NewCreateOrderUseCase construye el caso de uso.
func NewCreateOrderUseCase(orders repository.OrderRepository, reserver StockReserver, log *logger.Logger) *CreateOrderUseCase {
	return &CreateOrderUseCase{orders: orders, reserver: reserver, log: log.Component("create-order"), now: time.Now}
}

// CreateOrder valida, persiste pending, reserva y devuelve el pedido en su estado final.
// Devuelve *StockDeniedError si el inventario rechaza; ErrReservationTimeout o
// ErrBrokerUnavailable ante fallas del protocolo.
func (uc *CreateOrderUseCase) CreateOrder(ctx context.Context, in dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	exists, err := uc.orders.Exists(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("verificar pedido: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicate
	}

	now := uc.now().UTC()
	o := &entity.Order{
		ID:         in.ID,
		CustomerID: in.CustomerID,
		Status:     entity.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		Items:      make([]entity.OrderItem, 0, len(in.Items)),
	}
	for _, it := range in.Items {
		o.Items = append(o.Items, entity.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	o.Total = o.ComputeTotal()

	if err := uc.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	resp, err := uc.reserver.Reserve(ctx, o.StockCheckRequest(now))
	if err != nil {
		status, reason := entity.OrderStatusFailed, "falha de comunicação com o estoque"
		if errors.Is(err, domain.ErrReservationTimeout) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// La solicitud pudo haberse aplicado; queda sin confirmar.
			status, reason = entity.OrderStatusUnconfirmed, "sem resposta do estoque"
		}
		uc.log.Warn().Err(err).Int("pedido_id", o.ID).Str("status", status).Msg("reserva de stock sin resultado")
		uc.finish(ctx, o, status, reason)
		return nil, err
	}

	if !resp.Approved {
		reason := resp.ReasonText()
		uc.log.Info().Int("pedido_id", o.ID).Str("motivo", reason).Msg("pedido rechazado por el inventario")
		uc.finish(ctx, o, entity.OrderStatusRejected, reason)
		return nil, &StockDeniedError{OrderID: o.ID, Reason: reason}
	}

	uc.finish(ctx, o, entity.OrderStatusApproved, "")
	uc.log.Info().Int("pedido_id", o.ID).Str("total", o.Total.String()).Msg("pedido aprobado")
	return ToOrderResponse(o), nil
}

// finish registra el estado final. Usa un contexto sin cancelación: el pedido ya
// existe y no debe quedar pending porque el llamador se fue.
func (uc *CreateOrderUseCase) finish(ctx context.Context, o *entity.Order, status, reason string) {
	o.Status, o.Reason = status, reason
	if err := uc.orders.UpdateStatus(context.WithoutCancel(ctx), o.ID, status, reason); err != nil {
		uc.log.Error().Err(err).Int("pedido_id", o.ID).Str("status", status).Msg("no se pudo actualizar el estado del pedido")
	}
}

func validate(in dto.CreateOrderRequest) error {
	if in.ID <= 0 {
		return fmt.Errorf("%w: id del pedido requerido", domain.ErrInvalidInput)
	}
	if in.CustomerID == "" {
		return fmt.Errorf("%w: clienteId requerido", domain.ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: el pedido no tiene itens", domain.ErrInvalidInput)
	}
	for _, it := range in.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return fmt.Errorf("%w: item con produtoId vacío o cantidad no positiva", domain.ErrInvalidInput)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: precio negativo para %s", domain.ErrInvalidInput, it.ProductID)
		}
	}
	return nil
}

// ToOrderResponse mapea la entidad a su DTO.
func ToOrderResponse(o *entity.Order) *dto.OrderResponse {
	if o == nil {
		return nil
	}
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.OrderItemResponse{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return &dto.OrderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Total:      o.Total,
		Status:     o.Status,
		Reason:     o.Reason,
		CreatedAt:  o.CreatedAt,
		Items:      items,
	}
}
