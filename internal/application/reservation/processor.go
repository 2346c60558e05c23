package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/vendas-estoque/internal/domain"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/internal/domain/repository"
	"github.com/jhoicas/vendas-estoque/pkg/logger"
)

// Action qué hacer con el mensaje entrante una vez procesado.
type Action int

const (
	ActionAck     Action = iota // confirmado y eliminado de la cola
	ActionReject                // nack sin reencolar
	ActionRequeue               // nack reencolando
)

func (a Action) String() string {
	switch a {
	case ActionAck:
		return "ack"
	case ActionReject:
		return "reject"
	case ActionRequeue:
		return "requeue"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Delivery mensaje de solicitud tal como llega del broker.
type Delivery struct {
	Body          []byte
	CorrelationID string
	ReplyTo       string
	Redelivered   bool
}

// Result decisión del procesador. Response nil significa que no hay respuesta
// que publicar (mensaje ilegible o falla transitoria).
type Result struct {
	Response *entity.StockCheckResponse
	Action   Action
	Replayed bool // respuesta reconstruida desde el registro de idempotencia
	Err      error
}

// Options comportamiento configurable del procesador.
type Options struct {
	RequeueOnTransient bool
}

// Processor aplica una solicitud de reserva al inventario con semántica todo o nada.
type Processor struct {
	tx    TxRunner
	cache ProcessedCache // opcional
	opts  Options
	log   *logger.Logger
	now   func() time.Time
}

// NewProcessor construye el procesador. cache puede ser nil.
func NewProcessor(tx TxRunner, cache ProcessedCache, opts Options, log *logger.Logger) *Processor {
	return &Processor{tx: tx, cache: cache, opts: opts, log: log, now: time.Now}
}

// errDenied aborta la transacción cuando algún ítem no puede reservarse.
var errDenied = errors.New("reserva rechazada")

// Process decodifica la solicitud, verifica cada ítem en orden y descuenta todo
// dentro de una única transacción.
func (p *Processor) Process(ctx context.Context, d Delivery) Result {
	req, err := DecodeRequest(d.Body)
	if err != nil {
		p.log.Warn().Err(err).Str("correlation_id", d.CorrelationID).Msg("mensaje de reserva descartado")
		return Result{Action: ActionReject, Err: err}
	}

	if cached := p.cached(ctx, req.OrderID); cached != nil {
		p.log.Info().Int("pedido_id", req.OrderID).Msg("pedido ya procesado (caché), reenviando respuesta")
		return Result{Response: cached, Action: ActionAck, Replayed: true}
	}

	var (
		resp     entity.StockCheckResponse
		replayed bool
	)
	err = p.tx.RunReservation(ctx, func(products repository.ProductRepository, processed repository.ProcessedReservationRepository) error {
		prev, err := processed.Get(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if prev != nil {
			resp, replayed = prev.Response(), true
			return nil
		}

		resp, err = reserveItems(ctx, products, req)
		if err != nil {
			return err
		}
		if !resp.Approved {
			return errDenied
		}
		return processed.Save(ctx, entity.NewProcessedReservation(resp, p.now()))
	})

	switch {
	case errors.Is(err, errDenied):
		p.log.Info().Int("pedido_id", req.OrderID).Str("motivo", resp.ReasonText()).Msg("reserva rechazada")
		return Result{Response: &resp, Action: ActionReject}
	case errors.Is(err, domain.ErrDuplicate):
		// Otra entrega del mismo pedido confirmó primero; al reencolar se reenvía su respuesta.
		p.log.Warn().Int("pedido_id", req.OrderID).Msg("carrera con otra entrega del mismo pedido, reencolando")
		return Result{Action: ActionRequeue, Err: err}
	case err != nil:
		p.log.Error().Err(err).Int("pedido_id", req.OrderID).Bool("redelivered", d.Redelivered).Msg("falla transitoria al reservar stock")
		return Result{Action: p.transientAction(), Err: err}
	}

	if replayed {
		p.log.Info().Int("pedido_id", req.OrderID).Msg("pedido ya procesado, reenviando respuesta")
	} else {
		p.log.Info().Int("pedido_id", req.OrderID).Int("itens", len(req.Items)).Msg("reserva aprobada")
	}
	p.remember(ctx, resp)
	return Result{Response: &resp, Action: ActionAck, Replayed: replayed}
}

func (p *Processor) transientAction() Action {
	if p.opts.RequeueOnTransient {
		return ActionRequeue
	}
	return ActionReject
}

func (p *Processor) cached(ctx context.Context, orderID int) *entity.StockCheckResponse {
	if p.cache == nil {
		return nil
	}
	resp, err := p.cache.Get(ctx, orderID)
	if err != nil {
		p.log.Warn().Err(err).Int("pedido_id", orderID).Msg("caché de reservas no disponible")
		return nil
	}
	return resp
}

func (p *Processor) remember(ctx context.Context, resp entity.StockCheckResponse) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, resp); err != nil {
		p.log.Warn().Err(err).Int("pedido_id", resp.OrderID).Msg("no se pudo cachear la reserva")
	}
}

// reserveItems recorre los ítems en orden y se detiene en el primero que falla.
// Un error devuelto es de infraestructura; los rechazos viajan en la respuesta.
func reserveItems(ctx context.Context, products repository.ProductRepository, req entity.StockCheckRequest) (entity.StockCheckResponse, error) {
	for _, item := range req.Items {
		product, err := products.GetByID(ctx, item.ProductID)
		if err != nil {
			return entity.StockCheckResponse{}, err
		}
		if product == nil {
			return entity.DeniedResponse(req.OrderID, NotFoundReason(item.ProductID)), nil
		}
		if !product.HasStock(item.Quantity) {
			return entity.DeniedResponse(req.OrderID, InsufficientReason(item, product.Quantity)), nil
		}

		err = products.DecrementQuantity(ctx, item.ProductID, item.Quantity)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return entity.DeniedResponse(req.OrderID, NotFoundReason(item.ProductID)), nil
		case errors.Is(err, domain.ErrInsufficientStock):
			return entity.DeniedResponse(req.OrderID, InsufficientReason(item, product.Quantity)), nil
		case err != nil:
			return entity.StockCheckResponse{}, err
		}
	}
	return entity.ApprovedResponse(req.OrderID), nil
}

// DecodeRequest parsea y valida el cuerpo de una solicitud de reserva.
func DecodeRequest(body []byte) (entity.StockCheckRequest, error) {
	var req entity.StockCheckRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	if req.OrderID <= 0 {
		return req, fmt.Errorf("%w: pedidoId inválido (%d)", domain.ErrMalformedMessage, req.OrderID)
	}
	if len(req.Items) == 0 {
		return req, fmt.Errorf("%w: pedido %d sin itens", domain.ErrMalformedMessage, req.OrderID)
	}
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return req, fmt.Errorf("%w: item inválido en pedido %d", domain.ErrMalformedMessage, req.OrderID)
		}
	}
	return req, nil
}

// NotFoundReason motivo de rechazo por producto inexistente.
func NotFoundReason(productID string) string {
	return fmt.Sprintf("produto %s não encontrado", productID)
}

// InsufficientReason motivo de rechazo por falta de stock.
func InsufficientReason(item entity.StockCheckItem, available int) string {
	return fmt.Sprintf("estoque insuficiente para o produto %s: solicitado %d, disponível %d",
		item.ProductID, item.Quantity, available)
}
