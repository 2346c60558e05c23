package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/vendas-estoque/internal/domain"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/pkg/logger"
)

const tracerName = "github.com/jhoicas/vendas-estoque/internal/infrastructure/rabbitmq"

// DefaultReplyTimeout plazo de espera de una respuesta del inventario.
const DefaultReplyTimeout = 30 * time.Second

// ReservationClient lado ventas del protocolo. Cada Reserve usa su propio canal
// y su propia cola de respuesta; solo comparten la conexión y la tabla de correlación.
type ReservationClient struct {
	conn     ChannelOpener
	topology Topology
	timeout  time.Duration
	pending  *pendingReplies
	log      *logger.Logger
	tracer   trace.Tracer
}

// NewReservationClient construye el cliente. timeout <= 0 usa DefaultReplyTimeout.
func NewReservationClient(conn ChannelOpener, topology Topology, timeout time.Duration, log *logger.Logger) *ReservationClient {
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	return &ReservationClient{
		conn:     conn,
		topology: topology,
		timeout:  timeout,
		pending:  newPendingReplies(),
		log:      log.Component("reservation-client"),
		tracer:   otel.Tracer(tracerName),
	}
}

// DeclareTopology declara exchange, cola y binding desde el lado ventas, para no
// perder solicitudes si el inventario todavía no arrancó.
func (c *ReservationClient) DeclareTopology() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()
	return c.topology.Declare(ch)
}

// Reserve publica la solicitud y bloquea hasta recibir la respuesta correlacionada,
// agotar el plazo o cancelarse ctx. Un rechazo de stock es una respuesta válida
// (Approved=false), no un error.
func (c *ReservationClient) Reserve(ctx context.Context, req entity.StockCheckRequest) (*entity.StockCheckResponse, error) {
	ctx, span := c.tracer.Start(ctx, "estoque.reservar",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("pedido.id", req.OrderID),
			attribute.String("messaging.destination.name", c.topology.Exchange),
		))
	defer span.End()

	resp, err := c.reserve(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("estoque.ok", resp.Approved))
	return resp, nil
}

func (c *ReservationClient) reserve(ctx context.Context, req entity.StockCheckRequest) (*entity.StockCheckResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("codificar solicitud: %w", err)
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	// Cerrar el canal cancela el consumidor y el broker borra la cola de respuesta.
	defer func() { _ = ch.Close() }()

	replyQueue, err := declareReplyQueue(ch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBrokerUnavailable, err)
	}

	correlationID := uuid.NewString()
	slot, err := c.pending.register(correlationID)
	if err != nil {
		return nil, err
	}
	defer c.pending.discard(correlationID)

	deliveries, err := ch.Consume(replyQueue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: consumir cola de respuesta: %v", domain.ErrBrokerUnavailable, err)
	}
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		c.dispatch(deliveries)
	}()

	err = ch.PublishWithContext(ctx, c.topology.Exchange, "", false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: correlationID,
		ReplyTo:       replyQueue.Name,
		Timestamp:     time.Now().UTC(),
		Headers:       injectTraceContext(ctx),
		Body:          body,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: publicar solicitud: %v", domain.ErrBrokerUnavailable, err)
	}
	c.log.Debug().Int("pedido_id", req.OrderID).Str("correlation_id", correlationID).Msg("solicitud de reserva publicada")

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case d := <-slot:
		return decodeReply(d)
	case <-closed:
		// El canal se cerró; puede haber una respuesta que llegó justo antes.
		select {
		case d := <-slot:
			return decodeReply(d)
		default:
			return nil, fmt.Errorf("%w: canal de respuesta cerrado", domain.ErrBrokerUnavailable)
		}
	case <-timer.C:
		c.log.Warn().Int("pedido_id", req.OrderID).Dur("timeout", c.timeout).Msg("sin respuesta del inventario")
		return nil, fmt.Errorf("%w: pedido %d", domain.ErrReservationTimeout, req.OrderID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// dispatch entrega cada respuesta a su llamada. Termina cuando se cierra el canal.
func (c *ReservationClient) dispatch(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		if !c.pending.resolve(d.CorrelationId, d) {
			c.log.Warn().Str("correlation_id", d.CorrelationId).Msg("respuesta sin llamada pendiente, descartada")
		}
	}
}

func decodeReply(d amqp.Delivery) (*entity.StockCheckResponse, error) {
	var resp entity.StockCheckResponse
	if err := json.Unmarshal(d.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w: respuesta ilegible: %v", domain.ErrBrokerUnavailable, domain.ErrMalformedMessage, err)
	}
	return &resp, nil
}

// Pending cantidad de llamadas esperando respuesta.
func (c *ReservationClient) Pending() int {
	return c.pending.len()
}
