package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/vendas-estoque/internal/application/reservation"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/pkg/logger"
)

// Processor decide qué responder y cómo confirmar cada solicitud.
type Processor interface {
	Process(ctx context.Context, d reservation.Delivery) reservation.Result
}

var errDeliveriesClosed = errors.New("canal de consumo cerrado por el broker")

// ReservationServer lado inventario del protocolo: N workers compitiendo por la
// cola durable, cada uno con prefetch 1 sobre su propio canal.
type ReservationServer struct {
	conn       ChannelOpener
	topology   Topology
	processor  Processor
	workers    int
	log        *logger.Logger
	tracer     trace.Tracer
	newBackOff func() backoff.BackOff
}

// NewReservationServer construye el servidor. workers < 1 se trata como 1.
func NewReservationServer(conn ChannelOpener, topology Topology, processor Processor, workers int, log *logger.Logger) *ReservationServer {
	if workers < 1 {
		workers = 1
	}
	return &ReservationServer{
		conn:      conn,
		topology:  topology,
		processor: processor,
		workers:   workers,
		log:       log.Component("reservation-server"),
		tracer:    otel.Tracer(tracerName),
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 500 * time.Millisecond
			bo.MaxInterval = 30 * time.Second
			bo.MaxElapsedTime = 0
			return bo
		},
	}
}

// Run consume hasta que ctx se cancele. Un worker cuyo canal se cae vuelve a
// abrirlo con backoff; Run solo devuelve error si la topología no puede declararse
// al arrancar.
func (s *ReservationServer) Run(ctx context.Context) error {
	ch, err := s.conn.Channel()
	if err != nil {
		return err
	}
	err = s.topology.Declare(ch)
	_ = ch.Close()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 1; i <= s.workers; i++ {
		workerID := i
		g.Go(func() error {
			s.runWorker(ctx, workerID)
			return nil
		})
	}
	s.log.Info().Int("workers", s.workers).Str("queue", s.topology.Queue).Msg("consumidores de reserva iniciados")
	return g.Wait()
}

func (s *ReservationServer) runWorker(ctx context.Context, workerID int) {
	bo := s.newBackOff()
	for {
		started := time.Now()
		err := s.consume(ctx, workerID)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > time.Minute {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		s.log.Warn().Err(err).Int("worker", workerID).Dur("reintento_en", wait).Msg("worker detenido, reintentando")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (s *ReservationServer) consume(ctx context.Context, workerID int) error {
	ch, err := s.conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if err := s.topology.Declare(ch); err != nil {
		return err
	}
	tag := fmt.Sprintf("estoque-worker-%d", workerID)
	deliveries, err := ch.Consume(s.topology.Queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consumir %s: %w", s.topology.Queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			s.handle(ctx, ch, d)
		}
	}
}

// handle procesa una entrega, publica la respuesta si el emisor la espera y
// recién después hace ack/nack.
func (s *ReservationServer) handle(ctx context.Context, ch Channel, d amqp.Delivery) {
	ctx, span := s.tracer.Start(extractTraceContext(ctx, d.Headers), "estoque.processar",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.message.conversation_id", d.CorrelationId),
			attribute.Bool("messaging.rabbitmq.redelivered", d.Redelivered),
		))
	defer span.End()

	result := s.process(ctx, d)
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}

	if result.Response != nil && d.ReplyTo != "" {
		if err := s.reply(ctx, ch, d, *result.Response); err != nil {
			s.log.Error().Err(err).Int("pedido_id", result.Response.OrderID).Msg("no se pudo publicar la respuesta, reencolando")
			// Si era aprobada, la redelivery la reenvía desde el registro de idempotencia.
			result.Action = reservation.ActionRequeue
		}
	}

	span.SetAttributes(attribute.String("estoque.acao", result.Action.String()))
	if err := settle(d, result.Action); err != nil {
		s.log.Error().Err(err).Str("correlation_id", d.CorrelationId).Msg("ack/nack fallido")
	}
}

// process recupera panics del procesador; el mensaje que los provoca se descarta.
func (s *ReservationServer) process(ctx context.Context, d amqp.Delivery) (result reservation.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("correlation_id", d.CorrelationId).Msg("panic procesando reserva")
			result = reservation.Result{Action: reservation.ActionReject, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.processor.Process(ctx, reservation.Delivery{
		Body:          d.Body,
		CorrelationID: d.CorrelationId,
		ReplyTo:       d.ReplyTo,
		Redelivered:   d.Redelivered,
	})
}

func (s *ReservationServer) reply(ctx context.Context, ch Channel, d amqp.Delivery, resp entity.StockCheckResponse) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("codificar respuesta: %w", err)
	}
	return ch.PublishWithContext(ctx, "", d.ReplyTo, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Transient,
		CorrelationId: d.CorrelationId,
		Timestamp:     time.Now().UTC(),
		Headers:       injectTraceContext(ctx),
		Body:          body,
	})
}

func settle(d amqp.Delivery, action reservation.Action) error {
	switch action {
	case reservation.ActionAck:
		return d.Ack(false)
	case reservation.ActionRequeue:
		return d.Nack(false, true)
	default:
		return d.Nack(false, false)
	}
}
