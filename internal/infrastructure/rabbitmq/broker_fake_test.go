package rabbitmq_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jhoicas/vendas-estoque/internal/infrastructure/rabbitmq"
)

// fakeBroker broker AMQP en memoria: exchanges fanout, cola por defecto, prefetch,
// ack/nack con reencolado y borrado de colas auto-delete.
type fakeBroker struct {
	mu        sync.Mutex
	exchanges map[string]bool
	bindings  map[string][]string
	queues    map[string]*fakeQueue
	inflight  map[uint64]*inflightMsg
	nextTag   uint64
	nextQueue int

	acks, rejects, requeues int
	published               []publishRecord
	channelErr              error
}

type publishRecord struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeQueue struct {
	name        string
	autoDelete  bool
	owner       *fakeChannel // exclusiva
	ready       []amqp.Delivery
	consumers   []*fakeConsumer
	rr          int
	hadConsumer bool
}

type fakeConsumer struct {
	ch       *fakeChannel
	queue    *fakeQueue
	out      chan amqp.Delivery
	autoAck  bool
	prefetch int
	unacked  int
	closed   bool
}

type inflightMsg struct {
	consumer *fakeConsumer
	msg      amqp.Delivery
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		exchanges: make(map[string]bool),
		bindings:  make(map[string][]string),
		queues:    make(map[string]*fakeQueue),
		inflight:  make(map[uint64]*inflightMsg),
	}
}

// Channel implementa rabbitmq.ChannelOpener.
func (b *fakeBroker) Channel() (rabbitmq.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channelErr != nil {
		return nil, b.channelErr
	}
	return &fakeChannel{b: b}, nil
}

func (b *fakeBroker) failChannels(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channelErr = err
}

// counts devuelve acks, nacks sin reencolar y nacks reencolando.
func (b *fakeBroker) counts() (acks, rejects, requeues int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acks, b.rejects, b.requeues
}

func (b *fakeBroker) queueCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues)
}

func (b *fakeBroker) queueDepth(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return -1
	}
	return len(q.ready)
}

// repliesPublished cantidad de publicaciones al exchange por defecto.
func (b *fakeBroker) repliesPublished() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.published {
		if p.exchange == "" {
			n++
		}
	}
	return n
}

func (b *fakeBroker) lastPublished(exchange string) (amqp.Publishing, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.published) - 1; i >= 0; i-- {
		if b.published[i].exchange == exchange {
			return b.published[i].msg, true
		}
	}
	return amqp.Publishing{}, false
}

func (b *fakeBroker) publishLocked(exchange, key string, msg amqp.Publishing) error {
	b.published = append(b.published, publishRecord{exchange: exchange, key: key, msg: msg})

	var targets []string
	if exchange == "" {
		targets = []string{key}
	} else {
		if !b.exchanges[exchange] {
			return fmt.Errorf("NOT_FOUND - no exchange '%s'", exchange)
		}
		targets = b.bindings[exchange]
	}

	for _, name := range targets {
		q, ok := b.queues[name]
		if !ok {
			continue
		}
		q.ready = append(q.ready, amqp.Delivery{
			Headers:       msg.Headers,
			ContentType:   msg.ContentType,
			DeliveryMode:  msg.DeliveryMode,
			CorrelationId: msg.CorrelationId,
			ReplyTo:       msg.ReplyTo,
			Timestamp:     msg.Timestamp,
			Body:          append([]byte(nil), msg.Body...),
			Exchange:      exchange,
			RoutingKey:    key,
		})
		b.dispatchLocked(q)
	}
	return nil
}

func (b *fakeBroker) dispatchLocked(q *fakeQueue) {
	for len(q.ready) > 0 {
		c := q.nextConsumer()
		if c == nil {
			return
		}
		d := q.ready[0]
		q.ready = q.ready[1:]

		b.nextTag++
		d.DeliveryTag = b.nextTag
		d.Acknowledger = b
		if !c.autoAck {
			c.unacked++
			b.inflight[d.DeliveryTag] = &inflightMsg{consumer: c, msg: d}
		}
		c.out <- d
	}
}

func (q *fakeQueue) nextConsumer() *fakeConsumer {
	n := len(q.consumers)
	for i := 0; i < n; i++ {
		c := q.consumers[(q.rr+i)%n]
		if c.closed {
			continue
		}
		if c.autoAck || c.prefetch == 0 || c.unacked < c.prefetch {
			q.rr = (q.rr + i + 1) % n
			return c
		}
	}
	return nil
}

func (b *fakeBroker) settle(tag uint64, requeue bool, ack bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	inf, ok := b.inflight[tag]
	if !ok {
		return fmt.Errorf("PRECONDITION_FAILED - unknown delivery tag %d", tag)
	}
	delete(b.inflight, tag)
	inf.consumer.unacked--
	q := inf.consumer.queue

	switch {
	case ack:
		b.acks++
	case requeue:
		b.requeues++
		d := inf.msg
		d.Redelivered = true
		q.ready = append([]amqp.Delivery{d}, q.ready...)
	default:
		b.rejects++
	}
	if _, alive := b.queues[q.name]; alive {
		b.dispatchLocked(q)
	}
	return nil
}

// amqp.Acknowledger.
func (b *fakeBroker) Ack(tag uint64, _ bool) error { return b.settle(tag, false, true) }
func (b *fakeBroker) Nack(tag uint64, _ bool, requeue bool) error {
	return b.settle(tag, requeue, false)
}
func (b *fakeBroker) Reject(tag uint64, requeue bool) error { return b.settle(tag, requeue, false) }

// fakeChannel implementa rabbitmq.Channel.
type fakeChannel struct {
	b         *fakeBroker
	prefetch  int
	closed    bool
	consumers []*fakeConsumer
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.closed {
		return amqp.ErrClosed
	}
	if kind != amqp.ExchangeFanout {
		return fmt.Errorf("tipo de exchange no soportado: %s", kind)
	}
	c.b.exchanges[name] = true
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, _, autoDelete, exclusive, _ bool, _ amqp.Table) (amqp.Queue, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.closed {
		return amqp.Queue{}, amqp.ErrClosed
	}
	if name == "" {
		c.b.nextQueue++
		name = fmt.Sprintf("amq.gen-%d", c.b.nextQueue)
	}
	q, ok := c.b.queues[name]
	if !ok {
		q = &fakeQueue{name: name, autoDelete: autoDelete}
		if exclusive {
			q.owner = c
		}
		c.b.queues[name] = q
	}
	return amqp.Queue{Name: name, Messages: len(q.ready), Consumers: len(q.consumers)}, nil
}

func (c *fakeChannel) QueueBind(name, _, exchange string, _ bool, _ amqp.Table) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.closed {
		return amqp.ErrClosed
	}
	if _, ok := c.b.queues[name]; !ok {
		return fmt.Errorf("NOT_FOUND - no queue '%s'", name)
	}
	for _, bound := range c.b.bindings[exchange] {
		if bound == name {
			return nil
		}
	}
	c.b.bindings[exchange] = append(c.b.bindings[exchange], name)
	return nil
}

func (c *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.closed {
		return amqp.ErrClosed
	}
	c.prefetch = prefetchCount
	return nil
}

func (c *fakeChannel) Consume(queue, _ string, autoAck, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.closed {
		return nil, amqp.ErrClosed
	}
	q, ok := c.b.queues[queue]
	if !ok {
		return nil, fmt.Errorf("NOT_FOUND - no queue '%s'", queue)
	}
	consumer := &fakeConsumer{
		ch:       c,
		queue:    q,
		out:      make(chan amqp.Delivery, 256),
		autoAck:  autoAck,
		prefetch: c.prefetch,
	}
	q.consumers = append(q.consumers, consumer)
	q.hadConsumer = true
	c.consumers = append(c.consumers, consumer)
	c.b.dispatchLocked(q)
	return consumer.out, nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.closed {
		return amqp.ErrClosed
	}
	return c.b.publishLocked(exchange, key, msg)
}

// Close cancela los consumidores del canal, reencola lo no confirmado y borra
// las colas auto-delete que quedaron sin consumidores.
func (c *fakeChannel) Close() error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	touched := map[*fakeQueue]bool{}
	for _, consumer := range c.consumers {
		consumer.closed = true
		close(consumer.out)
		q := consumer.queue
		touched[q] = true
		for i, other := range q.consumers {
			if other == consumer {
				q.consumers = append(q.consumers[:i], q.consumers[i+1:]...)
				break
			}
		}
		for tag, inf := range c.b.inflight {
			if inf.consumer != consumer {
				continue
			}
			delete(c.b.inflight, tag)
			d := inf.msg
			d.Redelivered = true
			q.ready = append([]amqp.Delivery{d}, q.ready...)
		}
	}
	for name, q := range c.b.queues {
		if q.owner == c || (q.autoDelete && q.hadConsumer && len(q.consumers) == 0) {
			delete(c.b.queues, name)
			delete(touched, q)
		}
	}
	for q := range touched {
		c.b.dispatchLocked(q)
	}
	return nil
}

var errChannelRefused = errors.New("canal rechazado")
