// Package rabbitmq implementa el protocolo de reserva de stock sobre RabbitMQ:
// topología, cliente RPC (lado ventas) y servidor de consumo (lado inventario).
package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jhoicas/vendas-estoque/internal/domain"
	"github.com/jhoicas/vendas-estoque/pkg/logger"
)

// Channel subconjunto de *amqp.Channel que usa el protocolo.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ChannelOpener abre canales sobre una conexión compartida.
type ChannelOpener interface {
	Channel() (Channel, error)
}

var _ ChannelOpener = (*Connection)(nil)

// Connection conexión AMQP compartida por todo el proceso. Si el broker la
// cierra, el siguiente Channel() vuelve a conectar.
type Connection struct {
	url     string
	amqpCfg amqp.Config
	log     *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// Dial conecta al broker reintentando con backoff exponencial hasta que ctx se cancele
// o pase un minuto.
func Dial(ctx context.Context, url, name string, log *logger.Logger) (*Connection, error) {
	c := &Connection{
		url: url,
		amqpCfg: amqp.Config{
			Heartbeat:  10 * time.Second,
			Locale:     "en_US",
			Properties: amqp.Table{"connection_name": name},
		},
		log: log,
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Minute
	err := backoff.RetryNotify(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.dialLocked()
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("reintento_en", wait).Msg("broker no disponible")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBrokerUnavailable, err)
	}
	log.Info().Msg("conectado a RabbitMQ")
	return c, nil
}

func (c *Connection) dialLocked() error {
	conn, err := amqp.DialConfig(c.url, c.amqpCfg)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// Channel abre un canal nuevo, reconectando si la conexión se perdió.
func (c *Connection) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		c.log.Warn().Msg("conexión AMQP cerrada, reconectando")
		if err := c.dialLocked(); err != nil {
			return nil, fmt.Errorf("%w: reconectar: %v", domain.ErrBrokerUnavailable, err)
		}
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: abrir canal: %v", domain.ErrBrokerUnavailable, err)
	}
	return ch, nil
}

// Close cierra la conexión.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
