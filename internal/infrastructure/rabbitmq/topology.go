package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology nombres del exchange fanout de ventas y de la cola durable del inventario.
type Topology struct {
	Exchange string
	Queue    string
}

// Declare declara exchange, cola y binding. Es idempotente: ambos lados la llaman
// al arrancar sin importar quién llegue primero.
func (t Topology) Declare(ch Channel) error {
	if err := ch.ExchangeDeclare(t.Exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declarar exchange %s: %w", t.Exchange, err)
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declarar cola %s: %w", t.Queue, err)
	}
	if err := ch.QueueBind(t.Queue, "", t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s -> %s: %w", t.Exchange, t.Queue, err)
	}
	return nil
}

// declareReplyQueue cola de respuesta de una sola llamada: nombre generado por el
// broker, exclusiva y borrada al cancelar su consumidor.
func declareReplyQueue(ch Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declarar cola de respuesta: %w", err)
	}
	return q, nil
}
