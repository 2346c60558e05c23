package rabbitmq

import (
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// pendingReplies tabla de llamadas en curso: correlation id -> slot de un solo uso.
// resolve busca y borra en la misma sección crítica, así una respuesta tardía o
// duplicada nunca encuentra el slot.
type pendingReplies struct {
	mu    sync.Mutex
	slots map[string]chan amqp.Delivery
}

func newPendingReplies() *pendingReplies {
	return &pendingReplies{slots: make(map[string]chan amqp.Delivery)}
}

func (p *pendingReplies) register(id string) (<-chan amqp.Delivery, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.slots[id]; ok {
		return nil, fmt.Errorf("correlation id %s ya registrado", id)
	}
	slot := make(chan amqp.Delivery, 1)
	p.slots[id] = slot
	return slot, nil
}

// resolve entrega d al slot de su correlation id. false si no hay llamada esperando.
func (p *pendingReplies) resolve(id string, d amqp.Delivery) bool {
	p.mu.Lock()
	slot, ok := p.slots[id]
	if ok {
		delete(p.slots, id)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	slot <- d
	return true
}

func (p *pendingReplies) discard(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.slots, id)
}

func (p *pendingReplies) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}
