package rabbitmq

import (
	"fmt"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingReplies_ResolveEntregaUnaSolaVez(t *testing.T) {
	p := newPendingReplies()
	slot, err := p.register("c1")
	require.NoError(t, err)

	assert.True(t, p.resolve("c1", amqp.Delivery{Body: []byte("uno")}))
	assert.False(t, p.resolve("c1", amqp.Delivery{Body: []byte("dos")}), "el slot se consume con la primera respuesta")

	d := <-slot
	assert.Equal(t, "uno", string(d.Body))
	assert.Equal(t, 0, p.len())
}

func TestPendingReplies_IDDuplicado(t *testing.T) {
	p := newPendingReplies()
	_, err := p.register("c1")
	require.NoError(t, err)

	_, err = p.register("c1")
	assert.Error(t, err)
}

func TestPendingReplies_DiscardEvitaEntregasTardias(t *testing.T) {
	p := newPendingReplies()
	_, err := p.register("c1")
	require.NoError(t, err)

	p.discard("c1")
	assert.False(t, p.resolve("c1", amqp.Delivery{}))
	assert.Equal(t, 0, p.len())
}

func TestPendingReplies_Concurrente(t *testing.T) {
	p := newPendingReplies()
	const n = 100
	slots := make([]<-chan amqp.Delivery, n)
	for i := 0; i < n; i++ {
		s, err := p.register(fmt.Sprintf("c%d", i))
		require.NoError(t, err)
		slots[i] = s
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			assert.True(t, p.resolve(id, amqp.Delivery{CorrelationId: id}))
		}(i)
	}
	wg.Wait()

	for i, s := range slots {
		d := <-s
		assert.Equal(t, fmt.Sprintf("c%d", i), d.CorrelationId)
	}
	assert.Equal(t, 0, p.len())
}

func TestHeaderCarrier(t *testing.T) {
	h := headerCarrier(amqp.Table{"traceparent": "00-abc", "x-num": int32(3)})

	assert.Equal(t, "00-abc", h.Get("traceparent"))
	assert.Equal(t, "", h.Get("x-num"), "valores no string se ignoran")
	assert.Equal(t, "", h.Get("falta"))

	h.Set("tracestate", "k=v")
	assert.ElementsMatch(t, []string{"traceparent", "x-num", "tracestate"}, h.Keys())
}
