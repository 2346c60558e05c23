package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/vendas-estoque/internal/domain"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderStore)(nil)

// OrderStore pedidos en memoria.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[int]entity.Order
}

// NewOrderStore crea un repositorio de pedidos vacío.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[int]entity.Order)}
}

func (s *OrderStore) Create(_ context.Context, o *entity.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return domain.ErrDuplicate
	}
	s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (s *OrderStore) Exists(_ context.Context, id int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.orders[id]
	return ok, nil
}

func (s *OrderStore) GetByID(_ context.Context, id int) (*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	c := cloneOrder(o)
	return &c, nil
}

func (s *OrderStore) List(_ context.Context, limit, offset int) ([]*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, 0, len(s.orders))
	for id := range s.orders {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	if offset >= len(ids) {
		return []*entity.Order{}, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]*entity.Order, 0, len(ids))
	for _, id := range ids {
		c := cloneOrder(s.orders[id])
		out = append(out, &c)
	}
	return out, nil
}

func (s *OrderStore) UpdateStatus(_ context.Context, id int, status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status, o.Reason, o.UpdatedAt = status, reason, time.Now()
	s.orders[id] = o
	return nil
}

func (s *OrderStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

func cloneOrder(o entity.Order) entity.Order {
	o.Items = append([]entity.OrderItem(nil), o.Items...)
	return o
}
