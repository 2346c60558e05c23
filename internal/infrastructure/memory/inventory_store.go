// Package memory implementa los puertos de persistencia en memoria.
// Se usa en tests y en ejecuciones locales sin PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/vendas-estoque/internal/application/reservation"
	"github.com/jhoicas/vendas-estoque/internal/domain"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/internal/domain/repository"
)

var _ reservation.TxRunner = (*InventoryStore)(nil)

// InventoryStore productos y registro de reservas procesadas detrás de un mutex.
// RunReservation trabaja sobre una copia y solo la publica si fn no falla.
type InventoryStore struct {
	mu        sync.Mutex
	products  map[string]entity.Product
	processed map[int]entity.ProcessedReservation
	lookups   []string
	failures  []error
}

// NewInventoryStore crea un inventario vacío.
func NewInventoryStore() *InventoryStore {
	return &InventoryStore{
		products:  make(map[string]entity.Product),
		processed: make(map[int]entity.ProcessedReservation),
	}
}

// SetStock crea o reemplaza la cantidad de un producto.
func (s *InventoryStore) SetStock(id string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.ID, p.Quantity = id, qty
	if p.Name == "" {
		p.Name = id
	}
	s.products[id] = p
}

// Stock cantidad actual; -1 si no existe.
func (s *InventoryStore) Stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return -1
	}
	return p.Quantity
}

// Lookups IDs consultados por GetByID dentro de reservas, en orden.
func (s *InventoryStore) Lookups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lookups...)
}

// FailNext hace que la próxima reserva falle con err antes de tocar datos.
func (s *InventoryStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

// MarkProcessed registra un pedido como ya aplicado.
func (s *InventoryStore) MarkProcessed(resp entity.StockCheckResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[resp.OrderID] = *entity.NewProcessedReservation(resp, time.Now())
}

// Processed indica si el pedido tiene registro de idempotencia.
func (s *InventoryStore) Processed(orderID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[orderID]
	return ok
}

// Products repositorio de productos fuera de transacción.
func (s *InventoryStore) Products() repository.ProductRepository {
	return &lockedProducts{s: s}
}

// RunReservation ejecuta fn sobre una copia de las tablas y la confirma si fn no falla.
func (s *InventoryStore) RunReservation(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	processedRepo repository.ProcessedReservationRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	products := &productTable{rows: make(map[string]entity.Product, len(s.products)), lookups: &s.lookups}
	for k, v := range s.products {
		products.rows[k] = v
	}
	processed := &processedTable{rows: make(map[int]entity.ProcessedReservation, len(s.processed))}
	for k, v := range s.processed {
		processed.rows[k] = v
	}

	if err := fn(products, processed); err != nil {
		return err
	}
	s.products = products.rows
	s.processed = processed.rows
	return nil
}

// productTable implementa ProductRepository sin bloqueo; el llamador sostiene el mutex.
type productTable struct {
	rows    map[string]entity.Product
	lookups *[]string
}

func (t *productTable) Create(_ context.Context, p *entity.Product) error {
	if _, ok := t.rows[p.ID]; ok {
		return domain.ErrDuplicate
	}
	t.rows[p.ID] = *p
	return nil
}

func (t *productTable) GetByID(_ context.Context, id string) (*entity.Product, error) {
	if t.lookups != nil {
		*t.lookups = append(*t.lookups, id)
	}
	p, ok := t.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *productTable) List(_ context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	ids := make([]string, 0, len(t.rows))
	for id, p := range t.rows {
		if f.MaxQuantity != nil && p.Quantity > *f.MaxQuantity {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if f.Offset >= len(ids) {
		return []*entity.Product{}, nil
	}
	ids = ids[f.Offset:]
	if f.Limit > 0 && f.Limit < len(ids) {
		ids = ids[:f.Limit]
	}
	out := make([]*entity.Product, 0, len(ids))
	for _, id := range ids {
		p := t.rows[id]
		out = append(out, &p)
	}
	return out, nil
}

func (t *productTable) Update(_ context.Context, p *entity.Product) error {
	if _, ok := t.rows[p.ID]; !ok {
		return domain.ErrNotFound
	}
	t.rows[p.ID] = *p
	return nil
}

func (t *productTable) Delete(_ context.Context, id string) error {
	if _, ok := t.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

func (t *productTable) DecrementQuantity(_ context.Context, id string, amount int) error {
	p, ok := t.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Quantity < amount {
		return domain.ErrInsufficientStock
	}
	p.Quantity -= amount
	t.rows[id] = p
	return nil
}

type processedTable struct {
	rows map[int]entity.ProcessedReservation
}

func (t *processedTable) Get(_ context.Context, orderID int) (*entity.ProcessedReservation, error) {
	rec, ok := t.rows[orderID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (t *processedTable) Save(_ context.Context, rec *entity.ProcessedReservation) error {
	if _, ok := t.rows[rec.OrderID]; ok {
		return domain.ErrDuplicate
	}
	t.rows[rec.OrderID] = *rec
	return nil
}

// lockedProducts envuelve productTable tomando el mutex del store en cada llamada.
type lockedProducts struct {
	s *InventoryStore
}

func (l *lockedProducts) table() *productTable {
	return &productTable{rows: l.s.products}
}

func (l *lockedProducts) Create(ctx context.Context, p *entity.Product) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.table().Create(ctx, p)
}

func (l *lockedProducts) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.table().GetByID(ctx, id)
}

func (l *lockedProducts) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.table().List(ctx, f)
}

func (l *lockedProducts) Update(ctx context.Context, p *entity.Product) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.table().Update(ctx, p)
}

func (l *lockedProducts) Delete(ctx context.Context, id string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.table().Delete(ctx, id)
}

func (l *lockedProducts) DecrementQuantity(ctx context.Context, id string, amount int) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.table().DecrementQuantity(ctx, id, amount)
}
