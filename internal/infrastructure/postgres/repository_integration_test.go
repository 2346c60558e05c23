//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/vendas-estoque/internal/domain"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/internal/domain/repository"
	"github.com/jhoicas/vendas-estoque/internal/infrastructure/postgres"
	"github.com/jhoicas/vendas-estoque/migrations"
	"github.com/jhoicas/vendas-estoque/pkg/config"
)

// setupDB levanta un postgres efímero con ambos esquemas aplicados.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("vendas_estoque"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	url, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool, migrations.Estoque, "estoque"))
	require.NoError(t, postgres.Migrate(ctx, pool, migrations.Vendas, "vendas"))
	return pool
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, id string, qty int) {
	t.Helper()
	now := time.Now().UTC()
	err := postgres.NewProductRepository(pool).Create(context.Background(), &entity.Product{
		ID: id, Name: "Produto " + id, Price: decimal.NewFromInt(10), Quantity: qty,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
}

// ========== productos ==========

func TestProductRepo_DecrementQuantity_Concurrent(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	seedProduct(t, pool, "P1", 10)
	repo := postgres.NewProductRepository(pool)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.DecrementQuantity(ctx, "P1", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, domain.ErrInsufficientStock):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 15, rejected)
	p, err := repo.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Quantity)
}

func TestProductRepo_DecrementQuantity_NotFound(t *testing.T) {
	pool := setupDB(t)
	err := postgres.NewProductRepository(pool).DecrementQuantity(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductRepo_ListFilterByQuantity(t *testing.T) {
	pool := setupDB(t)
	seedProduct(t, pool, "A", 2)
	seedProduct(t, pool, "B", 50)
	seedProduct(t, pool, "C", 5)

	limite := 5
	list, err := postgres.NewProductRepository(pool).List(context.Background(), repository.ProductFilter{
		MaxQuantity: &limite, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].ID)
	assert.Equal(t, "C", list[1].ID)
}

// ========== reservas ==========

func TestTxRunner_RollbackKeepsStock(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	seedProduct(t, pool, "P1", 5)
	seedProduct(t, pool, "P2", 1)

	err := postgres.NewTxRunner(pool).RunReservation(ctx, func(products repository.ProductRepository, _ repository.ProcessedReservationRepository) error {
		if err := products.DecrementQuantity(ctx, "P1", 3); err != nil {
			return err
		}
		return products.DecrementQuantity(ctx, "P2", 2)
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	p, err := postgres.NewProductRepository(pool).GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Quantity)
}

func TestProcessedReservationRepo_Duplicate(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	repo := postgres.NewProcessedReservationRepository(pool)
	rec := entity.NewProcessedReservation(entity.ApprovedResponse(42), time.Now().UTC())

	require.NoError(t, repo.Save(ctx, rec))
	assert.ErrorIs(t, repo.Save(ctx, rec), domain.ErrDuplicate)

	got, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Approved)
	assert.Empty(t, got.Reason)

	missing, err := repo.Get(ctx, 43)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// ========== pedidos ==========

func TestOrderRepo_Lifecycle(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	repo := postgres.NewOrderRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	o := &entity.Order{
		ID: 7, CustomerID: "cli-1", Status: entity.OrderStatusPending,
		CreatedAt: now, UpdatedAt: now,
		Items: []entity.OrderItem{
			{ProductID: "P1", Quantity: 2, UnitPrice: decimal.NewFromFloat(3.5)},
			{ProductID: "P2", Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		},
	}
	o.Total = o.ComputeTotal()
	require.NoError(t, repo.Create(ctx, o))
	assert.ErrorIs(t, repo.Create(ctx, o), domain.ErrDuplicate)

	exists, err := repo.Exists(ctx, 7)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.UpdateStatus(ctx, 7, entity.OrderStatusRejected, "sem estoque"))
	got, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.OrderStatusRejected, got.Status)
	assert.Equal(t, "sem estoque", got.Reason)
	assert.True(t, decimal.NewFromInt(17).Equal(got.Total))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "P1", got.Items[0].ProductID)

	list, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, 7))
	assert.ErrorIs(t, repo.Delete(ctx, 7), domain.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 7, entity.OrderStatusApproved, ""), domain.ErrNotFound)
}
