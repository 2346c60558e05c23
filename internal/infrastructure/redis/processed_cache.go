package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/vendas-estoque/internal/application/reservation"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/pkg/config"
)

var _ reservation.ProcessedCache = (*ProcessedCache)(nil)

// NewClient abre el cliente y verifica la conexión con un PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// ProcessedCache guarda la respuesta de cada pedido ya reservado para contestar
// redeliveries sin tocar la base.
type ProcessedCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewProcessedCache construye la caché. ttl 0 = sin expiración.
func NewProcessedCache(rdb *redis.Client, ttl time.Duration) *ProcessedCache {
	return &ProcessedCache{rdb: rdb, ttl: ttl}
}

// Key clave de un pedido.
func (c *ProcessedCache) Key(orderID int) string {
	return fmt.Sprintf("estoque:reserva:%d", orderID)
}

// Get devuelve nil, nil si el pedido no está en caché.
func (c *ProcessedCache) Get(ctx context.Context, orderID int) (*entity.StockCheckResponse, error) {
	raw, err := c.rdb.Get(ctx, c.Key(orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var resp entity.StockCheckResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode cached reservation: %w", err)
	}
	return &resp, nil
}

// Set guarda la respuesta con el TTL configurado.
func (c *ProcessedCache) Set(ctx context.Context, resp entity.StockCheckResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode reservation: %w", err)
	}
	if err := c.rdb.Set(ctx, c.Key(resp.OrderID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
