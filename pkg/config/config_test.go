package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vendas-estoque/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load("estoque")
	require.NoError(t, err)

	assert.Equal(t, "estoque", cfg.App.Name)
	assert.Equal(t, "estoque", cfg.DB.DBName)
	assert.Equal(t, "venda_realizada", cfg.RabbitMQ.Exchange)
	assert.Equal(t, "atualizar_estoque", cfg.RabbitMQ.Queue)
	assert.Equal(t, 30*time.Second, cfg.RabbitMQ.ReplyTimeout)
	assert.Equal(t, 1, cfg.RabbitMQ.Workers)
	assert.True(t, cfg.RabbitMQ.RequeueOnTransient)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_VariablesDeEntorno(t *testing.T) {
	t.Setenv("APP_NAME", "vendas-test")
	t.Setenv("RESERVATION_TIMEOUT", "5s")
	t.Setenv("RESERVATION_WORKERS", "4")
	t.Setenv("RESERVATION_REQUEUE_TRANSIENT", "false")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DB_PORT", "6543")

	cfg, err := config.Load("vendas")
	require.NoError(t, err)

	assert.Equal(t, "vendas-test", cfg.App.Name)
	assert.Equal(t, 5*time.Second, cfg.RabbitMQ.ReplyTimeout)
	assert.Equal(t, 4, cfg.RabbitMQ.Workers)
	assert.False(t, cfg.RabbitMQ.RequeueOnTransient)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 6543, cfg.DB.Port)
}

func TestLoad_TimeoutEnSegundos(t *testing.T) {
	t.Setenv("RESERVATION_TIMEOUT", "12")

	cfg, err := config.Load("vendas")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, cfg.RabbitMQ.ReplyTimeout)
}

func TestLoad_WorkersInvalidos(t *testing.T) {
	t.Setenv("RESERVATION_WORKERS", "0")

	_, err := config.Load("estoque")
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss", DBName: "vendas", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/vendas?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
