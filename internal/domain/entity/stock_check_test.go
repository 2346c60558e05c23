package entity_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
)

func TestStockCheckRequest_NombresDelContrato(t *testing.T) {
	req := entity.StockCheckRequest{
		OrderID:  42,
		Items:    []entity.StockCheckItem{{ProductID: "A", Quantity: 5}},
		IssuedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"pedidoId":42,"itens":[{"produtoId":"A","quantidade":5}],"dataVenda":"2024-05-01T10:00:00Z"}`,
		string(raw))
}

func TestStockCheckResponse_Aprobada(t *testing.T) {
	raw, err := json.Marshal(entity.ApprovedResponse(7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"OK","motivo":null,"pedidoid":7,"estoqueok":true}`, string(raw))
}

func TestStockCheckResponse_RechazadaConMotivo(t *testing.T) {
	var resp entity.StockCheckResponse
	err := json.Unmarshal([]byte(`{"status":"Error","motivo":"produto A não encontrado","pedidoid":9,"estoqueok":false}`), &resp)
	require.NoError(t, err)

	assert.False(t, resp.Approved)
	assert.Equal(t, entity.StockStatusError, resp.Status)
	assert.Equal(t, 9, resp.OrderID)
	assert.Equal(t, "produto A não encontrado", resp.ReasonText())
}

func TestProcessedReservation_ReconstruyeRespuesta(t *testing.T) {
	rec := entity.NewProcessedReservation(entity.ApprovedResponse(3), time.Now())
	assert.Equal(t, entity.ApprovedResponse(3), rec.Response())

	denied := entity.NewProcessedReservation(entity.DeniedResponse(4, "sem estoque"), time.Now())
	assert.Equal(t, "sem estoque", denied.Response().ReasonText())
	assert.False(t, denied.Response().Approved)
}

func TestOrder_TotalYMensaje(t *testing.T) {
	o := &entity.Order{
		ID: 11,
		Items: []entity.OrderItem{
			{ProductID: "A", Quantity: 2, UnitPrice: decimal.RequireFromString("10.50")},
			{ProductID: "B", Quantity: 1, UnitPrice: decimal.RequireFromString("3")},
		},
	}
	assert.True(t, decimal.RequireFromString("24").Equal(o.ComputeTotal()))

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	msg := o.StockCheckRequest(at)
	assert.Equal(t, 11, msg.OrderID)
	assert.Equal(t, []entity.StockCheckItem{{ProductID: "A", Quantity: 2}, {ProductID: "B", Quantity: 1}}, msg.Items)
	assert.True(t, at.Equal(msg.IssuedAt))
}
