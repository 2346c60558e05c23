package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vendas-estoque/internal/application/dto"
	"github.com/jhoicas/vendas-estoque/internal/application/usecase"
	"github.com/jhoicas/vendas-estoque/internal/domain/entity"
	"github.com/jhoicas/vendas-estoque/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/vendas-estoque/internal/interfaces/http"
)

func buildInventoryApp(t *testing.T, stock map[string]int) *fiber.App {
	t.Helper()
	store := memory.NewInventoryStore()
	now := time.Now()
	for id, qty := range stock {
		require.NoError(t, store.Products().Create(context.Background(), &entity.Product{
			ID: id, Name: "Produto " + id, Price: decimal.NewFromInt(1), Quantity: qty, CreatedAt: now, UpdatedAt: now,
		}))
	}
	app := fiber.New()
	apphttp.InventoryRouter(app, apphttp.InventoryRouterDeps{
		ProductUC: usecase.NewProductUseCase(store.Products()),
		JWTSecret: testJWTSecret,
	})
	return app
}

func TestProductHandler_ListFiltroQuantidade(t *testing.T) {
	app := buildInventoryApp(t, map[string]int{"A": 1, "B": 30, "C": 4})

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/produtos?quantidade=5", tokenForRole(t, "vendedor"), nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.ProductListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	ids := make([]string, 0, len(out.Items))
	for _, p := range out.Items {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"A", "C"}, ids)
}

func TestProductHandler_ListQuantidadeInvalida(t *testing.T) {
	app := buildInventoryApp(t, nil)
	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/produtos?quantidade=-1", tokenForRole(t, "admin"), nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProductHandler_CreateGetUpdateDelete(t *testing.T) {
	app := buildInventoryApp(t, nil)
	tok := tokenForRole(t, "estoquista")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/produtos", tok, map[string]any{
		"id": "X1", "nome": "Caneta", "preco": "2.50", "quantidade": 7,
	}), -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPut, "/api/produtos/X1", tok, map[string]any{"quantidade": 3}), -1)
	require.NoError(t, err)
	var updated dto.ProductResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	resp.Body.Close()
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, "Caneta", updated.Name)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/produtos/X1", tok, nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodDelete, "/api/produtos/X1", tok, nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/produtos/X1", tok, nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductHandler_CreateDuplicado(t *testing.T) {
	app := buildInventoryApp(t, map[string]int{"A": 1})
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/produtos", tokenForRole(t, "admin"), map[string]any{
		"id": "A", "nome": "Outro", "quantidade": 1,
	}), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", errorCode(t, resp))
}

func TestProductHandler_VendedorNoModifica(t *testing.T) {
	app := buildInventoryApp(t, map[string]int{"A": 1})
	resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/api/produtos/A", tokenForRole(t, "vendedor"), nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
