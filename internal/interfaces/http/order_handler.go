package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vendas-estoque/internal/application/dto"
	"github.com/jhoicas/vendas-estoque/internal/application/order"
	"github.com/jhoicas/vendas-estoque/internal/domain"
)

// OrderHandler maneja las ventas: registro con reserva de stock y consultas.
type OrderHandler struct {
	create *order.CreateOrderUseCase
	query  *order.QueryUseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(create *order.CreateOrderUseCase, query *order.QueryUseCase) *OrderHandler {
	return &OrderHandler{create: create, query: query}
}

// Create godoc
// @Summary      Registrar venta
// @Description  Persiste el pedido y reserva el stock en el inventario. Responde con el pedido aprobado.
// @Tags         vendas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "Pedido"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Failure      504   {object}  dto.ErrorResponse
// @Router       /api/vendas [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.create.CreateOrder(c.UserContext(), in)
	if err != nil {
		status, body := orderError(err)
		return c.Status(status).JSON(body)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// orderError traduce el resultado del orquestador a HTTP.
func orderError(err error) (int, dto.ErrorResponse) {
	var denied *order.StockDeniedError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: "ya existe un pedido con ese id"}
	case errors.As(err, &denied):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "STOCK_DENIED", Message: denied.Reason}
	case errors.Is(err, domain.ErrReservationTimeout), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, dto.ErrorResponse{Code: "RESERVATION_TIMEOUT", Message: "el inventario no respondió a tiempo; el pedido quedó sin confirmar"}
	case errors.Is(err, domain.ErrBrokerUnavailable):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "BROKER_UNAVAILABLE", Message: "no se pudo contactar al inventario"}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()}
}

// GetByID godoc
// @Summary      Obtener venta por ID
// @Tags         vendas
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vendas/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id debe ser un entero positivo"})
	}
	out, err := h.query.GetByID(c.UserContext(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if out == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "pedido no encontrado"})
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar ventas
// @Tags         vendas
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.OrderListResponse
// @Router       /api/vendas [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	out, err := h.query.List(c.UserContext(), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar venta
// @Description  Borra el pedido. El stock reservado no se devuelve.
// @Tags         vendas
// @Security     Bearer
// @Param        id   path  int  true  "ID del pedido"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vendas/{id} [delete]
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id debe ser un entero positivo"})
	}
	if err := h.query.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "pedido no encontrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
