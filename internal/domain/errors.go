package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Protocolo de reserva de stock.
	ErrStockDenied        = errors.New("reserva de stock rechazada")
	ErrReservationTimeout = errors.New("tiempo de espera agotado al reservar stock")
	ErrBrokerUnavailable  = errors.New("broker de mensajería no disponible")
	ErrMalformedMessage   = errors.New("mensaje mal formado")
)
