package entity

import "time"

// ProcessedReservation registro durable de un pedido ya aplicado al inventario.
// Se escribe en la misma transacción que los descuentos; solo existen registros
// de reservas aprobadas.
type ProcessedReservation struct {
	OrderID     int
	Approved    bool
	Reason      string
	ProcessedAt time.Time
}

// NewProcessedReservation construye el registro a partir de la respuesta emitida.
func NewProcessedReservation(resp StockCheckResponse, at time.Time) *ProcessedReservation {
	return &ProcessedReservation{
		OrderID:     resp.OrderID,
		Approved:    resp.Approved,
		Reason:      resp.ReasonText(),
		ProcessedAt: at,
	}
}

// Response reconstruye la respuesta emitida para reenviarla ante una redelivery.
func (p *ProcessedReservation) Response() StockCheckResponse {
	if p.Approved {
		return ApprovedResponse(p.OrderID)
	}
	return DeniedResponse(p.OrderID, p.Reason)
}
