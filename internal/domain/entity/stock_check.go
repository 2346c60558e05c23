package entity

import "time"

// Valores de StockCheckResponse.Status.
const (
	StockStatusOK    = "OK"
	StockStatusError = "Error"
)

// StockCheckItem línea a reservar. Los nombres JSON son los del contrato en el broker.
type StockCheckItem struct {
	ProductID string `json:"produtoId"`
	Quantity  int    `json:"quantidade"`
}

// StockCheckRequest cuerpo publicado en el exchange de ventas.
type StockCheckRequest struct {
	OrderID  int              `json:"pedidoId"`
	Items    []StockCheckItem `json:"itens"`
	IssuedAt time.Time        `json:"dataVenda"`
}

// StockCheckResponse respuesta del inventario. Approved=true si y solo si
// Status es "OK" y Reason es nil.
type StockCheckResponse struct {
	Status   string  `json:"status"`
	Reason   *string `json:"motivo"`
	OrderID  int     `json:"pedidoid"`
	Approved bool    `json:"estoqueok"`
}

// ApprovedResponse respuesta de reserva confirmada.
func ApprovedResponse(orderID int) StockCheckResponse {
	return StockCheckResponse{Status: StockStatusOK, OrderID: orderID, Approved: true}
}

// DeniedResponse respuesta de reserva rechazada con su motivo.
func DeniedResponse(orderID int, reason string) StockCheckResponse {
	return StockCheckResponse{Status: StockStatusError, Reason: &reason, OrderID: orderID}
}

// ReasonText motivo de rechazo o cadena vacía.
func (r StockCheckResponse) ReasonText() string {
	if r.Reason == nil {
		return ""
	}
	return *r.Reason
}
