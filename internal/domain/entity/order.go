package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un pedido. Todo pedido nace pending y termina en uno de los demás.
const (
	OrderStatusPending     = "pending"
	OrderStatusApproved    = "approved"
	OrderStatusRejected    = "rejected"
	OrderStatusUnconfirmed = "unconfirmed" // sin respuesta del inventario dentro del plazo
	OrderStatusFailed      = "failed"      // falla de transporte al pedir la reserva
)

// Order pedido de venta. El ID lo asigna el cliente y es la clave de idempotencia
// de la reserva de stock.
type Order struct {
	ID         int
	CustomerID string
	Total      decimal.Decimal
	Status     string
	Reason     string // motivo de rechazo o de falla
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Items      []OrderItem
}

// OrderItem línea del pedido.
type OrderItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal cantidad por precio unitario.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ComputeTotal suma los subtotales de las líneas.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// StockCheckRequest arma el mensaje de reserva para este pedido.
func (o *Order) StockCheckRequest(issuedAt time.Time) StockCheckRequest {
	items := make([]StockCheckItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, StockCheckItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return StockCheckRequest{OrderID: o.ID, Items: items, IssuedAt: issuedAt}
}

// IsFinal indica si el pedido ya salió de pending.
func (o *Order) IsFinal() bool {
	return o.Status != OrderStatusPending
}
