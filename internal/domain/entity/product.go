package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del inventario.
// Quantity nunca es negativo: solo se descuenta con un decremento condicional.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasStock indica si hay al menos qty unidades disponibles.
func (p *Product) HasStock(qty int) bool {
	return p.Quantity >= qty
}
