// Package migrations contiene el esquema SQL de cada servicio.
package migrations

import "embed"

// Estoque esquema del inventario (produtos, reservas_processadas).
//
//go:embed estoque/*.sql
var Estoque embed.FS

// Vendas esquema de ventas (pedidos, pedido_itens).
//
//go:embed vendas/*.sql
var Vendas embed.FS
