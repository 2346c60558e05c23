// Command token imprime un JWT firmado con JWT_SECRET para probar las APIs.
//
//	go run ./cmd/token -user operador-1 -role vendedor
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/vendas-estoque/pkg/config"
	"github.com/jhoicas/vendas-estoque/pkg/jwt"
)

func main() {
	userID := flag.String("user", "dev", "ID del operador (claim user_id)")
	role := flag.String("role", "admin", "rol: admin, vendedor o estoquista")
	minutes := flag.Int("exp", 0, "minutos de validez (0 = JWT_EXPIRATION)")
	flag.Parse()

	cfg, err := config.Load("token")
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	exp := *minutes
	if exp <= 0 {
		exp = cfg.JWT.Expiration
	}

	tok, err := jwt.Generate(cfg.JWT.Secret, *userID, *role, cfg.JWT.Issuer, exp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generar token:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
