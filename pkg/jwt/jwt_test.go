package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/vendas-estoque/pkg/jwt"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := pkgjwt.Generate("s3cr3t", "user-1", "vendedor", "test", 5)
	require.NoError(t, err)

	userID, role, err := pkgjwt.Parse("s3cr3t", tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "vendedor", role)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := pkgjwt.Generate("s3cr3t", "user-1", "admin", "test", 5)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse("otro-secret", tok)
	assert.Error(t, err, "un token firmado con otro secret debe rechazarse")
}

func TestParse_Expirado(t *testing.T) {
	tok, err := pkgjwt.Generate("s3cr3t", "user-1", "admin", "test", -1)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse("s3cr3t", tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", "user-1", "admin", "test", 5)
	assert.Error(t, err)
}
