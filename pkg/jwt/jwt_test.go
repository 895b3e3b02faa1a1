package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/pkg/jwt"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	id := jwt.Identity{UserID: "u-1", Name: "Lan", Role: "bodeguero"}
	tok, err := jwt.Generate("secreto", "o-m-inventory", id, 5)
	require.NoError(t, err)

	got, err := jwt.Parse("secreto", tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := jwt.Generate("secreto", "o-m-inventory", jwt.Identity{UserID: "u-1"}, 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro", tok)
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	tok, err := jwt.Generate("secreto", "o-m-inventory", jwt.Identity{UserID: "u-1"}, -1)
	require.NoError(t, err)

	_, err = jwt.Parse("secreto", tok)
	assert.Error(t, err)
}

func TestGenerate_EmptySecret(t *testing.T) {
	_, err := jwt.Generate("", "x", jwt.Identity{UserID: "u-1"}, 5)
	assert.Error(t, err)
}
