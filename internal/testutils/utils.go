package testutils

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/africycle/africycle/internal/waste"
)

func RandomAddress(t *testing.T) waste.Address {
	var addr waste.Address
	_, err := rand.Read(addr[:])
	require.NoError(t, err)
	return addr
}

func RandomHash(t *testing.T) waste.Hash {
	var hash waste.Hash
	_, err := rand.Read(hash[:])
	require.NoError(t, err)
	return hash
}
