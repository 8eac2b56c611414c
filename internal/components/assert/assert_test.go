package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotNil(t *testing.T) {
	var nilPtr *int
	require.Panics(t, func() { NotNil(nil) })
	require.Panics(t, func() { NotNil(nilPtr) })
	require.NotPanics(t, func() { NotNil(1) })
	require.NotPanics(t, func() { NotNil(&struct{}{}) })
}

func TestNotEmptyStrAndPositive(t *testing.T) {
	require.Panics(t, func() { NotEmptyStr("") })
	require.NotPanics(t, func() { NotEmptyStr("x") })
	require.Panics(t, func() { Positive(0) })
	require.NotPanics(t, func() { Positive(243) })
}
