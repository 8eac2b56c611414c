package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContainsAnyFold(t *testing.T) {
	require.True(t, ContainsAnyFold("Result Declared", "won", "declared"))
	require.False(t, ContainsAnyFold("Result in Progress", "won", "declared"))
	require.True(t, ContainsFold("STATUS KNOWN FOR", "status known"))
	require.False(t, ContainsAnyFold("anything"))
}

func TestIsDigits(t *testing.T) {
	table := []struct {
		input    string
		expected bool
	}{
		{input: "1", expected: true},
		{input: "243", expected: true},
		{input: "", expected: false},
		{input: "12a", expected: false},
		{input: " 1", expected: false},
		{input: "-1", expected: false},
	}
	for _, row := range table {
		require.Equal(t, row.expected, IsDigits(row.input), row.input)
	}
}

func TestMutualContains(t *testing.T) {
	require.True(t, MutualContains("Bharatiya Janata Party", "Janata Party"))
	require.True(t, MutualContains("Janata Party", "Bharatiya Janata Party"))
	require.False(t, MutualContains("Independent", "Bharatiya Janata Party"))
	require.False(t, MutualContains("", "Bharatiya Janata Party"))
}
