package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/openmarket-os/marketd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestAmountFromString(t *testing.T) {
	tests := []struct {
		raw         string
		expectError bool
		expected    string
	}{
		{raw: "0", expected: "0"},
		{raw: "100", expected: "100"},
		{raw: "340282366920938463463374607431768211455", expected: "340282366920938463463374607431768211455"},
		{raw: "", expectError: true},
		{raw: "abc", expectError: true},
		{raw: "12.5", expectError: true},
		{raw: "-1", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			amount, err := domain.AmountFromString(tt.raw)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, amount.String())
		})
	}
}

func TestAmountCheckedSub(t *testing.T) {
	tests := []struct {
		name     string
		a, b     uint64
		ok       bool
		expected string
	}{
		{name: "exact", a: 100, b: 100, ok: true, expected: "0"},
		{name: "partial", a: 100, b: 40, ok: true, expected: "60"},
		{name: "underflow", a: 40, b: 100, ok: false},
		{name: "zero minuend", a: 0, b: 1, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := domain.NewAmount(tt.a).CheckedSub(domain.NewAmount(tt.b))
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.expected, out.String())
			}
		})
	}
}

func TestAmountJSONRoundTrip(t *testing.T) {
	amount, err := domain.AmountFromString("18446744073709551616") // 2^64
	require.NoError(t, err)

	buf, err := json.Marshal(amount)
	require.NoError(t, err)
	require.Equal(t, `"18446744073709551616"`, string(buf))

	var decoded domain.Amount
	require.NoError(t, json.Unmarshal(buf, &decoded))
	require.True(t, amount.Equal(decoded))

	// numbers are rejected, amounts must travel as strings
	var rejected domain.Amount
	require.Error(t, json.Unmarshal([]byte(`100`), &rejected))
}
