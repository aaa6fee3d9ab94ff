package errors_test

import (
	"net/http"
	"testing"

	"github.com/openmarket-os/marketd/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestTypedError(t *testing.T) {
	err := errors.INSUFFICIENT_FUNDS.New("attached amount below price").
		WithMetadata(errors.InsufficientFundsMetadata{
			SaleKey:  "contract||asset",
			Price:    "100",
			Attached: "40",
		})

	require.Equal(t, errors.INSUFFICIENT_FUNDS.Code, err.Code())
	require.Equal(t, "INSUFFICIENT_FUNDS", err.CodeName())
	require.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	require.Contains(t, err.Error(), "attached amount below price")
	require.Contains(t, err.Error(), "INSUFFICIENT_FUNDS")

	metadata := err.Metadata()
	require.Equal(t, "contract||asset", metadata["sale_key"])
	require.Equal(t, "100", metadata["price"])
	require.Equal(t, "40", metadata["attached"])
}

func TestWrap(t *testing.T) {
	cause := errors.SALE_NOT_FOUND.New("no sale at key a||b")
	wrapped := errors.INTERNAL_ERROR.Wrap(cause)

	require.Equal(t, errors.INTERNAL_ERROR.Code, wrapped.Code())
	require.Contains(t, wrapped.Error(), "no sale at key a||b")
}
