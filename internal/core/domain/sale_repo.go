package domain

import (
	"context"
	"errors"
)

var (
	ErrSaleNotFound      = errors.New("sale not found")
	ErrSaleAlreadyExists = errors.New("sale already exists")
)

// SaleRepository is the durable listing registry. It performs no
// authorization, callers are responsible for ownership checks.
type SaleRepository interface {
	Get(ctx context.Context, key string) (*Sale, error)
	Insert(ctx context.Context, sale Sale) error
	Update(ctx context.Context, sale Sale) error
	Remove(ctx context.Context, key string) (*Sale, error)
	Close()
}
