package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsphere/internal/models"
	"shopsphere/internal/repository"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := &models.Product{Name: "Lamp", Slug: "lamp", SKU: "L-1", Price: decimal.NewFromInt(20), Stock: 3, IsAvailable: true}
	require.NoError(t, s.Products().Create(ctx, p))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx repository.Store) error {
		_, err := tx.Products().UpdateStock(ctx, p.ID, -2)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestUpdateStockRefusesNegative(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := &models.Product{Name: "Mug", Slug: "mug", SKU: "M-1", Price: decimal.NewFromInt(8), Stock: 1}
	require.NoError(t, s.Products().Create(ctx, p))

	current, err := s.Products().UpdateStock(ctx, p.ID, -2)
	assert.ErrorIs(t, err, repository.ErrNotEnough)
	assert.Equal(t, 1, current)

	_, err = s.Products().UpdateStock(ctx, 999, -1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
