// Package postgres_test contains unit tests for the outcome store.
package postgres_test

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsight/product-name-crawler/internal/pipeline"
	storepg "github.com/shopsight/product-name-crawler/internal/store/postgres"
)

func TestStoreOutcomesUpserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := storepg.NewOutcomeStoreWithPool(mock, "product_names")
	require.NoError(t, err)

	outcomes := []pipeline.OutcomeRecord{
		{
			ProductID:        "p1",
			URL:              "https://shop.example.com/ring-aurora.html",
			SourceCollection: "col",
			ProductName:      "Diamond Ring Aurora",
			Status:           pipeline.StatusSuccess,
			FetchedAt:        1700000000,
		},
		{
			ProductID:        "p2",
			URL:              "https://shop.example.com/band-celine.html",
			SourceCollection: "col",
			ProductName:      "Band Celine",
			Status:           pipeline.StatusSlugHeuristic,
			FetchedAt:        1700000001,
		},
	}
	for _, out := range outcomes {
		mock.ExpectExec("INSERT INTO product_names").
			WithArgs(out.ProductID, out.ProductName, out.URL, out.SourceCollection, string(out.Status), out.FetchedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, store.StoreOutcomes(context.Background(), outcomes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreOutcomesRejectsMissingProductID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := storepg.NewOutcomeStoreWithPool(mock, "product_names")
	require.NoError(t, err)

	err = store.StoreOutcomes(context.Background(), []pipeline.OutcomeRecord{{ProductID: ""}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewOutcomeStoreWithPoolValidation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = storepg.NewOutcomeStoreWithPool(nil, "product_names")
	require.Error(t, err)

	_, err = storepg.NewOutcomeStoreWithPool(mock, "bad;table--")
	require.Error(t, err)

	store, err := storepg.NewOutcomeStoreWithPool(mock, "")
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestStoreOutcomesNilStore(t *testing.T) {
	var store *storepg.OutcomeStore
	require.Error(t, store.StoreOutcomes(context.Background(), nil))
}
