package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/cleaner"
	"github.com/stemsi/gradcafe-backend/internal/model"
	"github.com/stemsi/gradcafe-backend/internal/service/servicetest"
	"github.com/stretchr/testify/require"
)

func cleanedRecords(n int) []model.AdmissionResult {
	return cleaner.New(zerolog.Nop()).CleanAll(servicetest.RawRecords(n))
}

func TestLoader_IsIdempotentByURL(t *testing.T) {
	store := servicetest.NewMemoryStore()
	loader := NewLoaderService(store, zerolog.Nop())
	records := cleanedRecords(4)

	first, err := loader.Load(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, LoadReport{Attempted: 4, Inserted: 4}, first)

	second, err := loader.Load(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, LoadReport{Attempted: 4, Duplicates: 4}, second)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestLoader_RejectsRecordsWithoutURL(t *testing.T) {
	store := servicetest.NewMemoryStore()
	records := cleanedRecords(2)
	records[1].URL = nil

	report, err := NewLoaderService(store, zerolog.Nop()).Load(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, 1, report.Inserted)
	require.Equal(t, 1, report.Rejected)
}

func TestLoader_SingleFailureDoesNotAbort(t *testing.T) {
	store := servicetest.NewMemoryStore()
	records := cleanedRecords(3)
	bad := *records[1].URL
	store.InsertErr = func(url string) error {
		if url == bad {
			return errors.New("value too long")
		}
		return nil
	}

	report, err := NewLoaderService(store, zerolog.Nop()).Load(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, LoadReport{Attempted: 3, Inserted: 2, Failed: 1}, report)
}

func TestLoader_AllFailuresSurface(t *testing.T) {
	store := servicetest.NewMemoryStore()
	store.InsertErr = func(string) error { return errors.New("connection closed") }

	_, err := NewLoaderService(store, zerolog.Nop()).Load(context.Background(), cleanedRecords(2))
	require.ErrorContains(t, err, "connection closed")
}

func TestLoader_SchemaErrorAborts(t *testing.T) {
	store := servicetest.NewMemoryStore()
	store.SchemaErr = errors.New("dial tcp: connection refused")

	_, err := NewLoaderService(store, zerolog.Nop()).Load(context.Background(), cleanedRecords(1))
	require.ErrorContains(t, err, "ensure schema")
	require.Zero(t, store.Inserts)
}
