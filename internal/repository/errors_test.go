package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxops/backoffice/internal/domain"
)

func TestMapStoreErrorClassification(t *testing.T) {
	assert.NoError(t, mapStoreError(nil, "noop"))

	err := mapStoreError(pgx.ErrNoRows, "get order")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrUpstream)

	// Constraint violations keep the raw PgError so the handler layer can map
	// them to their own problem types.
	pgErr := &pgconn.PgError{Code: "23505"}
	err = mapStoreError(fmt.Errorf("insert: %w", pgErr), "create group")
	var out *pgconn.PgError
	require.ErrorAs(t, err, &out)
	assert.Equal(t, "23505", out.Code)
	assert.NotErrorIs(t, err, domain.ErrUpstream)

	// Connection-level failures are upstream failures, cause preserved.
	cause := errors.New("failed to connect to `host=db`: connection refused")
	err = mapStoreError(cause, "get order")
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "get order")
}
