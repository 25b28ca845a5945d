package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapKeyInsertErrorDuplicateKey(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "idempotency_keys_pkey"}

	err := mapKeyInsertError(fmt.Errorf("exec insert: %w", dup))
	require.ErrorIs(t, err, ErrConflict)
}

func TestMapKeyInsertErrorPassesThroughOtherFailures(t *testing.T) {
	cause := errors.New("connection reset")
	require.Equal(t, cause, mapKeyInsertError(cause))

	fk := &pgconn.PgError{Code: "23503"}
	require.NotErrorIs(t, mapKeyInsertError(fk), ErrConflict)
}
