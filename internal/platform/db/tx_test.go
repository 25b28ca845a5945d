package db

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// Concurrent decrements on one stock row must resolve by re-checking the
// quantity predicate after the row lock clears. Stricter isolation levels
// abort the waiting transaction instead, so the level is pinned here.
func TestWithTxRunsReadCommitted(t *testing.T) {
	require.Equal(t, pgx.ReadCommitted, txOptions.IsoLevel)
}
