package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), parsed)

	zero, err := ParseDate("")
	require.NoError(t, err)
	require.True(t, zero.IsZero())

	_, err = ParseDate("29/02/2024")
	require.ErrorIs(t, err, ErrValidation)
}

func TestDateRangeValidate(t *testing.T) {
	from, _ := ParseDate("2024-01-10")
	to, _ := ParseDate("2024-01-01")
	require.ErrorIs(t, DateRange{From: from, To: to}.Validate(), ErrValidation)

	require.NoError(t, DateRange{From: to, To: from}.Validate())
	require.NoError(t, DateRange{}.Validate())
	require.NoError(t, DateRange{From: from}.Validate())
}

func TestDateRangeBounds(t *testing.T) {
	from, _ := ParseDate("2024-03-05")
	rng := DateRange{From: from, To: from}

	require.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), rng.FromStart())
	require.Equal(t, time.Date(2024, time.March, 5, 23, 59, 59, 999999999, time.UTC), rng.ToEnd())

	open := DateRange{}
	require.True(t, open.FromStart().IsZero())
	require.True(t, open.ToEnd().IsZero())
}
