package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageNormalize(t *testing.T) {
	p := Page{}.Normalize()
	require.Equal(t, 1, p.Number)
	require.Equal(t, 20, p.Size)

	p = Page{Number: -3, Size: 1000}.Normalize()
	require.Equal(t, 1, p.Number)
	require.Equal(t, 100, p.Size)

	p = Page{Number: 4, Size: 25}.Normalize()
	require.Equal(t, 75, p.Offset())
}

func TestNewPaginated(t *testing.T) {
	out := NewPaginated([]int{1, 2, 3}, 45, Page{Number: 2, Size: 20})
	require.Equal(t, 45, out.TotalItems)
	require.Equal(t, 2, out.Page)
	require.Equal(t, 20, out.PageSize)
	require.Equal(t, 3, out.NumPages)

	empty := NewPaginated([]int(nil), 0, Page{Number: 1, Size: 20})
	require.Equal(t, 0, empty.NumPages)
	require.Empty(t, empty.Items)
}
