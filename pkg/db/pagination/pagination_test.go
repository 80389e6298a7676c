package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type row struct {
	ID        string
	CreatedAt time.Time
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	encoded, err := EncodeCursor(Cursor{CreatedAt: at, ID: "42"})
	require.NoError(t, err)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	require.Equal(t, "42", decoded.ID)
	require.True(t, decoded.CreatedAt.Equal(at))

	_, err = DecodeCursor("not-a-cursor!")
	require.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	data := []*row{
		{ID: "3", CreatedAt: base.Add(3 * time.Hour)},
		{ID: "2", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "1", CreatedAt: base.Add(time.Hour)},
	}
	extract := func(r *row) Cursor { return Cursor{CreatedAt: r.CreatedAt, ID: r.ID} }

	page, info, err := BuildCursorPageInfo(data, 2, extract)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.True(t, info.HasMore)

	next, err := DecodeCursor(info.NextCursor)
	require.NoError(t, err)
	require.Equal(t, "2", next.ID)

	page, info, err = BuildCursorPageInfo(data, 5, extract)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.False(t, info.HasMore)
	require.Empty(t, info.NextCursor)
}

func TestPaginationSize(t *testing.T) {
	require.Equal(t, DefaultLimit, Pagination{}.Size())
	require.Equal(t, MaxLimit, Pagination{Limit: 1000}.Size())
	require.Equal(t, 25, Pagination{Limit: 25}.Size())
}
