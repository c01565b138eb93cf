package history

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorEncodeDecodeRoundTrip(t *testing.T) {
	c := Cursor{DatabaseID: 42, Epoch: 7}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	require.Equal(t, c, decoded)
}

func TestDecodeEmptyCursorIsZeroValue(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	require.Equal(t, Cursor{}, decoded)
}

func TestDecodeMalformedCursor(t *testing.T) {
	_, err := DecodeCursor("not-a-valid-cursor!!")
	require.Error(t, err)
}

// TestCursorRoundTripConcatenatesFullStream checks the §8 invariant:
// concatenating successive pages with the returned next_cursor equals the
// full filtered stream.
func TestCursorRoundTripConcatenatesFullStream(t *testing.T) {
	records := testRecords()
	predicates := Pipeline(Params{})

	var all []Record
	cursor := Cursor{}
	for {
		page := Paginate(records, predicates, cursor, 1, 3)
		all = append(all, page.Records...)
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}

	full := Filter(records, predicates)
	require.Equal(t, full, all)
}

// TestCursorRoundTripWithoutDatabaseIDs covers Seek's !hasIDs fallback: when
// no record carries a real DatabaseID (FTL hasn't flushed to the long-term
// database yet), paginate must advance the cursor by log position instead of
// always re-minting DatabaseID 1, or every page past the first would repeat.
func TestCursorRoundTripWithoutDatabaseIDs(t *testing.T) {
	records := testRecords()
	for i := range records {
		records[i].Query.DatabaseID = 0
	}
	predicates := Pipeline(Params{})

	var all []Record
	seen := map[int]bool{}
	cursor := Cursor{}
	for pages := 0; ; pages++ {
		require.Less(t, pages, len(records)+1, "pagination did not terminate")

		page := Paginate(records, predicates, cursor, 1, 3)
		for _, r := range page.Records {
			require.False(t, seen[int(r.Query.Timestamp)], "record %d repeated across pages", r.Query.Timestamp)
			seen[int(r.Query.Timestamp)] = true
		}
		all = append(all, page.Records...)
		if page.NextCursor == nil {
			break
		}
		require.NotEqual(t, int64(1), page.NextCursor.DatabaseID, "cursor pinned to 1 instead of advancing by log index")
		cursor = *page.NextCursor
	}

	full := Filter(records, predicates)
	require.Equal(t, full, all)
}
