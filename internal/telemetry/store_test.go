package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	store, err := OpenSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestSQLiteStoreSaveQueryKindCounts(t *testing.T) {
	store := setupTestStore(t)

	counts := map[QueryKind]int64{
		QueryKindVector: 10,
		QueryKindText:   5,
		QueryKindHybrid: 3,
	}

	require.NoError(t, store.SaveQueryKindCounts("2026-01-06", counts))

	result, err := store.GetQueryKindCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)

	assert.Equal(t, int64(10), result[QueryKindVector])
	assert.Equal(t, int64(5), result[QueryKindText])
	assert.Equal(t, int64(3), result[QueryKindHybrid])
}

func TestSQLiteStoreSaveQueryKindCountsIncremental(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveQueryKindCounts("2026-01-06", map[QueryKind]int64{QueryKindVector: 10}))
	require.NoError(t, store.SaveQueryKindCounts("2026-01-06", map[QueryKind]int64{QueryKindVector: 5}))

	result, err := store.GetQueryKindCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)
	assert.Equal(t, int64(15), result[QueryKindVector])
}

func TestSQLiteStoreUpsertTermCountsAccumulates(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"vector": 2, "search": 1}))
	require.NoError(t, store.UpsertTermCounts(map[string]int64{"vector": 3}))

	top, err := store.GetTopTerms(10)
	require.NoError(t, err)

	var gotVector int64
	for _, tc := range top {
		if tc.Term == "vector" {
			gotVector = tc.Count
		}
	}
	assert.Equal(t, int64(5), gotVector)
}

func TestSQLiteStoreGetTopTermsRespectsLimit(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"a": 3, "b": 2, "c": 1}))

	top, err := store.GetTopTerms(2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
	assert.Equal(t, "a", top[0].Term)
}

func TestSQLiteStoreZeroResultQueriesTrimTo100(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 105; i++ {
		require.NoError(t, store.AddZeroResultQuery("query", time.Now()))
	}

	queries, err := store.GetZeroResultQueries(1000)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(queries), 100)
}

func TestSQLiteStoreSaveLatencyCounts(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveLatencyCounts("2026-01-06", map[LatencyBucket]int64{BucketP10: 4, BucketP500: 1}))

	result, err := store.GetLatencyCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)
	assert.Equal(t, int64(4), result[BucketP10])
	assert.Equal(t, int64(1), result[BucketP500])
}
