package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/entity"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite("file:"+filepath.Join(t.TempDir(), "jobs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteBusyTimeoutApplied(t *testing.T) {
	s := openTestSQLite(t)

	var ms int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&ms))
	assert.Equal(t, 5000, ms, "concurrent workers need a real busy timeout")
}

func TestSQLiteOpenDSNWithExistingQuery(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "jobs.db") + "?cache=shared"
	s, err := OpenSQLite(dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var ms int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&ms))
	assert.Equal(t, 5000, ms)
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	job := newJob("alice", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, s.Create(ctx, job))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, constants.JobStatusQueued, got.Status)
	assert.Nil(t, got.Events)
	assert.Nil(t, got.ValidationWarning)

	_, err = s.Get(ctx, job.ID)
	require.NoError(t, err)
}

func TestSQLiteGetUnknownID(t *testing.T) {
	s := openTestSQLite(t)
	_, err := s.Get(context.Background(), newJob("x", time.Now()).ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteCASClaimsOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	job := newJob("alice", time.Now().UTC())
	require.NoError(t, s.Create(ctx, job))

	ok, err := s.CompareAndSwapStatus(ctx, job.ID, constants.JobStatusQueued, constants.JobStatusProcessing)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CompareAndSwapStatus(ctx, job.ID, constants.JobStatusQueued, constants.JobStatusProcessing)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")
}

func TestSQLiteCompleteWithEventsAndWarning(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	job := newJob("alice", time.Now().UTC())
	require.NoError(t, s.Create(ctx, job))
	ok, err := s.CompareAndSwapStatus(ctx, job.ID, constants.JobStatusQueued, constants.JobStatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)

	start := time.Date(2024, 8, 22, 6, 0, 0, 0, time.UTC)
	events := []entity.Event{{Event: "Arrival", Start: &start, Location: "Rotterdam"}}
	require.NoError(t, s.SetCompleted(ctx, job.ID, events, nil))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusCompleted, got.Status)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "Arrival", got.Events[0].Event)
	require.NotNil(t, got.Events[0].Start)
	assert.True(t, got.Events[0].Start.Equal(start))

	// a second job completes with a warning instead of events
	warned := newJob("alice", time.Now().UTC())
	require.NoError(t, s.Create(ctx, warned))
	ok, err = s.CompareAndSwapStatus(ctx, warned.ID, constants.JobStatusQueued, constants.JobStatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.SetCompleted(ctx, warned.ID, nil, &entity.ValidationWarning{
		Description: "No timestamps detected.",
		Suggestion:  "Upload a document containing timestamped events.",
	}))

	got, err = s.Get(ctx, warned.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Events)
	require.NotNil(t, got.ValidationWarning)
	assert.Contains(t, got.ValidationWarning.Description, "No timestamps")
}

func TestSQLiteSetFailed(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	job := newJob("alice", time.Now().UTC())
	require.NoError(t, s.Create(ctx, job))
	ok, err := s.CompareAndSwapStatus(ctx, job.ID, constants.JobStatusQueued, constants.JobStatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.SetFailed(ctx, job.ID, "extraction service unavailable"))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, got.Status)
	assert.Equal(t, "extraction service unavailable", got.Error)
}

func TestSQLiteListByOwnerOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	base := time.Now().UTC().Truncate(time.Second)
	old := newJob("alice", base.Add(-time.Hour))
	recent := newJob("alice", base)
	foreign := newJob("bob", base)
	for _, j := range []*entity.Job{old, recent, foreign} {
		require.NoError(t, s.Create(ctx, j))
	}

	list, err := s.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, recent.ID, list[0].ID)
	assert.Equal(t, old.ID, list[1].ID)
}
