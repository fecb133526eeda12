package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuclight.org/tgweb/app/controller"
	"nuclight.org/tgweb/app/storage"
	e "nuclight.org/tgweb/pkg/entities"
)

var _ controller.Journal = (*storage.SQLite)(nil)

func newJournal(t *testing.T) *storage.SQLite {
	t.Helper()

	db, err := storage.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "journal.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := time.UnixMilli(1_700_000_000_000)
	db.Now = func() time.Time {
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}

	return db
}

func TestSQLite_RequestLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newJournal(t)

	okID, err := db.SaveRequest(ctx, "getChats")
	require.NoError(t, err)
	errID, err := db.SaveRequest(ctx, "sendMessage")
	require.NoError(t, err)
	fatalID, err := db.SaveRequest(ctx, "getMe")
	require.NoError(t, err)
	_, err = db.SaveRequest(ctx, "getChats")
	require.NoError(t, err)

	require.NoError(t, db.SaveResult(ctx, okID, "chats"))
	require.NoError(t, db.SaveError(ctx, errID, 429, "Too Many Requests: retry after 3", false))
	require.NoError(t, db.SaveError(ctx, fatalID, 401, "Unauthorized", true))

	reqs, err := db.ListRequests(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reqs, 4)

	// newest first
	assert.Equal(t, e.OutcomePending, reqs[0].Outcome())
	assert.Zero(t, reqs[0].Latency())

	fatal := reqs[1]
	assert.Equal(t, fatalID, fatal.ID)
	assert.Equal(t, e.OutcomeFatal, fatal.Outcome())
	require.NotNil(t, fatal.ErrorCode)
	assert.EqualValues(t, 401, *fatal.ErrorCode)

	transient := reqs[2]
	assert.Equal(t, e.OutcomeError, transient.Outcome())
	require.NotNil(t, transient.ErrorMessage)
	assert.Equal(t, "Too Many Requests: retry after 3", *transient.ErrorMessage)

	ok := reqs[3]
	assert.Equal(t, "getChats", ok.Type)
	assert.Equal(t, e.OutcomeOk, ok.Outcome())
	require.NotNil(t, ok.ResultType)
	assert.Equal(t, "chats", *ok.ResultType)
	assert.Equal(t, time.Second, ok.Latency())
}

func TestSQLite_ListRequestsLimit(t *testing.T) {
	ctx := context.Background()
	db := newJournal(t)

	for range 5 {
		_, err := db.SaveRequest(ctx, "getMe")
		require.NoError(t, err)
	}

	reqs, err := db.ListRequests(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)
}

func TestSQLite_Stats(t *testing.T) {
	ctx := context.Background()
	db := newJournal(t)

	a, _ := db.SaveRequest(ctx, "getChats")
	b, _ := db.SaveRequest(ctx, "getChats")
	_, _ = db.SaveRequest(ctx, "getChats")
	c, _ := db.SaveRequest(ctx, "destroy")

	require.NoError(t, db.SaveResult(ctx, a, "chats"))
	require.NoError(t, db.SaveError(ctx, b, 500, "boom", false))
	require.NoError(t, db.SaveError(ctx, c, 0, "engine gone", true))

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []e.TypeStats{
		{Type: "destroy", Total: 1, Fatal: 1},
		{Type: "getChats", Total: 3, Ok: 1, Errors: 1, Pending: 1},
	}, stats)
}

func TestSQLite_UnknownID(t *testing.T) {
	db := newJournal(t)

	err := db.SaveResult(context.Background(), 42, "ok")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLite_ReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.sqlite")

	db, err := storage.NewSQLite(ctx, path)
	require.NoError(t, err)
	_, err = db.SaveRequest(ctx, "logOut")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = storage.NewSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	reqs, err := db.ListRequests(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "logOut", reqs[0].Type)
}
