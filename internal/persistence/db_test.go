package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "exchange.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func record(id, author, name string, status Status, at int64) *EmpireRecord {
	return &EmpireRecord{
		ID:         id,
		Author:     author,
		Name:       name,
		Status:     status,
		Ethics:     []string{"xenophile", "fanatic egalitarian"},
		Bio:        "A peaceful people.",
		Body:       "\"" + name + "\"={\n}\n",
		Size:       12,
		UploadedAt: at,
	}
}

func TestUsers(t *testing.T) {
	db := openTestDB(t)

	_, err := db.UserHash("alice")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.CreateUser("alice", "hash"))
	hash, err := db.UserHash("alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", hash)

	assert.Error(t, db.CreateUser("alice", "other"), "names are unique")
}

func TestSaveAndList(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveEmpire(record("id-1", "alice", "Foo", StatusPending, 200)))
	require.NoError(t, db.SaveEmpire(record("id-2", "bob", "Bar", StatusPending, 100)))
	require.NoError(t, db.SaveEmpire(record("id-3", "bob", "Baz", StatusApproved, 300)))

	pending, err := db.ListEmpires(StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Bar", pending[0].Name, "oldest first")
	assert.Equal(t, "Foo", pending[1].Name)
	assert.Equal(t, []string{"xenophile", "fanatic egalitarian"}, pending[1].Ethics)
	assert.Equal(t, time.Unix(200, 0).UTC(), pending[1].Uploaded())

	approved, err := db.ListEmpires(StatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "id-3", approved[0].ID)

	only, err := db.ListForDownload(false)
	require.NoError(t, err)
	assert.Len(t, only, 1)

	all, err := db.ListForDownload(true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	counts, err := db.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, map[Status]int{StatusPending: 2, StatusApproved: 1}, counts)
}

func TestSaveEmpireReplacesSameName(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveEmpire(record("id-1", "alice", "Foo", StatusApproved, 100)))

	again := record("id-new", "alice", "Foo", StatusPending, 500)
	again.Ethics = nil
	require.NoError(t, db.SaveEmpire(again))
	assert.Equal(t, "id-1", again.ID, "re-upload keeps the first id")

	got, err := db.Empire("id-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, int64(500), got.UploadedAt)
	assert.Equal(t, []string{}, got.Ethics)

	_, err = db.Empire("id-new")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModeration(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveEmpire(record("id-1", "alice", "Foo", StatusPending, 100)))

	require.NoError(t, db.SetStatus("id-1", StatusApproved))
	got, err := db.Empire("id-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	assert.ErrorIs(t, db.SetStatus("missing", StatusApproved), ErrNotFound)

	require.NoError(t, db.DeleteEmpire("id-1"))
	assert.ErrorIs(t, db.DeleteEmpire("id-1"), ErrNotFound)

	counts, err := db.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, 0, counts[StatusApproved])
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusApproved.Valid())
	assert.False(t, Status("rejected").Valid())
}
