package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunEmbedded_CreatesSchema(t *testing.T) {
	db := openMemory(t)
	m := NewMigrator(db, zap.NewNop())

	require.NoError(t, m.RunEmbedded())

	for _, table := range []string{"forcing_requests", "status_history", "notifications"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}

	// idempotent
	require.NoError(t, m.RunEmbedded())

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestRun_OrdersByVersion(t *testing.T) {
	db := openMemory(t)
	fsys := fstest.MapFS{
		"002_add_column.sql": {Data: []byte(`ALTER TABLE t ADD COLUMN b TEXT;`)},
		"001_create.sql":     {Data: []byte(`CREATE TABLE t (a TEXT);`)},
		"README.md":          {Data: []byte(`ignored`)},
	}

	require.NoError(t, NewMigrator(db, zap.NewNop()).Run(fsys))

	_, err := db.Exec(`INSERT INTO t (a, b) VALUES ('x', 'y')`)
	assert.NoError(t, err)
}

func TestRun_RejectsBadFilenames(t *testing.T) {
	db := openMemory(t)

	err := NewMigrator(db, zap.NewNop()).Run(fstest.MapFS{
		"init.sql": {Data: []byte(`SELECT 1;`)},
	})
	assert.Error(t, err)

	err = NewMigrator(db, zap.NewNop()).Run(fstest.MapFS{
		"001_a.sql": {Data: []byte(`SELECT 1;`)},
		"001_b.sql": {Data: []byte(`SELECT 1;`)},
	})
	assert.ErrorContains(t, err, "duplicate migration version")
}

func TestStatusHistory_IsAppendOnly(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).RunEmbedded())

	_, err := db.Exec(`INSERT INTO forcing_requests (id, reference, client_id, agency_id, amount, client_rating, status)
		VALUES ('r1', 'FRC-1', 'c1', 'a1', '100', 'A', 'BROUILLON')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO status_history (request_id, action, from_status, to_status, actor_id, actor_role)
		VALUES ('r1', 'SOUMETTRE', 'BROUILLON', 'EN_ATTENTE_CONSEILLER', 'c1', 'client')`)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE status_history SET to_status = 'APPROUVEE'`)
	assert.ErrorContains(t, err, "append-only")
	_, err = db.Exec(`DELETE FROM status_history`)
	assert.ErrorContains(t, err, "append-only")
}
