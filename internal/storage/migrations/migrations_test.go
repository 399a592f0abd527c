package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `
-- comment line; with a semicolon
CREATE TABLE a (x String) ENGINE = Memory;

CREATE TABLE b (y String DEFAULT 'a;b') ENGINE = Memory;
SELECT 'it''s; fine'
`
	stmts, err := SplitStatements(sql)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (x String) ENGINE = Memory", stmts[0])
	assert.Contains(t, stmts[1], "DEFAULT 'a;b'")
	assert.Equal(t, "SELECT 'it''s; fine'", stmts[2])
}

func TestSplitStatements_Unterminated(t *testing.T) {
	_, err := SplitStatements(`SELECT 'open;`)
	assert.Error(t, err)
}

func TestLoad_OrdersAndSkipsEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_b.sql":  {Data: []byte("CREATE TABLE b (x INT);")},
		"m/001_a.sql":  {Data: []byte("CREATE TABLE a (x INT);\nCREATE INDEX ia ON a (x);")},
		"m/003_c.sql":  {Data: []byte("-- nothing yet\n")},
		"m/readme.txt": {Data: []byte("ignored")},
	}

	migrations, err := Load(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001_a.sql", migrations[0].Name)
	assert.Len(t, migrations[0].Statements, 2)
	assert.Equal(t, "002_b.sql", migrations[1].Name)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/nftlab")
	require.NoError(t, err)
	assert.Equal(t, "nftlab", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)

	_, err = databaseFromDSN("clickhouse://localhost:9000/a`b")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := Load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.Len(t, pg, 1)
	assert.Equal(t, "001_nft_dumps.sql", pg[0].Name)
	assert.Len(t, pg[0].Statements, 2)
	assert.Contains(t, pg[0].Statements[0], "nft_dumps")

	ch, err := Load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)
	assert.Len(t, ch[0].Statements, 1)
	assert.Contains(t, ch[0].Statements[0], "ReplacingMergeTree")
}
