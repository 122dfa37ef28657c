package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLFiles_SortedAndEmbedded(t *testing.T) {
	pg, err := sqlFiles(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"postgres/001_rep_registry.sql",
		"postgres/002_tx_journal.sql",
		"postgres/003_events.sql",
		"postgres/004_projection_progress.sql",
		"postgres/005_tx_event_count.sql",
	}, pg)

	ch, err := sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	assert.Equal(t, []string{"clickhouse/001_rep_trades.sql"}, ch)
}

func TestClickhouseSchemaSplits(t *testing.T) {
	data, err := fs.ReadFile(ClickhouseFS, "clickhouse/001_rep_trades.sql")
	require.NoError(t, err)

	stmts, err := splitStatements(string(data))
	require.NoError(t, err)
	require.NotEmpty(t, stmts)
	assert.Contains(t, stmts[0], "event_index")
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		want    []string
		wantErr bool
	}{
		{
			name: "comments and blank lines",
			sql:  "-- header\nCREATE TABLE a (x UInt8);\n\n-- next\nCREATE TABLE b (y UInt8);\n",
			want: []string{"CREATE TABLE a (x UInt8)", "CREATE TABLE b (y UInt8)"},
		},
		{
			name: "multi-line statement without trailing semicolon",
			sql:  "SELECT 1\nFROM t",
			want: []string{"SELECT 1\nFROM t"},
		},
		{
			name: "escaped quote",
			sql:  "SELECT 'it''s';",
			want: []string{"SELECT 'it''s'"},
		},
		{
			name:    "semicolon in literal",
			sql:     "SELECT 'a;b';",
			wantErr: true,
		},
		{
			name: "empty",
			sql:  "-- nothing\n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitStatements(tt.sql)
			if tt.wantErr {
				assert.ErrorIs(t, err, errSemicolonInLiteral)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/rep")
	require.NoError(t, err)
	assert.Equal(t, "rep", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
