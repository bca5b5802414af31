package aggregate

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

// rawAggregateRow returns the stored aggregate columns exactly as written.
func rawAggregateRow(t *testing.T, db *sql.DB, entityID int64) [4]string {
	t.Helper()
	var row [4]string
	err := db.QueryRow(
		"SELECT record_count, means, samples, rejected FROM aggregates WHERE entity_id = ?", entityID,
	).Scan(&row[0], &row[1], &row[2], &row[3])
	require.NoError(t, err)
	return row
}
