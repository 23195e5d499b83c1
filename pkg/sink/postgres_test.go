package sink

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

func TestCreateTableSQL(t *testing.T) {
	ddl := CreateTableSQL(model.CollectionDisputes)

	assert.True(t, strings.HasPrefix(ddl, `CREATE TABLE IF NOT EXISTS "dispute_msgs_raw"`))
	assert.Contains(t, ddl, `"dispute_id" BIGINT PRIMARY KEY`)
	assert.Contains(t, ddl, `"transaction_id" BIGINT`)
	assert.Contains(t, ddl, `"amount" NUMERIC(14,2)`)
	assert.Contains(t, ddl, `"timestamp" TIMESTAMPTZ`)
	assert.Contains(t, ddl, `"resolution_timestamp" TIMESTAMPTZ`)
	assert.Contains(t, ddl, `"status" TEXT`)
}

func TestInsertSQL(t *testing.T) {
	stmt := InsertSQL(model.CollectionKYCEvents)

	assert.True(t, strings.HasPrefix(stmt, `INSERT INTO "kyc_msgs_raw" ("kyc_event_id", "customer_id"`))
	assert.Contains(t, stmt, "$11)")
	assert.NotContains(t, stmt, "$12")
	assert.True(t, strings.HasSuffix(stmt, `ON CONFLICT ("kyc_event_id") DO NOTHING`))
}

func TestTablesCoverEveryCollection(t *testing.T) {
	for _, c := range model.Collections {
		_, ok := postgresTables[c]
		assert.True(t, ok, "collection %s has no table", c)
	}
}

func TestInsertArgsNullsOpenResolution(t *testing.T) {
	open := model.Dispute{DisputeID: 7, Status: model.DisputeOpen, Timestamp: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	args := insertArgs(open)

	require.Len(t, args, len(model.Columns(model.CollectionDisputes)))
	assert.Equal(t, int64(7), args[0])
	assert.Equal(t, "2023-01-01T00:00:00Z", args[6])
	assert.Nil(t, args[len(args)-1])

	resolved := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	open.ResolutionTimestamp = &resolved
	args = insertArgs(open)
	assert.Equal(t, "2023-02-01T00:00:00Z", args[len(args)-1])
}
