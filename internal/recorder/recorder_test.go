package recorder

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

func TestRecordAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exec.db")
	rec, err := Open(path, "lightning_executions_FX_BTC_JPY")
	require.NoError(t, err)
	defer rec.Close()

	batch := []bitflyer.Execution{
		{ID: 100, Side: bitflyer.SideBuy, Price: 1000000, Size: decimal.NewFromFloat(0.01), ExecDate: "2025-06-01T09:00:00.000"},
		{ID: 101, Side: bitflyer.SideSell, Price: 1000050, Size: decimal.NewFromFloat(0.5), ExecDate: "2025-06-01T09:00:00.100"},
	}
	require.NoError(t, rec.Record(batch))
	require.NoError(t, rec.Record(nil), "empty batches are a no-op")

	var count int
	require.NoError(t, rec.db.QueryRow(`SELECT COUNT(*) FROM executions`).Scan(&count))
	assert.Equal(t, 2, count)

	var side, size, channel string
	require.NoError(t, rec.db.QueryRow(
		`SELECT channel, side, size FROM executions WHERE exec_id = 101`).
		Scan(&channel, &side, &size))
	assert.Equal(t, "lightning_executions_FX_BTC_JPY", channel)
	assert.Equal(t, "SELL", side)
	assert.Equal(t, "0.5", size)
}

func TestOpenReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exec.db")

	rec, err := Open(path, "ch")
	require.NoError(t, err)
	require.NoError(t, rec.Record([]bitflyer.Execution{{ID: 1, Side: bitflyer.SideBuy, Size: decimal.NewFromInt(1)}}))
	require.NoError(t, rec.Close())

	rec, err = Open(path, "ch")
	require.NoError(t, err)
	defer rec.Close()

	var count int
	require.NoError(t, rec.db.QueryRow(`SELECT COUNT(*) FROM executions`).Scan(&count))
	assert.Equal(t, 1, count)
}
