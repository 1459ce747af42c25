package auditlog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	require.NoError(t, InitAuditDB(path))
	t.Cleanup(CloseAuditDB)
}

func TestSessionLifecycle(t *testing.T) {
	openTestDB(t)

	RecordSessionStart("abc-123", "/org/bluez/hci0/dev_AA_BB")
	RecordSessionEnd("abc-123")

	var peer string
	var disconnected any
	err := auditDB.QueryRow(
		"SELECT peer, disconnected_at FROM sessions WHERE id = ?", "abc-123",
	).Scan(&peer, &disconnected)
	require.NoError(t, err)
	assert.Equal(t, "/org/bluez/hci0/dev_AA_BB", peer)
	assert.NotNil(t, disconnected)
}

func TestUnmappedKeyAccumulates(t *testing.T) {
	openTestDB(t)

	RecordUnmappedKey(465)
	RecordUnmappedKey(465)
	RecordUnmappedKey(465)
	RecordUnmappedKey(120)

	assert.Equal(t, 3, UnmappedCount(465))
	assert.Equal(t, 1, UnmappedCount(120))
	assert.Equal(t, 0, UnmappedCount(999))
}

func TestPhaseEventsOrdered(t *testing.T) {
	openTestDB(t)

	RecordPhase("starting", "")
	RecordPhase("sharing", "")
	RecordPhase("idle", "emergency stop")

	rows, err := auditDB.Query("SELECT phase FROM share_events ORDER BY seq")
	require.NoError(t, err)
	defer rows.Close()

	var phases []string
	for rows.Next() {
		var p string
		require.NoError(t, rows.Scan(&p))
		phases = append(phases, p)
	}
	assert.Equal(t, []string{"starting", "sharing", "idle"}, phases)
}

func TestRecordersTolerateClosedDB(t *testing.T) {
	CloseAuditDB()
	RecordSessionStart("x", "y")
	RecordPhase("idle", "")
	RecordUnmappedKey(1)
	assert.Equal(t, 0, UnmappedCount(1))
}
