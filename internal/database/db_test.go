package database

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netscope/internal/decode"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func hostnameRecord(hostname string) decode.PacketRecord {
	return decode.PacketRecord{
		Timestamp:   time.Now(),
		SrcIP:       "10.0.0.1",
		DstIP:       "93.184.216.34",
		SrcPort:     50000,
		DstPort:     443,
		Hostname:    hostname,
		AppProtocol: "TLS",
		AppInfo:     "ClientHello",
		WireLen:     583,
	}
}

func TestRecordAndFlush(t *testing.T) {
	db := openTestDB(t)
	db.SetInterfaceName("eth0")

	db.Record(hostnameRecord("one.example"))
	db.Record(hostnameRecord("two.example"))
	require.NoError(t, db.Flush())

	events, err := db.Events(EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "eth0", events[0].Interface)
	assert.Equal(t, uint16(443), events[0].DstPort)
}

func TestRecordSkipsEmptyHostname(t *testing.T) {
	db := openTestDB(t)

	rec := hostnameRecord("")
	db.Record(rec)
	require.NoError(t, db.Flush())

	total, err := db.TotalEvents()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRecordAutoFlushesFullBatch(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < flushBatch; i++ {
		db.Record(hostnameRecord(fmt.Sprintf("host-%d.example", i)))
	}

	// The batch filled, so everything is on disk without an explicit Flush.
	total, err := db.TotalEvents()
	require.NoError(t, err)
	assert.Equal(t, int64(flushBatch), total)
}

func TestEventsFilters(t *testing.T) {
	db := openTestDB(t)
	db.SetInterfaceName("wlan0")

	old := hostnameRecord("old.example")
	old.Timestamp = time.Now().Add(-2 * time.Hour)
	db.Record(old)

	fresh := hostnameRecord("fresh.example")
	fresh.SrcIP = "192.168.1.7"
	db.Record(fresh)
	require.NoError(t, db.Flush())

	events, err := db.Events(EventFilter{Since: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "fresh.example", events[0].Hostname)

	events, err = db.Events(EventFilter{IP: "192.168.1.7"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "fresh.example", events[0].Hostname)

	events, err = db.Events(EventFilter{Hostname: "old"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "old.example", events[0].Hostname)

	events, err = db.Events(EventFilter{Interface: "wlan0"})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = db.Events(EventFilter{Interface: "eth9"})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventsNewestFirstWithLimit(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		rec := hostnameRecord(fmt.Sprintf("host-%d.example", i))
		rec.Timestamp = base.Add(time.Duration(i) * time.Second)
		db.Record(rec)
	}
	require.NoError(t, db.Flush())

	events, err := db.Events(EventFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "host-4.example", events[0].Hostname)
	assert.Equal(t, "host-3.example", events[1].Hostname)
}

func TestCleanupOldEvents(t *testing.T) {
	db := openTestDB(t)

	stale := hostnameRecord("stale.example")
	stale.Timestamp = time.Now().AddDate(0, 0, -10)
	db.Record(stale)
	db.Record(hostnameRecord("current.example"))
	require.NoError(t, db.Flush())

	require.NoError(t, db.CleanupOldEvents(7))

	events, err := db.Events(EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "current.example", events[0].Hostname)

	// Zero retention disables cleanup.
	require.NoError(t, db.CleanupOldEvents(0))
	total, err := db.TotalEvents()
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestWatchlistFieldsPersisted(t *testing.T) {
	db := openTestDB(t)

	rec := hostnameRecord("tracked.example")
	rec.WatchlistMatch = true
	rec.WatchlistLabel = "Tracker"
	rec.Category = "Advertising"
	db.Record(rec)
	require.NoError(t, db.Flush())

	events, err := db.Events(EventFilter{Hostname: "tracked"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Watchlisted)
	assert.Equal(t, "Tracker", events[0].Label)
	assert.Equal(t, "Advertising", events[0].Category)
}
