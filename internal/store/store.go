// Package store keeps captured packets in a bounded in-memory buffer with
// aggregate statistics and per-second rate history.
//
// A single mutex guards the buffer, the stats and the selection cursor
// together, so a reader always observes a mutually consistent view. The
// capture goroutine writes through Push; any number of goroutines may read
// concurrently.
package store

import (
	"sync"
	"time"

	"netscope/internal/decode"
)

const (
	// MaxPackets is the ring buffer capacity. The oldest record is evicted
	// on overflow.
	MaxPackets = 10000

	// MaxHistory is the number of per-second rate samples retained for
	// trend display.
	MaxHistory = 60
)

// Stats are the aggregate counters for the current capture session.
type Stats struct {
	InterfaceName string `json:"interface_name"`

	PacketsTotal uint64 `json:"packets_total"`
	BytesTotal   uint64 `json:"bytes_total"`

	PacketsPerSecond float64 `json:"packets_per_second"`
	BytesPerSecond   float64 `json:"bytes_per_second"`

	// Keyed by protocol display name (TCP, UDP, DNS, ARP, ...).
	ProtocolCounts map[string]uint64 `json:"protocol_counts"`
	ProtocolBytes  map[string]uint64 `json:"protocol_bytes"`

	// Last MaxHistory rate samples, oldest first.
	PacketRateHistory []float64 `json:"packet_rate_history"`
	ByteRateHistory   []float64 `json:"byte_rate_history"`
}

func newStats() Stats {
	return Stats{
		ProtocolCounts: make(map[string]uint64),
		ProtocolBytes:  make(map[string]uint64),
	}
}

// clone returns a deep copy safe to hand to a reader.
func (s *Stats) clone() Stats {
	out := *s
	out.ProtocolCounts = make(map[string]uint64, len(s.ProtocolCounts))
	for k, v := range s.ProtocolCounts {
		out.ProtocolCounts[k] = v
	}
	out.ProtocolBytes = make(map[string]uint64, len(s.ProtocolBytes))
	for k, v := range s.ProtocolBytes {
		out.ProtocolBytes[k] = v
	}
	out.PacketRateHistory = append([]float64(nil), s.PacketRateHistory...)
	out.ByteRateHistory = append([]float64(nil), s.ByteRateHistory...)
	return out
}

// Store is the thread-safe bounded packet buffer.
type Store struct {
	mu       sync.Mutex
	packets  []decode.PacketRecord
	stats    Stats
	selected int

	// rate computation snapshot
	lastRateUpdate time.Time
	lastPackets    uint64
	lastBytes      uint64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		stats:          newStats(),
		lastRateUpdate: time.Now(),
	}
}

// Push appends a record, updating counters and evicting the oldest record at
// capacity. When eviction shifts the buffer, a nonzero selection index is
// decremented so the same logical packet stays selected.
func (s *Store) Push(rec decode.PacketRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.packets = append(s.packets, rec)
	s.stats.PacketsTotal++
	s.stats.BytesTotal += uint64(rec.WireLen)

	proto := rec.ProtocolName()
	s.stats.ProtocolCounts[proto]++
	s.stats.ProtocolBytes[proto] += uint64(rec.WireLen)

	if len(s.packets) > MaxPackets {
		s.packets = s.packets[1:]
		if s.selected > 0 {
			s.selected--
		}
	}
}

// Len returns the number of buffered records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.packets)
}

// Recent returns up to count records from the tail of the buffer, oldest
// first.
func (s *Store) Recent(count int) []decode.PacketRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count > len(s.packets) {
		count = len(s.packets)
	}
	if count <= 0 {
		return nil
	}
	out := make([]decode.PacketRecord, count)
	copy(out, s.packets[len(s.packets)-count:])
	return out
}

// All returns a copy of every buffered record, oldest first.
func (s *Store) All() []decode.PacketRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]decode.PacketRecord(nil), s.packets...)
}

// Get returns the record at index. The second return is false when the index
// is out of range.
func (s *Store) Get(index int) (decode.PacketRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.packets) {
		return decode.PacketRecord{}, false
	}
	return s.packets[index], true
}

// Select moves the selection cursor. Out-of-range indexes are ignored.
func (s *Store) Select(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= 0 && index < len(s.packets) {
		s.selected = index
	}
}

// SelectedIndex returns the current selection cursor.
func (s *Store) SelectedIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Selected returns the currently selected record; false when the buffer is
// empty or the cursor is stale.
func (s *Store) Selected() (decode.PacketRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected < 0 || s.selected >= len(s.packets) {
		return decode.PacketRecord{}, false
	}
	return s.packets[s.selected], true
}

// Stats returns a copy of the aggregate counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.clone()
}

// SetInterfaceName records the interface the session captures from.
func (s *Store) SetInterfaceName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.InterfaceName = name
}

// TickRates recomputes the per-second rates. Intended to be called about
// once per second by a consumer; calls less than one second after the
// previous computation are no-ops, so over-eager callers are harmless.
func (s *Store) TickRates(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := now.Sub(s.lastRateUpdate).Seconds()
	if elapsed < 1.0 {
		return
	}

	s.stats.PacketsPerSecond = float64(s.stats.PacketsTotal-s.lastPackets) / elapsed
	s.stats.BytesPerSecond = float64(s.stats.BytesTotal-s.lastBytes) / elapsed

	s.stats.PacketRateHistory = appendCapped(s.stats.PacketRateHistory, s.stats.PacketsPerSecond)
	s.stats.ByteRateHistory = appendCapped(s.stats.ByteRateHistory, s.stats.BytesPerSecond)

	s.lastPackets = s.stats.PacketsTotal
	s.lastBytes = s.stats.BytesTotal
	s.lastRateUpdate = now
}

func appendCapped(history []float64, sample float64) []float64 {
	history = append(history, sample)
	if len(history) > MaxHistory {
		history = history[1:]
	}
	return history
}

// Clear empties the buffer and resets stats and selection. Used when a new
// capture session starts, possibly on a different interface.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.stats.InterfaceName
	s.packets = nil
	s.stats = newStats()
	s.stats.InterfaceName = name
	s.selected = 0
	s.lastPackets = 0
	s.lastBytes = 0
	s.lastRateUpdate = time.Now()
}
