// Package capture owns the pcap handle and the capture goroutine, feeding
// decoded packets into the store.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/gopacket/pcap"

	"netscope/internal/decode"
	"netscope/internal/descriptions"
	"netscope/internal/store"
	"netscope/internal/watchlist"
)

const (
	// snapshotLen is effectively unbounded for ordinary frames.
	snapshotLen = 65535

	// readTimeout bounds each blocking read so the loop notices
	// cancellation promptly.
	readTimeout = 100 * time.Millisecond

	// batchSize is the number of packets drained per loop iteration.
	batchSize = 10

	// idleSleep avoids busy-spinning when no traffic arrives.
	idleSleep = 10 * time.Millisecond
)

// ProcessResolver attributes a packet to a local process. Implementations
// live outside this package; the coordinator only consults one when process
// attribution is enabled.
type ProcessResolver interface {
	Resolve(localIP, remoteIP string, localPort, remotePort uint16, protocol uint8) (name string, pid int, ok bool)
}

// Recorder receives decoded records that carry a hostname, for persistence.
type Recorder interface {
	Record(rec decode.PacketRecord)
}

// Coordinator drives the capture lifecycle:
//
//	Closed -> Open -> Running -> (Stopped|Open) -> Closed
//
// Open acquires the handle, Start spawns the capture goroutine, Stop signals
// it and joins it before returning, Close releases the handle. All methods
// are safe to call from any goroutine.
type Coordinator struct {
	store  *store.Store
	logger *log.Logger

	mu        sync.Mutex
	handle    *pcap.Handle
	ifaceName string
	lastErr   string
	done      chan struct{}

	running     atomic.Bool
	procEnabled atomic.Bool

	// Optional collaborators, set before Start.
	watchlist    *watchlist.Watchlist
	descriptions *descriptions.Database
	resolver     ProcessResolver
	recorder     Recorder
	onAlert      func(watchlist.Alert)
}

// New creates a Coordinator writing into st.
func New(st *store.Store, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{store: st, logger: logger}
}

// SetWatchlist enables watchlist tagging and alerting for captured packets.
func (c *Coordinator) SetWatchlist(w *watchlist.Watchlist) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchlist = w
}

// SetDescriptions enables hostname categorization for captured packets.
func (c *Coordinator) SetDescriptions(d *descriptions.Database) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptions = d
}

// SetProcessResolver installs the process-attribution collaborator. It is
// only consulted while process attribution is enabled.
func (c *Coordinator) SetProcessResolver(r ProcessResolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolver = r
}

// SetRecorder installs a persistence sink for records carrying a hostname.
func (c *Coordinator) SetRecorder(r Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

// SetAlertFunc installs a callback invoked for every new alert, after it has
// been added to the watchlist deque.
func (c *Coordinator) SetAlertFunc(fn func(watchlist.Alert)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAlert = fn
}

// SetProcessEnabled toggles process attribution without stopping capture.
func (c *Coordinator) SetProcessEnabled(enabled bool) { c.procEnabled.Store(enabled) }

// ProcessEnabled reports whether process attribution is on.
func (c *Coordinator) ProcessEnabled() bool { return c.procEnabled.Load() }

// Open acquires a live capture handle on the named interface in promiscuous
// mode and resets the store for a fresh session. An already-open handle is
// fully closed first. On failure the coordinator stays Closed and the error
// is retained for Err.
func (c *Coordinator) Open(ifaceName string) error {
	c.stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		c.handle.Close()
		c.handle = nil
		c.ifaceName = ""
	}

	handle, err := pcap.OpenLive(ifaceName, snapshotLen, true, readTimeout)
	if err != nil {
		c.lastErr = fmt.Sprintf("open %s: %v", ifaceName, err)
		return errors.New(c.lastErr)
	}

	c.handle = handle
	c.ifaceName = ifaceName
	c.lastErr = ""

	c.store.SetInterfaceName(ifaceName)
	c.store.Clear()

	c.logger.Info("Capture handle opened", "interface", ifaceName)
	return nil
}

// Start spawns the capture goroutine. It is a no-op when not open or already
// running.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil || c.running.Load() {
		return
	}

	c.running.Store(true)
	c.done = make(chan struct{})
	go c.loop(c.handle, c.done)

	c.logger.Info("Capture started", "interface", c.ifaceName)
}

// Stop signals the capture goroutine and blocks until it has exited. No
// pushes happen after Stop returns.
func (c *Coordinator) Stop() { c.stop() }

func (c *Coordinator) stop() {
	if !c.running.Swap(false) {
		return
	}

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	c.logger.Info("Capture stopped", "interface", c.InterfaceName())
}

// Close stops capture and releases the handle.
func (c *Coordinator) Close() {
	c.stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		c.handle.Close()
		c.handle = nil
	}
	c.ifaceName = ""
}

// IsOpen reports whether a capture handle is held.
func (c *Coordinator) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

// IsRunning reports whether the capture goroutine is active.
func (c *Coordinator) IsRunning() bool { return c.running.Load() }

// InterfaceName returns the currently open interface, empty when closed.
func (c *Coordinator) InterfaceName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ifaceName
}

// Err returns the last open or capture error, empty when none occurred.
func (c *Coordinator) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// loop drains up to batchSize packets per iteration, sleeping briefly when
// idle. The bounded read timeout on the handle keeps cancellation latency
// low. A hard capture error is retained and ends the loop.
func (c *Coordinator) loop(handle *pcap.Handle, done chan struct{}) {
	defer close(done)

	for c.running.Load() {
		drained := 0
		for drained < batchSize {
			data, ci, err := handle.ReadPacketData()
			if err != nil {
				if err == pcap.NextErrorTimeoutExpired {
					break
				}
				c.mu.Lock()
				c.lastErr = fmt.Sprintf("capture: %v", err)
				c.mu.Unlock()
				c.running.Store(false)
				c.logger.Error("Capture loop terminated", "error", err)
				return
			}
			c.handlePacket(data, uint32(ci.Length), ci.Timestamp)
			drained++
		}

		if drained == 0 {
			time.Sleep(idleSleep)
		}
	}
}

func (c *Coordinator) handlePacket(data []byte, wireLen uint32, ts time.Time) {
	rec := decode.Decode(data, wireLen)
	if !ts.IsZero() {
		rec.Timestamp = ts
	}

	c.mu.Lock()
	wl := c.watchlist
	db := c.descriptions
	resolver := c.resolver
	recorder := c.recorder
	onAlert := c.onAlert
	c.mu.Unlock()

	if db != nil {
		db.Annotate(&rec)
	}

	if resolver != nil && c.procEnabled.Load() && rec.IPVersion == 4 {
		if name, pid, ok := resolver.Resolve(rec.SrcIP, rec.DstIP, rec.SrcPort, rec.DstPort, rec.Protocol); ok {
			rec.ProcessName = name
			rec.ProcessPID = pid
		}
	}

	var matched wlMatch
	if wl != nil {
		if entry, value, ok := wl.Check(&rec); ok {
			rec.WatchlistMatch = true
			rec.WatchlistLabel = entry.Label
			matched = wlMatch{entry: entry, value: value}
		}
	}

	c.store.Push(rec)

	if matched.value != "" {
		alert := watchlist.Alert{
			Timestamp:    rec.Timestamp,
			MatchedValue: matched.value,
			Pattern:      matched.entry.Rule.Pattern,
			Label:        matched.entry.Label,
			PacketIndex:  c.store.Len() - 1,
		}
		wl.AddAlert(alert)
		if onAlert != nil {
			onAlert(alert)
		}
	}

	if recorder != nil && rec.Hostname != "" {
		recorder.Record(rec)
	}
}

// wlMatch bundles a watchlist hit with the value that triggered it.
type wlMatch struct {
	entry watchlist.Entry
	value string
}
