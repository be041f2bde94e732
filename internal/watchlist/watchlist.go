// Package watchlist matches captured traffic against user-defined patterns
// and keeps a bounded log of alerts.
//
// Watchlist lines have the shape kind:pattern:label, where kind is one of
// exact, wildcard, regex, ip or cidr. A line that fails to compile is dropped
// on its own; loading continues with the rest of the file.
package watchlist

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"netscope/internal/config"
	"netscope/internal/decode"
	"netscope/internal/rules"
)

// MaxAlerts bounds the alert deque; the oldest alert is evicted on overflow.
const MaxAlerts = 100

// Entry is one compiled watchlist rule with its user-facing label.
type Entry struct {
	Rule  rules.Rule
	Label string
}

// Matches checks the packet's hostname and both IP addresses against the
// entry, in that order.
func (e *Entry) Matches(rec *decode.PacketRecord) (string, bool) {
	if rec.Hostname != "" && e.matchesHostname(rec.Hostname) {
		return rec.Hostname, true
	}
	if rec.SrcIP != "" && e.matchesIP(rec.SrcIP) {
		return rec.SrcIP, true
	}
	if rec.DstIP != "" && e.matchesIP(rec.DstIP) {
		return rec.DstIP, true
	}
	return "", false
}

func (e *Entry) matchesHostname(hostname string) bool {
	switch e.Rule.Kind {
	case rules.MatchIP, rules.MatchCIDR:
		return false
	}
	return e.Rule.Matches(hostname)
}

func (e *Entry) matchesIP(ip string) bool {
	// Exact rules compare IP text verbatim. Wildcard and regex rules run
	// their compiled regex against the IP string, so patterns like
	// 192.168.* match by address too.
	if e.Rule.Kind == rules.MatchExact {
		return ip == e.Rule.Pattern
	}
	return e.Rule.Matches(ip)
}

// Alert records one watchlist hit.
type Alert struct {
	Timestamp    time.Time `json:"timestamp"`
	MatchedValue string    `json:"matched_value"`
	Pattern      string    `json:"pattern"`
	Label        string    `json:"label"`
	PacketIndex  int       `json:"packet_index"`
}

// FormatShort renders the alert for a status line.
func (a *Alert) FormatShort() string {
	return a.MatchedValue + ": " + a.Label
}

// FormatFull renders the alert for the append-only alert log.
func (a *Alert) FormatFull() string {
	return fmt.Sprintf("%s | %s | Pattern: %s | %s",
		a.Timestamp.Format("2006-01-02 15:04:05"), a.MatchedValue, a.Pattern, a.Label)
}

// Watchlist holds the active rule set and the recent alerts, most recent
// first. Rule reloads replace the whole slice under the lock, so concurrent
// matching never sees a half-updated set.
type Watchlist struct {
	mu      sync.RWMutex
	entries []Entry
	alerts  []Alert // most recent first
	path    string
	logPath string
	loaded  bool
	hasNew  atomic.Bool
	logger  *log.Logger
}

// New creates an empty watchlist.
func New(logger *log.Logger) *Watchlist {
	if logger == nil {
		logger = log.Default()
	}
	return &Watchlist{logger: logger}
}

// Load reads and compiles a watchlist file, replacing the active rule set.
// It returns the number of rules that compiled; bad lines are dropped
// individually.
func (w *Watchlist) Load(path string) (int, error) {
	lines, err := config.ReadLines(path)
	if err != nil {
		return 0, err
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		fields := rules.ParseFields(line, ':')
		if len(fields) < 3 {
			w.logger.Warn("Skipping watchlist line", "reason", "too few fields", "line", line)
			continue
		}
		rule, err := rules.Compile(fields[0], fields[1])
		if err != nil {
			w.logger.Warn("Skipping watchlist line", "error", err)
			continue
		}
		entries = append(entries, Entry{Rule: rule, Label: fields[2]})
	}

	w.mu.Lock()
	w.entries = entries
	w.path = path
	w.loaded = true
	w.mu.Unlock()

	return len(entries), nil
}

// Reload re-reads the file Load was last given.
func (w *Watchlist) Reload() (int, error) {
	w.mu.RLock()
	path := w.path
	w.mu.RUnlock()
	if path == "" {
		return 0, fmt.Errorf("watchlist was never loaded")
	}
	return w.Load(path)
}

// Size returns the number of active rules.
func (w *Watchlist) Size() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// Loaded reports whether Load has succeeded at least once.
func (w *Watchlist) Loaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loaded
}

// Check returns the first entry matching the record, in load order.
func (w *Watchlist) Check(rec *decode.PacketRecord) (Entry, string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, e := range w.entries {
		if value, ok := e.Matches(rec); ok {
			return e, value, true
		}
	}
	return Entry{}, "", false
}

// CheckAndMark tags the record with the first matching entry and reports
// whether it matched.
func (w *Watchlist) CheckAndMark(rec *decode.PacketRecord) bool {
	entry, _, ok := w.Check(rec)
	if !ok {
		return false
	}
	rec.WatchlistMatch = true
	rec.WatchlistLabel = entry.Label
	return true
}

// AddAlert prepends an alert, evicting the oldest past MaxAlerts, and writes
// it to the alert log when one is configured.
func (w *Watchlist) AddAlert(alert Alert) {
	w.mu.Lock()
	w.alerts = append([]Alert{alert}, w.alerts...)
	if len(w.alerts) > MaxAlerts {
		w.alerts = w.alerts[:MaxAlerts]
	}
	logPath := w.logPath
	w.mu.Unlock()

	w.hasNew.Store(true)

	if logPath != "" {
		if err := appendAlertLog(logPath, &alert); err != nil {
			w.logger.Error("Failed to write alert log", "path", logPath, "error", err)
		}
	}
}

// RecentAlerts returns up to count alerts, most recent first.
func (w *Watchlist) RecentAlerts(count int) []Alert {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if count > len(w.alerts) {
		count = len(w.alerts)
	}
	return append([]Alert(nil), w.alerts[:count]...)
}

// LatestAlert returns the most recent alert, if any.
func (w *Watchlist) LatestAlert() (Alert, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.alerts) == 0 {
		return Alert{}, false
	}
	return w.alerts[0], true
}

// AlertCount returns the number of retained alerts.
func (w *Watchlist) AlertCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.alerts)
}

// ClearAlerts drops all retained alerts.
func (w *Watchlist) ClearAlerts() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.alerts = nil
}

// HasNewAlerts reports whether alerts arrived since the last call, clearing
// the flag.
func (w *Watchlist) HasNewAlerts() bool {
	return w.hasNew.Swap(false)
}

// SetLogFile configures the append-only alert log. An empty path disables
// logging.
func (w *Watchlist) SetLogFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logPath = path
}

func appendAlertLog(path string, alert *Alert) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(alert.FormatFull() + "\n")
	return err
}
