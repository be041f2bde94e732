// Package descriptions categorizes traffic by hostname using a pattern
// database.
//
// Database lines have the shape pattern:category:description. The match kind
// is inferred from the pattern text: a leading ~ means regex, * or ? means
// wildcard, anything else is an exact hostname. Lookup is first-match-wins
// in file order.
package descriptions

import (
	"sync"

	"github.com/charmbracelet/log"

	"netscope/internal/config"
	"netscope/internal/decode"
	"netscope/internal/rules"
)

// Entry pairs a compiled pattern with its category and description text.
type Entry struct {
	Rule        rules.Rule
	Category    string
	Description string
}

// Database is the loaded description rule set. The entry slice is replaced
// wholesale on reload, so concurrent lookups never observe a partial set.
type Database struct {
	mu      sync.RWMutex
	entries []Entry
	logger  *log.Logger
}

// New creates an empty database.
func New(logger *log.Logger) *Database {
	if logger == nil {
		logger = log.Default()
	}
	return &Database{logger: logger}
}

// Load reads and compiles a description file, replacing the active set. Bad
// lines are dropped individually; the returned count is the number of rules
// that compiled.
func (d *Database) Load(path string) (int, error) {
	lines, err := config.ReadLines(path)
	if err != nil {
		return 0, err
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		fields := rules.ParseFields(line, ':')
		if len(fields) < 3 {
			d.logger.Warn("Skipping description line", "reason", "too few fields", "line", line)
			continue
		}
		if fields[1] == "" {
			d.logger.Warn("Skipping description line", "reason", "empty category", "line", line)
			continue
		}
		rule, err := rules.CompileAuto(fields[0])
		if err != nil {
			d.logger.Warn("Skipping description line", "error", err)
			continue
		}
		entries = append(entries, Entry{Rule: rule, Category: fields[1], Description: fields[2]})
	}

	d.mu.Lock()
	d.entries = entries
	d.mu.Unlock()

	return len(entries), nil
}

// Size returns the number of active entries.
func (d *Database) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Lookup returns the first entry whose pattern matches the hostname.
func (d *Database) Lookup(hostname string) (Entry, bool) {
	if hostname == "" {
		return Entry{}, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, e := range d.entries {
		if e.Rule.Matches(hostname) {
			return e, true
		}
	}
	return Entry{}, false
}

// Annotate fills the record's category and description from the first
// matching entry and reports whether one was found.
func (d *Database) Annotate(rec *decode.PacketRecord) bool {
	entry, ok := d.Lookup(rec.Hostname)
	if !ok {
		return false
	}
	rec.Category = entry.Category
	rec.Description = entry.Description
	return true
}
