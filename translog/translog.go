// Package translog owns the durable transition log: one line per
// observed online/offline transition, appended in decision order.
// The log is the sole durable record of the exam; the in-memory
// registry can always be rebuilt, the log cannot.
package translog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"examwatch/models"
)

// TimeLayout is the timestamp format used in log lines.
const TimeLayout = "2006-01-02 15:04:05"

// fieldSep separates the timestamp, identity and status on a line.
// Identities may themselves contain the separator ("42 - Jane Doe");
// the parser treats everything between the first and last field as the
// identity.
const fieldSep = " - "

// Record is one logged transition.
type Record struct {
	Time     time.Time
	Identity string
	Online   bool
}

// Line renders the record in the on-disk format.
func (r Record) Line() string {
	return r.Time.Format(TimeLayout) + fieldSep + r.Identity + fieldSep + models.StatusName(r.Online)
}

// Writer appends transition records to a flat file. Writes are
// unbuffered and serialized, so every completed Append is on disk.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open truncates the log at path and returns a writer for it. Exam
// sessions are independent, so no cross-run history is kept.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transition log %s: %w", path, err)
	}
	return &Writer{f: f, path: path}, nil
}

// Append writes one record and flushes it. A failed append is the
// caller's signal that audit integrity is broken; it must be surfaced
// loudly but never treated as fatal to the monitor.
func (w *Writer) Append(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.f.WriteString(r.Line() + "\n"); err != nil {
		return fmt.Errorf("append transition for %s: %w", r.Identity, err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync transition log: %w", err)
	}
	return nil
}

// Path returns the file the writer appends to.
func (w *Writer) Path() string {
	return w.path
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// ParseLine parses one log line. Lines with fewer than three fields, an
// unparseable timestamp or an unknown status are rejected. Historical
// four-field lines ("<ts> - <nr> - <name> - <status>") parse with the
// middle fields joined back into the identity.
func ParseLine(line string) (Record, bool) {
	parts := strings.Split(line, fieldSep)
	if len(parts) < 3 {
		return Record{}, false
	}

	ts, err := time.ParseInLocation(TimeLayout, parts[0], time.Local)
	if err != nil {
		return Record{}, false
	}

	status := parts[len(parts)-1]
	if status != models.StatusOnline && status != models.StatusOffline {
		return Record{}, false
	}

	return Record{
		Time:     ts,
		Identity: strings.Join(parts[1:len(parts)-1], fieldSep),
		Online:   status == models.StatusOnline,
	}, true
}

// ReadFile parses every well-formed record in the log at path,
// preserving file order. Malformed lines are skipped with a warning.
// A missing file is reported as os.ErrNotExist for the caller to turn
// into a "no data" result.
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r, ok := ParseLine(line)
		if !ok {
			log.Warn().Str("line", line).Msg("skipping malformed transition log line")
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
