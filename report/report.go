// Package report derives per-student timelines and offline-interval
// tables from the transition log. It is pull-based and pure: the log
// file is the only input, so a report can be produced during the exam
// or long after it ended.
package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"examwatch/translog"
)

// Options configure the report window and the offline filter.
type Options struct {
	// ExamDuration bounds every student's timeline: the final segment
	// runs from the last record to first record + ExamDuration.
	ExamDuration time.Duration

	// MinOffline drops offline intervals shorter than this; brief
	// network jitter is not a reportable absence.
	MinOffline time.Duration
}

// Segment is one timeline bar: a maximal span of constant status.
// DurationRatio is the segment length relative to the exam duration,
// for proportional rendering.
type Segment struct {
	Status        string
	Start         time.Time
	DurationRatio float64
}

// OfflineInterval is one row of a student's offline table.
type OfflineInterval struct {
	Start   time.Time
	End     time.Time
	Seconds int
}

// Student is the derived report for one identity.
type Student struct {
	Identity string
	Segments []Segment
	Offline  []OfflineInterval
}

// Report lists students ordered by student-number prefix.
type Report struct {
	Students []Student
}

// Build derives the report from log records. Records are expected in
// file order, which the single-writer log guarantees is decision order
// per identity.
func Build(records []translog.Record, opts Options) Report {
	byIdentity := make(map[string][]translog.Record)
	var identities []string
	for _, r := range records {
		if _, seen := byIdentity[r.Identity]; !seen {
			identities = append(identities, r.Identity)
		}
		byIdentity[r.Identity] = append(byIdentity[r.Identity], r)
	}

	sort.Slice(identities, func(i, j int) bool {
		return identityLess(identities[i], identities[j])
	})

	var out Report
	for _, identity := range identities {
		out.Students = append(out.Students, buildStudent(identity, byIdentity[identity], opts))
	}
	return out
}

// BuildFromFile reads and parses the log at path, then builds the
// report. A missing file surfaces as os.ErrNotExist so the caller can
// render an explicit no-data result.
func BuildFromFile(path string, opts Options) (Report, error) {
	records, err := translog.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	return Build(records, opts), nil
}

// buildStudent walks consecutive record pairs; the interval between two
// records carries the status of the earlier one. The final interval
// extends to first record + exam duration, so a report stays
// well-defined after everyone has disconnected. Online intervals are
// always kept; offline intervals only when they meet the filter.
func buildStudent(identity string, recs []translog.Record, opts Options) Student {
	s := Student{Identity: identity}
	examEnd := recs[0].Time.Add(opts.ExamDuration)

	for i, rec := range recs {
		end := examEnd
		if i+1 < len(recs) {
			end = recs[i+1].Time
		}
		if end.Before(rec.Time) {
			end = rec.Time
		}
		dur := end.Sub(rec.Time)

		if !rec.Online && dur < opts.MinOffline {
			continue
		}

		status := "offline"
		if rec.Online {
			status = "online"
		}
		s.Segments = append(s.Segments, Segment{
			Status:        status,
			Start:         rec.Time,
			DurationRatio: float64(dur) / float64(opts.ExamDuration),
		})
		if !rec.Online {
			s.Offline = append(s.Offline, OfflineInterval{
				Start:   rec.Time,
				End:     end,
				Seconds: int(dur.Seconds()),
			})
		}
	}
	return s
}

// identityLess orders identities by their numeric student-number prefix
// ("12 - Name" before "104 - Name"), falling back to lexical order for
// identities without one.
func identityLess(a, b string) bool {
	an, aok := studentNumber(a)
	bn, bok := studentNumber(b)
	switch {
	case aok && bok && an != bn:
		return an < bn
	case aok != bok:
		return aok
	default:
		return a < b
	}
}

func studentNumber(identity string) (int, bool) {
	head, _, _ := strings.Cut(identity, " - ")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	return n, err == nil
}
