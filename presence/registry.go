// Package presence holds the liveness state of every registered client.
// The Registry is the only shared mutable state in the core: the
// connection handlers and the liveness monitor both mutate it, and only
// through its synchronized methods.
package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"examwatch/models"
	"examwatch/translog"
)

// Sink receives one record per observed transition. Appends happen
// inside the registry lock, before the cached flag changes, so a
// snapshot taken after a transition never precedes its log record.
type Sink interface {
	Append(r translog.Record) error
}

// entry tracks one identity. online is the last evaluated state and is
// used only to edge-trigger logging; reads always recompute from
// lastSeen via IsOnline.
type entry struct {
	lastSeen time.Time
	online   bool
}

// SnapshotEntry is one row of a registry snapshot.
type SnapshotEntry struct {
	Identity string
	LastSeen time.Time
	Online   bool
}

// Transition is a change of evaluated state for one identity.
type Transition struct {
	Identity string
	Online   bool
}

// Registry maps identities to their liveness entries.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	timeout time.Duration
	sink    Sink
	now     func() time.Time
}

// NewRegistry returns an empty registry with the given liveness timeout,
// appending transitions to sink.
func NewRegistry(timeout time.Duration, sink Sink) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		timeout: timeout,
		sink:    sink,
		now:     time.Now,
	}
}

// Register inserts or refreshes the identity with a fresh heartbeat.
// An ONLINE record is appended only when the identity was absent or
// cached offline; re-registering an online client logs nothing.
func (r *Registry) Register(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	e, ok := r.entries[identity]
	if !ok {
		e = &entry{}
		r.entries[identity] = e
	}
	e.lastSeen = now

	if !ok || !e.online {
		r.append(translog.Record{Time: now, Identity: identity, Online: true})
		e.online = true
	}
}

// Heartbeat refreshes the identity's last-seen timestamp. Unknown
// identities are rejected: a stale ack arriving after a forced offline
// must not resurrect the entry.
func (r *Registry) Heartbeat(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[identity]
	if !ok {
		return models.ErrUnknownIdentity
	}
	e.lastSeen = r.now()
	return nil
}

// ForceOffline rewinds the identity's last-seen timestamp past the
// timeout window, so every later evaluation yields offline no matter
// when it runs. The OFFLINE record is appended only on the first call
// while cached online; repeated calls are no-ops. An unknown identity
// is a no-op, not an error.
func (r *Registry) ForceOffline(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[identity]
	if !ok {
		return
	}

	now := r.now()
	e.lastSeen = now.Add(-(r.timeout + time.Second))

	if e.online {
		r.append(translog.Record{Time: now, Identity: identity, Online: false})
		e.online = false
	}
}

// Online reports whether identity is currently inside the liveness
// window, recomputed from the policy. Unknown identities are offline.
func (r *Registry) Online(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[identity]
	if !ok {
		return false
	}
	return IsOnline(r.now(), e.lastSeen, r.timeout)
}

// Snapshot returns every entry ordered by identity, with the online
// flag recomputed from the current time. The cached flag is never read
// authority.
func (r *Registry) Snapshot() []SnapshotEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	out := make([]SnapshotEntry, 0, len(r.entries))
	for identity, e := range r.entries {
		out = append(out, SnapshotEntry{
			Identity: identity,
			LastSeen: e.lastSeen,
			Online:   IsOnline(now, e.lastSeen, r.timeout),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// EvaluateTransitions re-evaluates every entry against the timeout
// policy at now, appends a record for each change, updates the caches
// and returns the changes ordered by identity. This is the only path
// that turns a missed heartbeat into a logged OFFLINE transition.
func (r *Registry) EvaluateTransitions(now time.Time) []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []Transition
	for identity, e := range r.entries {
		online := IsOnline(now, e.lastSeen, r.timeout)
		if online == e.online {
			continue
		}
		r.append(translog.Record{Time: now, Identity: identity, Online: online})
		e.online = online
		changed = append(changed, Transition{Identity: identity, Online: online})
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Identity < changed[j].Identity })
	return changed
}

// append writes a transition record through the sink. A write failure
// breaks audit integrity, so it is logged at error level, but the
// registry keeps running and the cache still advances: retrying on the
// next tick would duplicate the transition once the storage recovers.
func (r *Registry) append(rec translog.Record) {
	if err := r.sink.Append(rec); err != nil {
		log.Error().Err(err).Str("identity", rec.Identity).
			Str("status", models.StatusName(rec.Online)).
			Msg("transition log append failed, audit record lost")
	}
}
