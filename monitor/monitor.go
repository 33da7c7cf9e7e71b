// Package monitor runs the recurring liveness check: probe every bound
// session, re-evaluate every registered client, and tear down sessions
// of clients that went offline.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"examwatch/models"
	"examwatch/presence"
)

// Transport is the session-control surface the monitor drives. Both
// calls are best-effort: a probe that cannot be delivered is an
// implicit disconnect handled inside the transport, and kicking an
// identity with no bound session is a no-op.
type Transport interface {
	BroadcastProbe()
	Kick(identity string)
}

// Monitor drives one evaluation pass per tick.
type Monitor struct {
	registry  *presence.Registry
	transport Transport
	interval  time.Duration
}

// New returns a monitor ticking every interval.
func New(registry *presence.Registry, transport Transport, interval time.Duration) *Monitor {
	return &Monitor{registry: registry, transport: transport, interval: interval}
}

// Run loops until ctx is cancelled. The loop itself never fails: every
// per-client problem is contained in its tick.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", m.interval).Msg("liveness monitor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("liveness monitor stopped")
			return
		case <-ticker.C:
			m.tick(time.Now())
		}
	}
}

// tick performs one monitor pass. The probe goes out first so a live
// client gets the full next window to answer; the evaluation then works
// off the acks received up to now. Clients evaluated offline get their
// session kicked, covering transports that died without a disconnect
// event.
func (m *Monitor) tick(now time.Time) {
	m.transport.BroadcastProbe()

	for _, t := range m.registry.EvaluateTransitions(now) {
		log.Info().Str("identity", t.Identity).
			Str("status", models.StatusName(t.Online)).
			Msg("client status changed")
		if !t.Online {
			m.transport.Kick(t.Identity)
		}
	}
}
