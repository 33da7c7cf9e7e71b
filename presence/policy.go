package presence

import "time"

// IsOnline reports whether a client whose last heartbeat arrived at
// lastSeen counts as online at now. This is the single liveness rule;
// everything else (registry cache, monitor, status endpoint) defers to it.
func IsOnline(now, lastSeen time.Time, timeout time.Duration) bool {
	return now.Sub(lastSeen) <= timeout
}
