package models

// Wire tokens for the heartbeat protocol. The server sends MsgProbe to
// every bound session each monitor tick; clients answer with MsgAck.
const (
	MsgProbe = "PING"
	MsgAck   = "PONG"
)

// Status values as they appear in the transition log.
const (
	StatusOnline  = "ONLINE"
	StatusOffline = "OFFLINE"
)

// StatusName returns the log representation of an online flag.
func StatusName(online bool) string {
	if online {
		return StatusOnline
	}
	return StatusOffline
}
