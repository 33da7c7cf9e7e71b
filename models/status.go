package models

// StatusEntry is one row of the /status payload consumed by the dashboard.
// LastPong is formatted as a wall-clock time ("15:04:05"); Online is
// recomputed from the live registry on every request.
type StatusEntry struct {
	Name     string `json:"name"`
	LastPong string `json:"last_pong"`
	Online   bool   `json:"online"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Students []StatusEntry `json:"students"`
}
