package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

// MLatestData is the push-server state: the most recent signal per session
// plus the sessions themselves.
type MLatestData struct {
	Type      string                   `json:"type"` // "INITIAL", "SIGNAL", "FEED_UP" or "FEED_DOWN"
	Sessions  map[string]MSession      `json:"sessions"`
	Signals   map[string]MSignalResult `json:"signals"` // keyed by session id
	Timestamp int64                    `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string   `json:"command"`
	SessionIDs []string `json:"session_ids"`
}
