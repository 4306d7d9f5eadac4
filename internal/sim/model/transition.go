package model

// Transition records one state change of one agent. Fallbacks carry the
// error code that forced the agent back to IDLE or onto another target.
type Transition struct {
	Tick     uint64 `json:"tick"`
	AgentID  string `json:"agent_id"`
	From     State  `json:"from"`
	To       State  `json:"to"`
	Reason   string `json:"reason"`
	Code     string `json:"code,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}
