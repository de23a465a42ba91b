package messagequeue

import "github.com/voltaic-labs/chainswarm/internal/port/risk"

// TaskDispatchPayload is the schema for swarm.tasks.dispatch messages.
type TaskDispatchPayload struct {
	TaskID       string             `json:"task_id"`
	AgentID      string             `json:"agent_id"`
	Description  string             `json:"description"`
	Priority     string             `json:"priority"`
	Context      map[string]any     `json:"context,omitempty"`
	Transactions []risk.Transaction `json:"transactions,omitempty"`
}

// TaskResultPayload is the schema for swarm.tasks.result messages.
type TaskResultPayload struct {
	TaskID         string  `json:"task_id"`
	AgentID        string  `json:"agent_id"`
	Status         string  `json:"status"`
	AggregateRisk  float64 `json:"aggregate_risk"`
	ResponseID     string  `json:"response_id,omitempty"`
	Error          string  `json:"error,omitempty"`
	DurationMillis int64   `json:"duration_ms"`
}
