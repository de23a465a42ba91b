// Package swarm defines the coordination entities shared by cooperating
// agents: the directory entry, the message envelope, the task record, and
// the lifecycle events the coordinator emits.
package swarm

import "time"

// Broadcast is the sentinel recipient id addressing every registered agent.
const Broadcast = "broadcast"

// Scope controls how a broadcast message is fanned out.
type Scope string

const (
	ScopeGlobal Scope = "global" // every registered agent except the sender
	ScopeRole   Scope = "role"   // agents sharing Message.Role, excluding the sender
	ScopeDirect Scope = "direct" // a single named recipient
)

// MessageType identifies the kind of inter-agent message.
type MessageType string

const (
	MessageProposal  MessageType = "proposal"
	MessageQuery     MessageType = "query"
	MessageResponse  MessageType = "response"
	MessageAlert     MessageType = "alert"
	MessageHeartbeat MessageType = "heartbeat"
)

// Message is the envelope exchanged between agents through the coordinator.
// It is immutable once constructed; the coordinator appends every message to
// an append-only in-memory log regardless of delivery outcome.
type Message struct {
	ID            string      `json:"id"`
	From          string      `json:"from"`
	To            string      `json:"to"` // agent id or Broadcast
	Scope         Scope       `json:"scope,omitempty"`
	Role          string      `json:"role,omitempty"` // target role for ScopeRole
	Type          MessageType `json:"type"`
	Content       any         `json:"content"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// AgentStatus represents the availability of a registered agent.
type AgentStatus string

const (
	StatusActive  AgentStatus = "active"
	StatusBusy    AgentStatus = "busy"
	StatusOffline AgentStatus = "offline"
)

// AgentInfo is a directory snapshot entry for one registered agent.
type AgentInfo struct {
	ID     string      `json:"id"`
	Role   string      `json:"role"`
	Status AgentStatus `json:"status"`
}
