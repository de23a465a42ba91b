package swarm

import "time"

// EventType identifies the kind of coordinator lifecycle event.
type EventType string

const (
	EventAgentJoined   EventType = "agent_joined"
	EventAgentLeft     EventType = "agent_left"
	EventMessage       EventType = "message"
	EventTaskCreated   EventType = "task_created"
	EventTaskAssigned  EventType = "task_assigned"
	EventTaskCompleted EventType = "task_completed"
	EventTaskFailed    EventType = "task_failed"
)

// Event is the notification emitted to swarm event subscribers. Exactly one
// of Agent, Message, or Task is set depending on the event type.
type Event struct {
	Type      EventType  `json:"type"`
	Agent     *AgentInfo `json:"agent,omitempty"`
	Message   *Message   `json:"message,omitempty"`
	Task      *Task      `json:"task,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
