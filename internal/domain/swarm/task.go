package swarm

import "time"

// TaskStatus represents the current state of a swarm task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// IsTerminal returns true if the task is in a final state.
// Terminal tasks accept no further transitions.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskPriority orders tasks by urgency. The coordinator itself does not
// schedule by priority; it is carried for assigning callers and workers.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// ValidPriority reports whether p is a known task priority.
func ValidPriority(p string) bool {
	switch TaskPriority(p) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task is a unit of coordinated work owned by the swarm registry.
// Lifecycle: pending -> in_progress -> {completed, failed}. A direct jump
// from pending to a terminal state is allowed (a task can fail before it
// was ever assigned).
type Task struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	AssignedTo  string       `json:"assigned_to,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	Result      any          `json:"result,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
