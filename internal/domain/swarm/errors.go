package swarm

import "errors"

// Registry and task lifecycle errors. All are fatal to the single offending
// call and never retried internally; callers decide whether to retry.
var (
	// ErrAlreadyRegistered indicates the agent id is already present in the directory.
	ErrAlreadyRegistered = errors.New("agent already registered")

	// ErrCapacityExceeded indicates the configured maximum agent count would be exceeded.
	ErrCapacityExceeded = errors.New("swarm capacity exceeded")

	// ErrTaskNotFound indicates the task id is not in the registry.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAgentNotFound indicates the agent id is not in the directory.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrTaskTerminal indicates a transition was attempted on a completed or failed task.
	ErrTaskTerminal = errors.New("task is in a terminal state")
)
