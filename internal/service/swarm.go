package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voltaic-labs/chainswarm/internal/domain/swarm"
	"github.com/voltaic-labs/chainswarm/internal/port/broadcast"
	"github.com/voltaic-labs/chainswarm/internal/port/messagequeue"
)

// Swarm is the single point of coordination for a set of cooperating agents:
// agent directory, message routing, task lifecycle, and event notification.
//
// All state (directory, message log, task map) is owned exclusively by the
// Swarm and guarded by one mutex. Handlers are never invoked while the lock
// is held, so a handler may call back into the Swarm. Re-entrant sends are
// bounded by a dispatch queue drained by the outermost call rather than by
// call-stack depth: per recipient, delivery order equals send order.
type Swarm struct {
	maxAgents int

	hub   broadcast.Broadcaster // optional event mirror to connected clients
	queue messagequeue.Queue    // optional event mirror to the message queue

	mu       sync.Mutex
	agents   map[string]swarm.AgentInfo
	log      []swarm.Message
	tasks    map[string]*swarm.Task
	nextSub  int
	eventSub map[int]func(swarm.Event)
	msgSub   map[string]map[int]func(swarm.Message)
	taskSub  map[string]map[int]func(swarm.Task)

	dispatchMu  sync.Mutex
	pending     []func()
	dispatching bool
}

// NewSwarm creates a coordinator accepting at most maxAgents concurrent
// registrations. maxAgents <= 0 means unlimited.
func NewSwarm(maxAgents int) *Swarm {
	return &Swarm{
		maxAgents: maxAgents,
		agents:    make(map[string]swarm.AgentInfo),
		tasks:     make(map[string]*swarm.Task),
		eventSub:  make(map[int]func(swarm.Event)),
		msgSub:    make(map[string]map[int]func(swarm.Message)),
		taskSub:   make(map[string]map[int]func(swarm.Task)),
	}
}

// SetBroadcaster installs an optional real-time event mirror (WebSocket hub).
func (s *Swarm) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetQueue installs an optional event mirror to the message queue so
// out-of-process workers can observe task lifecycle events.
func (s *Swarm) SetQueue(q messagequeue.Queue) { s.queue = q }

// RegisterAgent adds an agent to the directory with status active.
// Re-registration before unregistration fails with ErrAlreadyRegistered;
// exceeding the configured capacity fails with ErrCapacityExceeded.
func (s *Swarm) RegisterAgent(id, role string) error {
	s.mu.Lock()
	if _, exists := s.agents[id]; exists {
		s.mu.Unlock()
		return fmt.Errorf("register agent %s: %w", id, swarm.ErrAlreadyRegistered)
	}
	if s.maxAgents > 0 && len(s.agents) >= s.maxAgents {
		s.mu.Unlock()
		return fmt.Errorf("register agent %s: %w", id, swarm.ErrCapacityExceeded)
	}
	info := swarm.AgentInfo{ID: id, Role: role, Status: swarm.StatusActive}
	s.agents[id] = info
	s.mu.Unlock()

	slog.Info("agent joined swarm", "agent_id", id, "role", role)
	s.emit(swarm.Event{Type: swarm.EventAgentJoined, Agent: &info, Timestamp: time.Now().UTC()})
	return nil
}

// UnregisterAgent removes an agent from the directory. Unknown ids are a no-op.
func (s *Swarm) UnregisterAgent(id string) {
	s.mu.Lock()
	info, exists := s.agents[id]
	if exists {
		delete(s.agents, id)
	}
	s.mu.Unlock()
	if !exists {
		return
	}

	slog.Info("agent left swarm", "agent_id", id, "role", info.Role)
	s.emit(swarm.Event{Type: swarm.EventAgentLeft, Agent: &info, Timestamp: time.Now().UTC()})
}

// SetAgentStatus updates the directory status of a registered agent.
func (s *Swarm) SetAgentStatus(id string, status swarm.AgentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, exists := s.agents[id]
	if !exists {
		return fmt.Errorf("set status for %s: %w", id, swarm.ErrAgentNotFound)
	}
	info.Status = status
	s.agents[id] = info
	return nil
}

// AgentStatus returns the directory entry for the given agent id.
func (s *Swarm) AgentStatus(id string) (swarm.AgentInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.agents[id]
	return info, ok
}

// ActiveAgents returns a snapshot of the agent directory.
func (s *Swarm) ActiveAgents() []swarm.AgentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]swarm.AgentInfo, 0, len(s.agents))
	for _, info := range s.agents {
		out = append(out, info)
	}
	return out
}

// SendMessage appends msg to the message log and routes it. Sending to an
// unregistered direct target is not an error: the message is logged and
// dropped (at-most-once, best-effort delivery). Broadcasts fan out per
// scope, always excluding the sender. A zero ID and Timestamp are stamped.
func (s *Swarm) SendMessage(msg swarm.Message) swarm.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.log = append(s.log, msg)
	recipients := s.resolveRecipientsLocked(msg)
	handlers := make([]func(swarm.Message), 0, len(recipients))
	for _, id := range recipients {
		for _, fn := range s.msgSub[id] {
			handlers = append(handlers, fn)
		}
	}
	s.mu.Unlock()

	if msg.To != swarm.Broadcast && len(recipients) == 0 {
		slog.Warn("message target not registered, dropping",
			"message_id", msg.ID, "from", msg.From, "to", msg.To)
	}

	s.emit(swarm.Event{Type: swarm.EventMessage, Message: &msg, Timestamp: msg.Timestamp})
	for _, fn := range handlers {
		fn := fn
		s.dispatch(func() { fn(msg) })
	}
	return msg
}

// resolveRecipientsLocked computes delivery targets. Callers hold s.mu.
func (s *Swarm) resolveRecipientsLocked(msg swarm.Message) []string {
	if msg.To != swarm.Broadcast {
		if _, ok := s.agents[msg.To]; !ok {
			return nil
		}
		return []string{msg.To}
	}

	var out []string
	for id, info := range s.agents {
		if id == msg.From {
			continue
		}
		if msg.Scope == swarm.ScopeRole && info.Role != msg.Role {
			continue
		}
		out = append(out, id)
	}
	return out
}

// CreateTask registers a new pending task and emits task_created.
func (s *Swarm) CreateTask(description string, priority swarm.TaskPriority) swarm.Task {
	if priority == "" {
		priority = swarm.PriorityMedium
	}
	now := time.Now().UTC()
	t := swarm.Task{
		ID:          fmt.Sprintf("task-%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Description: description,
		Status:      swarm.TaskPending,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	stored := t
	s.tasks[t.ID] = &stored
	s.mu.Unlock()

	slog.Info("task created", "task_id", t.ID, "priority", priority)
	s.emit(swarm.Event{Type: swarm.EventTaskCreated, Task: &t, Timestamp: now})
	return t
}

// AssignTask hands a task to a registered agent, moving it to in_progress,
// and notifies the agent on its private task channel.
func (s *Swarm) AssignTask(taskID, agentID string) error {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("assign task %s: %w", taskID, swarm.ErrTaskNotFound)
	}
	if _, ok := s.agents[agentID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("assign task %s to %s: %w", taskID, agentID, swarm.ErrAgentNotFound)
	}
	if t.Status.IsTerminal() {
		s.mu.Unlock()
		return fmt.Errorf("assign task %s: %w", taskID, swarm.ErrTaskTerminal)
	}
	t.AssignedTo = agentID
	t.Status = swarm.TaskInProgress
	t.UpdatedAt = time.Now().UTC()
	snapshot := *t
	var handlers []func(swarm.Task)
	for _, fn := range s.taskSub[agentID] {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()

	slog.Info("task assigned", "task_id", taskID, "agent_id", agentID)
	s.emit(swarm.Event{Type: swarm.EventTaskAssigned, Task: &snapshot, Timestamp: snapshot.UpdatedAt})
	for _, fn := range handlers {
		fn := fn
		s.dispatch(func() { fn(snapshot) })
	}
	return nil
}

// CompleteTask moves a task to its terminal completed state and stores the result.
func (s *Swarm) CompleteTask(taskID string, result any) error {
	return s.finishTask(taskID, swarm.TaskCompleted, result, swarm.EventTaskCompleted)
}

// FailTask moves a task to its terminal failed state and stores the error text.
func (s *Swarm) FailTask(taskID string, errText string) error {
	return s.finishTask(taskID, swarm.TaskFailed, errText, swarm.EventTaskFailed)
}

// finishTask is valid from any non-terminal status: a task may fail before
// it was ever assigned.
func (s *Swarm) finishTask(taskID string, status swarm.TaskStatus, result any, ev swarm.EventType) error {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("finish task %s: %w", taskID, swarm.ErrTaskNotFound)
	}
	if t.Status.IsTerminal() {
		s.mu.Unlock()
		return fmt.Errorf("finish task %s: %w", taskID, swarm.ErrTaskTerminal)
	}
	t.Status = status
	t.Result = result
	t.UpdatedAt = time.Now().UTC()
	snapshot := *t
	s.mu.Unlock()

	slog.Info("task finished", "task_id", taskID, "status", status)
	s.emit(swarm.Event{Type: ev, Task: &snapshot, Timestamp: snapshot.UpdatedAt})
	return nil
}

// Task returns a snapshot of the task with the given id.
func (s *Swarm) Task(id string) (swarm.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return swarm.Task{}, false
	}
	return *t, true
}

// Tasks returns a snapshot of all tasks in the registry.
func (s *Swarm) Tasks() []swarm.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]swarm.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}

// Messages returns a snapshot of the append-only message log. The log is
// unbounded within the process lifetime; callers wanting retention caps
// must apply them on their side.
func (s *Swarm) Messages() []swarm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]swarm.Message, len(s.log))
	copy(out, s.log)
	return out
}

// SubscribeEvents registers a handler for all coordinator lifecycle events.
// The returned function cancels the subscription.
func (s *Swarm) SubscribeEvents(fn func(swarm.Event)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.eventSub[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.eventSub, id)
		s.mu.Unlock()
	}
}

// SubscribeMessages registers a handler for messages delivered to agentID.
func (s *Swarm) SubscribeMessages(agentID string, fn func(swarm.Message)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.msgSub[agentID] == nil {
		s.msgSub[agentID] = make(map[int]func(swarm.Message))
	}
	s.msgSub[agentID][id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.msgSub[agentID], id)
		s.mu.Unlock()
	}
}

// SubscribeTasks registers a handler for task assignments to agentID.
func (s *Swarm) SubscribeTasks(agentID string, fn func(swarm.Task)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.taskSub[agentID] == nil {
		s.taskSub[agentID] = make(map[int]func(swarm.Task))
	}
	s.taskSub[agentID][id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.taskSub[agentID], id)
		s.mu.Unlock()
	}
}

// emit notifies event subscribers and the optional mirrors. Notification
// goes through the dispatch queue so subscribers may call back into the
// Swarm without recursing.
func (s *Swarm) emit(ev swarm.Event) {
	s.mu.Lock()
	handlers := make([]func(swarm.Event), 0, len(s.eventSub))
	for _, fn := range s.eventSub {
		handlers = append(handlers, fn)
	}
	s.mu.Unlock()

	for _, fn := range handlers {
		fn := fn
		s.dispatch(func() { fn(ev) })
	}
	s.dispatch(func() { s.mirror(ev) })
}

// mirror forwards an event to the WebSocket hub and the message queue.
// Mirror failures are logged, never surfaced to the caller.
func (s *Swarm) mirror(ev swarm.Event) {
	ctx := context.Background()
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, string(ev.Type), ev)
	}
	if s.queue != nil {
		data, err := json.Marshal(ev)
		if err != nil {
			slog.Error("marshal swarm event", "error", err)
			return
		}
		if err := s.queue.Publish(ctx, messagequeue.SubjectSwarmEvents, data); err != nil {
			slog.Warn("mirror swarm event to queue", "type", ev.Type, "error", err)
		}
	}
}

// dispatch enqueues fn and drains the queue unless a drain is already in
// progress higher up the call stack. Handlers that publish again therefore
// extend the current drain instead of growing the stack.
func (s *Swarm) dispatch(fn func()) {
	s.dispatchMu.Lock()
	s.pending = append(s.pending, fn)
	if s.dispatching {
		s.dispatchMu.Unlock()
		return
	}
	s.dispatching = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.dispatchMu.Unlock()
		next()
		s.dispatchMu.Lock()
	}
	s.dispatching = false
	s.dispatchMu.Unlock()
}
