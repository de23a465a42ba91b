package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/voltaic-labs/chainswarm/internal/domain/agent"
	"github.com/voltaic-labs/chainswarm/internal/domain/swarm"
	"github.com/voltaic-labs/chainswarm/internal/port/messagequeue"
	"github.com/voltaic-labs/chainswarm/internal/port/risk"
)

// memQueue is an in-process queue that delivers published messages to
// subscribers synchronously.
type memQueue struct {
	mu       sync.Mutex
	handlers map[string][]messagequeue.Handler
	published map[string][][]byte
}

func newMemQueue() *memQueue {
	return &memQueue{
		handlers:  make(map[string][]messagequeue.Handler),
		published: make(map[string][][]byte),
	}
}

func (q *memQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	q.published[subject] = append(q.published[subject], data)
	handlers := append([]messagequeue.Handler(nil), q.handlers[subject]...)
	q.mu.Unlock()
	for _, h := range handlers {
		if err := h(subject, data); err != nil {
			return err
		}
	}
	return nil
}

func (q *memQueue) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	q.handlers[subject] = append(q.handlers[subject], handler)
	q.mu.Unlock()
	return func() {}, nil
}

func (q *memQueue) Close() error { return nil }

func (q *memQueue) messages(subject string) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([][]byte(nil), q.published[subject]...)
}

// memStore is an in-memory database.Store.
type memStore struct {
	mu        sync.Mutex
	agents    map[string]agent.Config
	responses []agent.Response
	tasks     map[string]swarm.Task
}

func newMemStore() *memStore {
	return &memStore{
		agents: make(map[string]agent.Config),
		tasks:  make(map[string]swarm.Task),
	}
}

func (s *memStore) SaveAgent(_ context.Context, cfg agent.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[cfg.ID] = cfg
	return nil
}

func (s *memStore) GetAgent(_ context.Context, id string) (*agent.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.agents[id]
	if !ok {
		return nil, swarm.ErrAgentNotFound
	}
	return &cfg, nil
}

func (s *memStore) ListAgents(_ context.Context) ([]agent.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agent.Config, 0, len(s.agents))
	for _, cfg := range s.agents {
		out = append(out, cfg)
	}
	return out, nil
}

func (s *memStore) DeleteAgent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, id)
	return nil
}

func (s *memStore) SaveResponse(_ context.Context, resp *agent.Response) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, *resp)
	return "resp-1", nil
}

func (s *memStore) ListResponses(_ context.Context, agentID string, _ int) ([]agent.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []agent.Response
	for _, r := range s.responses {
		if r.AgentID == agentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) UpsertTask(_ context.Context, t *swarm.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = *t
	return nil
}

func (s *memStore) GetTask(_ context.Context, id string) (*swarm.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, swarm.ErrTaskNotFound
	}
	return &t, nil
}

func (s *memStore) ListTasks(_ context.Context, _ int) ([]swarm.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]swarm.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

func newTestExecutor(t *testing.T, validator risk.Validator, gateThreshold float64) (*Executor, *Swarm, *memStore, *memQueue) {
	t.Helper()
	sw := NewSwarm(0)
	store := newMemStore()
	queue := newMemQueue()
	e := NewExecutor(sw, store, queue, nil, nil, gateThreshold)

	a := NewAgent(testConfig(), echoDecider("looks fine, proceeding"), validator)
	if err := e.AddAgent(context.Background(), a); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return e, sw, store, queue
}

func TestExecutorDispatchCompletesTask(t *testing.T) {
	e, sw, store, queue := newTestExecutor(t, &stubValidator{}, 70)

	task := sw.CreateTask("rebalance the treasury", swarm.PriorityHigh)
	if err := e.Dispatch(context.Background(), task.ID, "t-1", map[string]any{"chain": "mainnet"}, nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	e.Stop()

	got, _ := sw.Task(task.ID)
	if got.Status != swarm.TaskCompleted {
		t.Fatalf("expected completed task, got %s", got.Status)
	}
	if len(store.responses) != 1 || store.responses[0].AgentID != "t-1" {
		t.Fatalf("expected one persisted response for t-1, got %v", store.responses)
	}
	if mirrored, err := store.GetTask(context.Background(), task.ID); err != nil || mirrored.Status != swarm.TaskCompleted {
		t.Fatalf("expected mirrored completed task, got %v (%v)", mirrored, err)
	}

	results := queue.messages(messagequeue.SubjectTaskResult)
	if len(results) != 1 {
		t.Fatalf("expected one result message, got %d", len(results))
	}
	var result messagequeue.TaskResultPayload
	if err := json.Unmarshal(results[0], &result); err != nil {
		t.Fatal(err)
	}
	if result.Status != string(swarm.TaskCompleted) || result.TaskID != task.ID {
		t.Fatalf("unexpected result payload %+v", result)
	}
}

func TestExecutorGateRejectsRiskyResponse(t *testing.T) {
	validator := &stubValidator{verdicts: map[string]risk.Validation{
		"tx1": {Valid: false, RiskScore: 90, Warnings: []string{"ceiling breach"}},
	}}
	e, sw, _, queue := newTestExecutor(t, validator, 70)

	task := sw.CreateTask("drain the treasury", swarm.PriorityCritical)
	err := e.Dispatch(context.Background(), task.ID, "t-1", nil, []risk.Transaction{{ID: "tx1", Kind: "transfer"}})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	e.Stop()

	got, _ := sw.Task(task.ID)
	if got.Status != swarm.TaskFailed {
		t.Fatalf("expected failed task, got %s", got.Status)
	}
	reason, _ := got.Result.(string)
	if !strings.Contains(reason, "gate threshold") {
		t.Fatalf("expected gate threshold reason, got %v", got.Result)
	}

	results := queue.messages(messagequeue.SubjectTaskResult)
	if len(results) != 1 {
		t.Fatalf("expected one result message, got %d", len(results))
	}
	var result messagequeue.TaskResultPayload
	if err := json.Unmarshal(results[0], &result); err != nil {
		t.Fatal(err)
	}
	if result.Status != string(swarm.TaskFailed) || result.Error == "" {
		t.Fatalf("unexpected result payload %+v", result)
	}
}

func TestExecutorDispatchUnknownAgentFailsTask(t *testing.T) {
	e, sw, _, _ := newTestExecutor(t, &stubValidator{}, 70)

	// registered in the swarm but unknown to the executor
	if err := sw.RegisterAgent("ghost", "defi"); err != nil {
		t.Fatal(err)
	}
	task := sw.CreateTask("audit", swarm.PriorityLow)
	if err := e.Dispatch(context.Background(), task.ID, "ghost", nil, nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	e.Stop()

	got, _ := sw.Task(task.ID)
	if got.Status != swarm.TaskFailed {
		t.Fatalf("expected failed task, got %s", got.Status)
	}
}

func TestExecutorDispatchAssignErrors(t *testing.T) {
	e, sw, _, queue := newTestExecutor(t, &stubValidator{}, 70)

	if err := e.Dispatch(context.Background(), "missing", "t-1", nil, nil); err == nil {
		t.Fatal("expected error for unknown task")
	}
	task := sw.CreateTask("audit", swarm.PriorityLow)
	if err := e.Dispatch(context.Background(), task.ID, "nobody", nil, nil); err == nil {
		t.Fatal("expected error for unknown agent")
	}
	e.Stop()

	if len(queue.messages(messagequeue.SubjectTaskDispatch)) != 0 {
		t.Error("failed assignment must not publish a dispatch message")
	}
}

func TestExecutorRemoveAgent(t *testing.T) {
	e, sw, _, _ := newTestExecutor(t, &stubValidator{}, 70)

	e.RemoveAgent("t-1")
	if _, ok := e.Agent("t-1"); ok {
		t.Fatal("agent must be gone from the registry")
	}
	if _, ok := sw.AgentStatus("t-1"); ok {
		t.Fatal("agent must be detached from the swarm")
	}
	e.Stop()
}
