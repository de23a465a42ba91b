package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	otelad "github.com/voltaic-labs/chainswarm/internal/adapter/otel"
	"github.com/voltaic-labs/chainswarm/internal/domain/swarm"
	"github.com/voltaic-labs/chainswarm/internal/port/database"
	"github.com/voltaic-labs/chainswarm/internal/port/messagequeue"
	"github.com/voltaic-labs/chainswarm/internal/port/risk"
)

const maxConcurrentTasks = 8

// Executor drains the task dispatch subject: it runs the assigned agent's
// decision pipeline, gates the response on aggregate risk, persists the
// outcome and reports it back to the swarm and the result subject.
type Executor struct {
	sw        *Swarm
	store     database.Store
	queue     messagequeue.Queue
	knowledge *Knowledge    // nil disables prompt enrichment
	metrics   *otelad.Metrics // nil disables instrument updates

	gateThreshold float64

	mu     sync.RWMutex
	agents map[string]*Agent

	group       *errgroup.Group
	unsubscribe func()
}

// NewExecutor creates an executor. knowledge and metrics may be nil.
func NewExecutor(sw *Swarm, store database.Store, queue messagequeue.Queue, knowledge *Knowledge, metrics *otelad.Metrics, gateThreshold float64) *Executor {
	return &Executor{
		sw:            sw,
		store:         store,
		queue:         queue,
		knowledge:     knowledge,
		metrics:       metrics,
		gateThreshold: gateThreshold,
		agents:        make(map[string]*Agent),
	}
}

// AddAgent attaches the agent to the swarm and makes it addressable by
// dispatched tasks.
func (e *Executor) AddAgent(ctx context.Context, a *Agent) error {
	if err := a.AttachSwarm(ctx, e.sw); err != nil {
		return err
	}
	e.mu.Lock()
	e.agents[a.Config().ID] = a
	e.mu.Unlock()
	return nil
}

// RemoveAgent detaches the agent from the swarm and drops it from the registry.
func (e *Executor) RemoveAgent(id string) {
	e.mu.Lock()
	a, ok := e.agents[id]
	delete(e.agents, id)
	e.mu.Unlock()
	if ok {
		a.DetachSwarm()
	}
}

// Agent returns the registered agent with the given id.
func (e *Executor) Agent(id string) (*Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.agents[id]
	return a, ok
}

// Dispatch assigns the task in the swarm and publishes the work order to the
// dispatch subject for asynchronous execution.
func (e *Executor) Dispatch(ctx context.Context, taskID, agentID string, promptCtx map[string]any, txs []risk.Transaction) error {
	if err := e.sw.AssignTask(taskID, agentID); err != nil {
		return err
	}

	t, ok := e.sw.Task(taskID)
	if !ok {
		return swarm.ErrTaskNotFound
	}

	payload, err := json.Marshal(messagequeue.TaskDispatchPayload{
		TaskID:       t.ID,
		AgentID:      agentID,
		Description:  t.Description,
		Priority:     string(t.Priority),
		Context:      promptCtx,
		Transactions: txs,
	})
	if err != nil {
		return fmt.Errorf("marshal dispatch: %w", err)
	}
	return e.queue.Publish(ctx, messagequeue.SubjectTaskDispatch, payload)
}

// Start subscribes to the dispatch subject. Work items run concurrently up
// to maxConcurrentTasks; Stop waits for in-flight tasks.
func (e *Executor) Start(ctx context.Context) error {
	e.group, _ = errgroup.WithContext(ctx)
	e.group.SetLimit(maxConcurrentTasks)

	cancel, err := e.queue.Subscribe(ctx, messagequeue.SubjectTaskDispatch, func(_ string, data []byte) error {
		var payload messagequeue.TaskDispatchPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("unmarshal dispatch: %w", err)
		}
		e.group.Go(func() error {
			e.execute(ctx, payload)
			return nil
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe dispatch: %w", err)
	}
	e.unsubscribe = cancel
	slog.Info("executor started", "subject", messagequeue.SubjectTaskDispatch, "gate_threshold", e.gateThreshold)
	return nil
}

// Stop unsubscribes and waits for in-flight tasks to finish.
func (e *Executor) Stop() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	if e.group != nil {
		_ = e.group.Wait()
	}
}

func (e *Executor) execute(ctx context.Context, payload messagequeue.TaskDispatchPayload) {
	started := time.Now()
	ctx, span := otelad.StartTaskSpan(ctx, payload.TaskID, payload.AgentID)
	defer span.End()

	a, ok := e.Agent(payload.AgentID)
	if !ok {
		e.fail(ctx, payload, started, fmt.Sprintf("agent %s is not registered with the executor", payload.AgentID))
		return
	}

	_ = e.sw.SetAgentStatus(payload.AgentID, swarm.StatusBusy)
	defer func() { _ = e.sw.SetAgentStatus(payload.AgentID, swarm.StatusActive) }()

	promptCtx := payload.Context
	if e.knowledge != nil {
		promptCtx = e.knowledge.EnrichContext(ctx, payload.Description, promptCtx)
	}

	promptCtxSpan, promptSpan := otelad.StartPromptSpan(ctx, payload.AgentID, string(a.Config().Type))
	resp, err := a.ProcessPrompt(promptCtxSpan, payload.Description, &ProcessOptions{
		Context:      promptCtx,
		Transactions: payload.Transactions,
	})
	promptSpan.End()
	if err != nil {
		e.fail(ctx, payload, started, err.Error())
		return
	}

	if e.metrics != nil {
		e.metrics.PromptDuration.Record(ctx, time.Since(started).Seconds())
		e.metrics.RiskScore.Record(ctx, resp.Risk.AggregateScore)
	}

	if resp.Risk.AggregateScore > e.gateThreshold {
		if e.metrics != nil {
			e.metrics.TasksRejected.Add(ctx, 1)
		}
		e.fail(ctx, payload, started,
			fmt.Sprintf("aggregate risk %.1f exceeds gate threshold %.1f", resp.Risk.AggregateScore, e.gateThreshold))
		return
	}

	responseID, err := e.store.SaveResponse(ctx, resp)
	if err != nil {
		slog.Error("response persistence failed", "task_id", payload.TaskID, "error", err)
	}

	if err := e.sw.CompleteTask(payload.TaskID, resp); err != nil {
		slog.Error("task completion failed", "task_id", payload.TaskID, "error", err)
	}
	e.mirrorTask(ctx, payload.TaskID)

	if e.metrics != nil {
		e.metrics.TasksCompleted.Add(ctx, 1)
	}

	e.publishResult(ctx, messagequeue.TaskResultPayload{
		TaskID:         payload.TaskID,
		AgentID:        payload.AgentID,
		Status:         string(swarm.TaskCompleted),
		AggregateRisk:  resp.Risk.AggregateScore,
		ResponseID:     responseID,
		DurationMillis: time.Since(started).Milliseconds(),
	})

	slog.Info("task completed",
		"task_id", payload.TaskID, "agent_id", payload.AgentID,
		"aggregate_risk", resp.Risk.AggregateScore, "duration_ms", time.Since(started).Milliseconds())
}

func (e *Executor) fail(ctx context.Context, payload messagequeue.TaskDispatchPayload, started time.Time, reason string) {
	if err := e.sw.FailTask(payload.TaskID, reason); err != nil {
		slog.Error("task failure recording failed", "task_id", payload.TaskID, "error", err)
	}
	e.mirrorTask(ctx, payload.TaskID)

	if e.metrics != nil {
		e.metrics.TasksFailed.Add(ctx, 1)
	}

	e.publishResult(ctx, messagequeue.TaskResultPayload{
		TaskID:         payload.TaskID,
		AgentID:        payload.AgentID,
		Status:         string(swarm.TaskFailed),
		Error:          reason,
		DurationMillis: time.Since(started).Milliseconds(),
	})

	slog.Warn("task failed", "task_id", payload.TaskID, "agent_id", payload.AgentID, "reason", reason)
}

// mirrorTask writes the task's current state to durable storage.
func (e *Executor) mirrorTask(ctx context.Context, taskID string) {
	t, ok := e.sw.Task(taskID)
	if !ok {
		return
	}
	if err := e.store.UpsertTask(ctx, &t); err != nil {
		slog.Error("task mirror failed", "task_id", taskID, "error", err)
	}
}

func (e *Executor) publishResult(ctx context.Context, result messagequeue.TaskResultPayload) {
	data, err := json.Marshal(result)
	if err != nil {
		slog.Error("result marshal failed", "task_id", result.TaskID, "error", err)
		return
	}
	if err := e.queue.Publish(ctx, messagequeue.SubjectTaskResult, data); err != nil {
		slog.Error("result publish failed", "task_id", result.TaskID, "error", err)
	}
}
