package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	csotel "github.com/voltaic-labs/chainswarm/internal/adapter/otel"
	"github.com/voltaic-labs/chainswarm/internal/adapter/ws"
	"github.com/voltaic-labs/chainswarm/internal/domain/agent"
	"github.com/voltaic-labs/chainswarm/internal/domain/swarm"
	"github.com/voltaic-labs/chainswarm/internal/port/chain"
	"github.com/voltaic-labs/chainswarm/internal/port/database"
	"github.com/voltaic-labs/chainswarm/internal/port/risk"
	"github.com/voltaic-labs/chainswarm/internal/port/vector"
	"github.com/voltaic-labs/chainswarm/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Swarm     *service.Swarm
	Executor  *service.Executor
	Factory   *service.Factory
	Store     database.Store
	Chain     chain.Client // nil when no RPC endpoint is configured
	Validator risk.Validator
	Knowledge *service.Knowledge
	Hub       *ws.Hub
	Metrics   *csotel.Metrics // nil when telemetry is disabled
}

// --- Agents ---

type createAgentRequest struct {
	Type string `json:"type"`
	service.CreateConfig
}

// CreateAgent handles POST /api/v1/agents
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createAgentRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Type, "type") || !requireField(w, req.Name, "name") {
		return
	}
	if req.ID == "" {
		req.ID = req.Type + "-" + uuid.NewString()[:8]
	}

	a, err := h.Factory.Create(agent.Type(req.Type), req.CreateConfig)
	if err != nil {
		if errors.Is(err, agent.ErrUnknownType) {
			writeError(w, http.StatusBadRequest, "unknown agent type "+req.Type)
			return
		}
		writeInternalError(w, err)
		return
	}

	if err := h.Executor.AddAgent(r.Context(), a); err != nil {
		writeDomainError(w, err, "agent registration failed")
		return
	}

	cfg := a.Config()
	if err := h.Store.SaveAgent(r.Context(), cfg); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

// ListAgents handles GET /api/v1/agents
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Store.ListAgents(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if configs == nil {
		configs = []agent.Config{}
	}
	writeJSON(w, http.StatusOK, configs)
}

// GetAgent handles GET /api/v1/agents/{id}
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GetAgent(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// DeleteAgent handles DELETE /api/v1/agents/{id}
func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	h.Executor.RemoveAgent(id)
	if err := h.Store.DeleteAgent(r.Context(), id); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type promptRequest struct {
	Prompt       string             `json:"prompt"`
	Context      map[string]any     `json:"context,omitempty"`
	Transactions []risk.Transaction `json:"transactions,omitempty"`
}

// PromptAgent handles POST /api/v1/agents/{id}/prompt. It runs the decision
// pipeline synchronously and returns the full response.
func (h *Handlers) PromptAgent(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[promptRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Prompt, "prompt") {
		return
	}

	a, found := h.Executor.Agent(id)
	if !found {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	promptCtx := req.Context
	if h.Knowledge != nil {
		promptCtx = h.Knowledge.EnrichContext(r.Context(), req.Prompt, promptCtx)
	}

	resp, err := a.ProcessPrompt(r.Context(), req.Prompt, &service.ProcessOptions{
		Context:      promptCtx,
		Transactions: req.Transactions,
	})
	if err != nil {
		writeInternalError(w, err)
		return
	}

	if _, err := h.Store.SaveResponse(r.Context(), resp); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAgentResponses handles GET /api/v1/agents/{id}/responses
func (h *Handlers) ListAgentResponses(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	responses, err := h.Store.ListResponses(r.Context(), urlParam(r, "id"), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if responses == nil {
		responses = []agent.Response{}
	}
	writeJSON(w, http.StatusOK, responses)
}

// --- Swarm ---

// ListSwarmAgents handles GET /api/v1/swarm/agents
func (h *Handlers) ListSwarmAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Swarm.ActiveAgents())
}

// ListMessages handles GET /api/v1/swarm/messages
func (h *Handlers) ListMessages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Swarm.Messages())
}

type sendMessageRequest struct {
	From          string          `json:"from"`
	To            string          `json:"to"`
	Scope         string          `json:"scope,omitempty"`
	Role          string          `json:"role,omitempty"`
	Type          string          `json:"type"`
	Content       any             `json:"content"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// SendMessage handles POST /api/v1/swarm/messages
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sendMessageRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.From, "from") || !requireField(w, req.To, "to") {
		return
	}

	msg := h.Swarm.SendMessage(swarm.Message{
		From:          req.From,
		To:            req.To,
		Scope:         swarm.Scope(req.Scope),
		Role:          req.Role,
		Type:          swarm.MessageType(req.Type),
		Content:       req.Content,
		CorrelationID: req.CorrelationID,
	})
	writeJSON(w, http.StatusAccepted, msg)
}

// --- Tasks ---

type createTaskRequest struct {
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
}

// CreateTask handles POST /api/v1/tasks
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createTaskRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Description, "description") {
		return
	}
	priority := swarm.PriorityMedium
	if req.Priority != "" {
		if !swarm.ValidPriority(req.Priority) {
			writeError(w, http.StatusBadRequest, "unknown priority "+req.Priority)
			return
		}
		priority = swarm.TaskPriority(req.Priority)
	}

	t := h.Swarm.CreateTask(req.Description, priority)
	if h.Metrics != nil {
		h.Metrics.TasksCreated.Add(r.Context(), 1)
	}
	if err := h.Store.UpsertTask(r.Context(), &t); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTasks handles GET /api/v1/tasks
func (h *Handlers) ListTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Swarm.Tasks())
}

// GetTask handles GET /api/v1/tasks/{id}
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if t, found := h.Swarm.Task(id); found {
		writeJSON(w, http.StatusOK, t)
		return
	}
	// fall back to the durable mirror for tasks from earlier runs
	t, err := h.Store.GetTask(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type dispatchTaskRequest struct {
	AgentID      string             `json:"agent_id"`
	Context      map[string]any     `json:"context,omitempty"`
	Transactions []risk.Transaction `json:"transactions,omitempty"`
}

// DispatchTask handles POST /api/v1/tasks/{id}/dispatch. It assigns the task
// and queues it for asynchronous execution by the assigned agent.
func (h *Handlers) DispatchTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[dispatchTaskRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.AgentID, "agent_id") {
		return
	}

	taskID := urlParam(r, "id")
	if err := h.Executor.Dispatch(r.Context(), taskID, req.AgentID, req.Context, req.Transactions); err != nil {
		writeDomainError(w, err, "task or agent not found")
		return
	}

	t, _ := h.Swarm.Task(taskID)
	writeJSON(w, http.StatusAccepted, t)
}

// --- Risk ---

// ValidateTransaction handles POST /api/v1/risk/validate
func (h *Handlers) ValidateTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := readJSON[risk.Transaction](w, r)
	if !ok {
		return
	}
	if !requireField(w, tx.Kind, "kind") {
		return
	}

	v, err := h.Validator.ValidateTransaction(r.Context(), tx)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// --- Chain ---

// ChainSnapshot handles GET /api/v1/chain/snapshot
func (h *Handlers) ChainSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.Chain == nil {
		writeError(w, http.StatusServiceUnavailable, "no chain endpoint configured")
		return
	}
	snap, err := h.Chain.Snapshot(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ChainBalance handles GET /api/v1/chain/balance/{address}
func (h *Handlers) ChainBalance(w http.ResponseWriter, r *http.Request) {
	if h.Chain == nil {
		writeError(w, http.StatusServiceUnavailable, "no chain endpoint configured")
		return
	}
	address := urlParam(r, "address")
	bal, err := h.Chain.BalanceAt(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address":     address,
		"balance_wei": bal.String(),
	})
}

// --- Knowledge ---

type seedKnowledgeRequest struct {
	Documents []vector.Document `json:"documents"`
}

// SeedKnowledge handles POST /api/v1/knowledge/documents
func (h *Handlers) SeedKnowledge(w http.ResponseWriter, r *http.Request) {
	if h.Knowledge == nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge index not configured")
		return
	}
	req, ok := readJSON[seedKnowledgeRequest](w, r)
	if !ok {
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "documents are required")
		return
	}
	for i, doc := range req.Documents {
		if doc.ID == "" || doc.Content == "" {
			writeError(w, http.StatusBadRequest, "document "+strconv.Itoa(i)+" needs id and content")
			return
		}
	}

	if err := h.Knowledge.Seed(r.Context(), req.Documents); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"indexed": len(req.Documents)})
}

// SearchKnowledge handles GET /api/v1/knowledge/search?q=...
func (h *Handlers) SearchKnowledge(w http.ResponseWriter, r *http.Request) {
	if h.Knowledge == nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge index not configured")
		return
	}
	query := r.URL.Query().Get("q")
	if !requireField(w, query, "q") {
		return
	}

	results, err := h.Knowledge.Search(r.Context(), query)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if results == nil {
		results = []vector.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

// --- Health ---

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"agents":      len(h.Swarm.ActiveAgents()),
		"connections": h.Hub.ConnectionCount(),
	})
}
