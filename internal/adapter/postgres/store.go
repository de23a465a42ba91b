package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltaic-labs/chainswarm/internal/domain"
	"github.com/voltaic-labs/chainswarm/internal/domain/agent"
	"github.com/voltaic-labs/chainswarm/internal/domain/swarm"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Agents ---

func (s *Store) SaveAgent(ctx context.Context, cfg agent.Config) error {
	metaJSON, err := json.Marshal(cfg.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO agents (id, type, name, description, objectives, preamble, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   type = EXCLUDED.type,
		   name = EXCLUDED.name,
		   description = EXCLUDED.description,
		   objectives = EXCLUDED.objectives,
		   preamble = EXCLUDED.preamble,
		   metadata = EXCLUDED.metadata,
		   updated_at = now()`,
		cfg.ID, string(cfg.Type), cfg.Name, cfg.Description, pgTextArray(cfg.Objectives), cfg.PromptPreamble, metaJSON)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", cfg.ID, err)
	}
	return nil
}

func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Config, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, type, name, description, objectives, preamble, metadata
		 FROM agents WHERE id = $1`, id)

	cfg, err := scanAgentConfig(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get agent %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return &cfg, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]agent.Config, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, name, description, objectives, preamble, metadata
		 FROM agents ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var configs []agent.Config
	for rows.Next() {
		cfg, err := scanAgentConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agent %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete agent %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// --- Responses ---

func (s *Store) SaveResponse(ctx context.Context, resp *agent.Response) (string, error) {
	planJSON, err := json.Marshal(resp.Plan)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	riskJSON, err := json.Marshal(resp.Risk)
	if err != nil {
		return "", fmt.Errorf("marshal risk: %w", err)
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO agent_responses (agent_id, agent_type, reasoning, plan, risk, recommendations, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		resp.AgentID, string(resp.Type), resp.Reasoning, planJSON, riskJSON,
		pgTextArray(resp.Recommendations), resp.ProcessedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("save response for agent %s: %w", resp.AgentID, err)
	}
	return id, nil
}

func (s *Store) ListResponses(ctx context.Context, agentID string, limit int) ([]agent.Response, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT agent_id, agent_type, reasoning, plan, risk, recommendations, processed_at
		 FROM agent_responses WHERE agent_id = $1 ORDER BY processed_at DESC LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []agent.Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// --- Task mirror ---

func (s *Store) UpsertTask(ctx context.Context, t *swarm.Task) error {
	var resultJSON []byte
	if t.Result != nil {
		var err error
		resultJSON, err = json.Marshal(t.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, description, assigned_to, status, priority, result, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   assigned_to = EXCLUDED.assigned_to,
		   status = EXCLUDED.status,
		   priority = EXCLUDED.priority,
		   result = EXCLUDED.result,
		   updated_at = EXCLUDED.updated_at`,
		t.ID, t.Description, t.AssignedTo, string(t.Status), string(t.Priority), resultJSON, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert task %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*swarm.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, description, assigned_to, status, priority, result, created_at, updated_at
		 FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, limit int) ([]swarm.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, description, assigned_to, status, priority, result, created_at, updated_at
		 FROM tasks ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []swarm.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// --- Scanners ---

type scannable interface {
	Scan(dest ...any) error
}

func scanAgentConfig(row scannable) (agent.Config, error) {
	var cfg agent.Config
	var typ string
	var metaJSON []byte
	err := row.Scan(&cfg.ID, &typ, &cfg.Name, &cfg.Description, &cfg.Objectives, &cfg.PromptPreamble, &metaJSON)
	if err != nil {
		return cfg, err
	}
	cfg.Type = agent.Type(typ)
	if metaJSON != nil {
		if err := json.Unmarshal(metaJSON, &cfg.Metadata); err != nil {
			return cfg, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return cfg, nil
}

func scanResponse(row scannable) (agent.Response, error) {
	var r agent.Response
	var typ string
	var planJSON, riskJSON []byte
	err := row.Scan(&r.AgentID, &typ, &r.Reasoning, &planJSON, &riskJSON, &r.Recommendations, &r.ProcessedAt)
	if err != nil {
		return r, err
	}
	r.Type = agent.Type(typ)
	if planJSON != nil {
		if err := json.Unmarshal(planJSON, &r.Plan); err != nil {
			return r, fmt.Errorf("unmarshal plan: %w", err)
		}
	}
	if riskJSON != nil {
		if err := json.Unmarshal(riskJSON, &r.Risk); err != nil {
			return r, fmt.Errorf("unmarshal risk: %w", err)
		}
	}
	return r, nil
}

func scanTask(row scannable) (swarm.Task, error) {
	var t swarm.Task
	var status, priority string
	var resultJSON []byte
	err := row.Scan(&t.ID, &t.Description, &t.AssignedTo, &status, &priority, &resultJSON, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.Status = swarm.TaskStatus(status)
	t.Priority = swarm.TaskPriority(priority)
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &t.Result); err != nil {
			return t, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return t, nil
}

// pgTextArray converts a string slice to a pgx-compatible text array.
// nil slices become empty arrays to avoid SQL NULL.
func pgTextArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
