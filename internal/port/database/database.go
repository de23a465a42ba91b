// Package database defines the persistence port (interface). Storage is
// glue around the coordination core: it records agent configurations, the
// responses agents produce, and a durable mirror of swarm tasks. The core
// never reads its own state back from here.
package database

import (
	"context"

	"github.com/voltaic-labs/chainswarm/internal/domain/agent"
	"github.com/voltaic-labs/chainswarm/internal/domain/swarm"
)

// Store is the port interface for durable storage.
type Store interface {
	// Agents
	SaveAgent(ctx context.Context, cfg agent.Config) error
	GetAgent(ctx context.Context, id string) (*agent.Config, error)
	ListAgents(ctx context.Context) ([]agent.Config, error)
	DeleteAgent(ctx context.Context, id string) error

	// Responses
	SaveResponse(ctx context.Context, resp *agent.Response) (id string, err error)
	ListResponses(ctx context.Context, agentID string, limit int) ([]agent.Response, error)

	// Task mirror
	UpsertTask(ctx context.Context, t *swarm.Task) error
	GetTask(ctx context.Context, id string) (*swarm.Task, error)
	ListTasks(ctx context.Context, limit int) ([]swarm.Task, error)
}
