package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/voltaic-labs/chainswarm/internal/adapter/chromem"
	"github.com/voltaic-labs/chainswarm/internal/adapter/postgres"
	"github.com/voltaic-labs/chainswarm/internal/config"
	"github.com/voltaic-labs/chainswarm/internal/port/vector"
	"github.com/voltaic-labs/chainswarm/internal/service"
)

// runAdmin dispatches admin subcommands (list-agents, seed-knowledge, migrate-status).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "list-agents":
		return runAdminListAgents(args[1:])
	case "seed-knowledge":
		return runAdminSeedKnowledge(args[1:])
	case "migrate-status":
		return runAdminMigrateStatus(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: chainswarm admin <command> [options]

Commands:
  list-agents      List all persisted agents
  seed-knowledge   Index playbook documents from a JSON file
  migrate-status   Show the current database migration version
  help             Show this help message

Examples:
  chainswarm admin list-agents
  chainswarm admin seed-knowledge --file playbooks.json
  chainswarm admin migrate-status
`)
}

func runAdminListAgents(args []string) error {
	fs := flag.NewFlagSet("list-agents", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	agents, err := postgres.NewStore(pool).ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}

	if len(agents) == 0 {
		fmt.Println("No agents found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tNAME\tOBJECTIVES")
	for i := range agents {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			agents[i].ID, agents[i].Type, agents[i].Name, len(agents[i].Objectives))
	}
	return w.Flush()
}

func runAdminSeedKnowledge(args []string) error {
	fs := flag.NewFlagSet("seed-knowledge", flag.ContinueOnError)
	file := fs.String("file", "", "JSON file with an array of documents (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}
	var docs []vector.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("%s contains no documents", *file)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Knowledge.PersistPath == "" {
		return fmt.Errorf("knowledge.persist_path must be set to seed a durable index")
	}

	index, err := chromem.New(cfg.Knowledge)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}

	knowledge := service.NewKnowledge(index, cfg.Knowledge.TopK)
	if err := knowledge.Seed(context.Background(), docs); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Indexed %d documents (total %d)\n", len(docs), index.Count())
	return nil
}

func runAdminMigrateStatus(args []string) error {
	fs := flag.NewFlagSet("migrate-status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	version, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}

	fmt.Printf("Current migration version: %d\n", version)
	return nil
}
