// Package graph persists analysis results to Neo4j as
// (:Document)-[:HAS_RISK]->(:Risk) subgraphs.
package graph

import (
	"context"
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ppiankov/legalyze/internal/model"
)

// Statement is one parameterised Cypher query
type Statement struct {
	Cypher string
	Params map[string]any
}

// Runner executes statements inside a single write transaction
type Runner interface {
	ExecuteWrite(ctx context.Context, statements []Statement) error
	Close(ctx context.Context) error
}

const (
	schemaCypher = `CREATE CONSTRAINT document_source IF NOT EXISTS FOR (d:Document) REQUIRE d.source IS UNIQUE`

	clearRisksCypher = `MATCH (:Document {source: $source})-[:HAS_RISK]->(r:Risk) DETACH DELETE r`

	documentCypher = `MERGE (d:Document {source: $source})
SET d.id = $id,
    d.risk_score = $risk_score,
    d.analyzed_at = $analyzed_at,
    d.analysis_id = $analysis_id`

	risksCypher = `MATCH (d:Document {source: $source})
UNWIND $risks AS risk
CREATE (r:Risk {text: risk.text, score: risk.score, terms: risk.terms, position: risk.position})
CREATE (d)-[:HAS_RISK]->(r)`
)

// Store writes reports to the graph
type Store struct {
	runner Runner
}

// NewStore creates a store over an existing runner
func NewStore(runner Runner) *Store {
	return &Store{runner: runner}
}

// Open connects to Neo4j, verifies connectivity and ensures the schema.
// An empty password falls back to NEO4J_PASSWORD.
func Open(ctx context.Context, cfg model.Neo4jConfig) (*Store, error) {
	password := cfg.Password
	if password == "" {
		password = os.Getenv("NEO4J_PASSWORD")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j %s: %w", cfg.URI, err)
	}

	store := NewStore(&driverRunner{driver: driver, database: cfg.Database})
	if err := store.runner.ExecuteWrite(ctx, []Statement{{Cypher: schemaCypher}}); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("ensure neo4j schema: %w", err)
	}
	return store, nil
}

// Name identifies the store in logs and warnings
func (s *Store) Name() string {
	return "neo4j"
}

// Save replaces the document's risk subgraph in one transaction
func (s *Store) Save(ctx context.Context, r *model.Report) error {
	if err := s.runner.ExecuteWrite(ctx, Statements(r)); err != nil {
		return fmt.Errorf("write graph for %s: %w", r.Document.Name, err)
	}
	return nil
}

// Close releases the underlying driver
func (s *Store) Close(ctx context.Context) error {
	return s.runner.Close(ctx)
}

// Statements builds the Cypher needed to persist r. The document node is keyed
// by source path or URL, so re-analysing a file replaces its risks while two
// files sharing a name stay separate. The risk level is derived from
// risk_score on read and never stored.
func Statements(r *model.Report) []Statement {
	source := r.Document.Source

	risks := make([]any, len(r.Risk.Records))
	for i, rec := range r.Risk.Records {
		terms := make([]string, len(rec.Matches))
		for j, m := range rec.Matches {
			terms[j] = m.Term
		}
		risks[i] = map[string]any{
			"text":     rec.Excerpt,
			"score":    rec.ClauseScore,
			"terms":    terms,
			"position": i,
		}
	}

	stmts := []Statement{
		{Cypher: clearRisksCypher, Params: map[string]any{"source": source}},
		{Cypher: documentCypher, Params: map[string]any{
			"source":      source,
			"id":          r.Document.Name,
			"risk_score":  r.Risk.TotalScore,
			"analyzed_at": r.Document.AnalyzedAt,
			"analysis_id": r.ID,
		}},
	}
	if len(risks) > 0 {
		stmts = append(stmts, Statement{Cypher: risksCypher, Params: map[string]any{"source": source, "risks": risks}})
	}
	return stmts
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (d *driverRunner) ExecuteWrite(ctx context.Context, statements []Statement) error {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: d.database,
	})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range statements {
			result, err := tx.Run(ctx, st.Cypher, st.Params)
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (d *driverRunner) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}
