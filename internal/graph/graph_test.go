package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/legalyze/internal/model"
)

type fakeRunner struct {
	batches [][]Statement
	err     error
	closed  bool
}

func (f *fakeRunner) ExecuteWrite(_ context.Context, statements []Statement) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, statements)
	return nil
}

func (f *fakeRunner) Close(context.Context) error {
	f.closed = true
	return nil
}

func testReport() *model.Report {
	return &model.Report{
		ID: "run-1",
		Document: model.DocumentMeta{
			Name:       "lease",
			Source:     "contracts/lease.pdf",
			AnalyzedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		},
		Risk: model.RiskResult{
			TotalScore: 52,
			Records: []model.ClauseRisk{
				{Excerpt: "Penalty for breach.", ClauseScore: 20, Matches: []model.RiskMatch{
					{Term: "penalty", Category: model.TierHigh, Weight: 10},
					{Term: "breach", Category: model.TierHigh, Weight: 10},
				}},
				{Excerpt: "Lawsuit and litigation costs.", ClauseScore: 32, Matches: []model.RiskMatch{
					{Term: "lawsuit", Category: model.TierHigh, Weight: 10},
					{Term: "litigation", Category: model.TierHigh, Weight: 9},
					{Term: "damages", Category: model.TierHigh, Weight: 8},
					{Term: "notice", Category: model.TierLow, Weight: 5},
				}},
			},
		},
	}
}

func TestStatements(t *testing.T) {
	stmts := Statements(testReport())

	require.Len(t, stmts, 3)
	assert.Equal(t, clearRisksCypher, stmts[0].Cypher)
	assert.Equal(t, map[string]any{"source": "contracts/lease.pdf"}, stmts[0].Params)

	doc := stmts[1].Params
	assert.Equal(t, "contracts/lease.pdf", doc["source"])
	assert.Equal(t, "lease", doc["id"])
	assert.Equal(t, 52, doc["risk_score"])
	assert.Equal(t, "run-1", doc["analysis_id"])
	assert.NotContains(t, doc, "risk_level", "the level is derived from the score, never stored")
	assert.NotContains(t, stmts[1].Cypher, "risk_level")

	assert.Equal(t, "contracts/lease.pdf", stmts[2].Params["source"])

	risks, ok := stmts[2].Params["risks"].([]any)
	require.True(t, ok)
	require.Len(t, risks, 2)
	assert.Equal(t, map[string]any{
		"text":     "Penalty for breach.",
		"score":    20,
		"terms":    []string{"penalty", "breach"},
		"position": 0,
	}, risks[0])
}

func TestStatements_NoRecords(t *testing.T) {
	r := testReport()
	r.Risk = model.RiskResult{TotalScore: 0, Records: []model.ClauseRisk{}}

	stmts := Statements(r)

	require.Len(t, stmts, 2)
	assert.Equal(t, 0, stmts[1].Params["risk_score"])
	assert.NotContains(t, stmts[1].Params, "risk_level")
}

func TestStatements_SameNameDifferentSource(t *testing.T) {
	a := testReport()
	b := testReport()
	b.Document.Source = "archive/2025/lease.pdf"

	keyA := Statements(a)[1].Params["source"]
	keyB := Statements(b)[1].Params["source"]

	assert.Equal(t, Statements(a)[1].Params["id"], Statements(b)[1].Params["id"])
	assert.NotEqual(t, keyA, keyB, "documents sharing a name must not share a node")
	assert.Equal(t, keyB, Statements(b)[0].Params["source"], "only the matching document's risks are cleared")
}

func TestStore_Save(t *testing.T) {
	runner := &fakeRunner{}
	store := NewStore(runner)

	require.NoError(t, store.Save(context.Background(), testReport()))

	require.Len(t, runner.batches, 1, "all statements run in one transaction")
	assert.Len(t, runner.batches[0], 3)
	assert.Equal(t, "neo4j", store.Name())
}

func TestStore_SaveError(t *testing.T) {
	store := NewStore(&fakeRunner{err: errors.New("connection refused")})

	err := store.Save(context.Background(), testReport())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "write graph for lease")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStore_Close(t *testing.T) {
	runner := &fakeRunner{}
	require.NoError(t, NewStore(runner).Close(context.Background()))
	assert.True(t, runner.closed)
}
