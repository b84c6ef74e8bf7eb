package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/legalyze/internal/history"
	"github.com/ppiankov/legalyze/internal/logging"
	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/score"
	"github.com/ppiankov/legalyze/internal/worker"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	configureViper(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LEGALYZE_LLM_SUMMARY_MODEL", "mistral-small-latest")
	t.Setenv("LEGALYZE_CONCURRENCY_WORKERS", "8")
	t.Setenv("LEGALYZE_HTTP_TIMEOUT", "30s")
	t.Setenv("LEGALYZE_PDF_EXPORT_FORMATS", "json,md")
	t.Setenv("LEGALYZE_NEO4J_ENABLED", "true")

	cfg, err := loadConfig(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, "mistral-small-latest", cfg.LLM.Summary.Model)
	assert.Equal(t, "mistral", cfg.LLM.Summary.Provider)
	assert.Equal(t, 8, cfg.Concurrency.Workers)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, []string{"json", "md"}, cfg.PDF.ExportFormats)
	assert.True(t, cfg.Neo4j.Enabled)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pdf:
  extraction_engine: native
  export_formats: [json]
llm:
  enabled: false
  insights:
    provider: openai
    model: gpt-4o-mini
history:
  dir: /tmp/legalyze-history
`), 0o644))

	v := newTestViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "native", cfg.PDF.ExtractionEngine)
	assert.Equal(t, []string{"json"}, cfg.PDF.ExportFormats)
	assert.False(t, cfg.LLM.Enabled)
	assert.Equal(t, "openai", cfg.LLM.Insights.Provider)
	assert.Equal(t, "mistral", cfg.LLM.Summary.Provider, "unset keys keep their defaults")
	assert.Equal(t, "/tmp/legalyze-history", cfg.History.Dir)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("LEGALYZE_LOG_LEVEL", "loud")

	_, err := loadConfig(newTestViper())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoadConfig_VerboseMeansDebug(t *testing.T) {
	v := newTestViper()
	v.Set("verbose", true)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestAnalysisFlags_Apply(t *testing.T) {
	cfg := model.DefaultConfig()
	f := analysisFlags{
		formats:      []string{" JSON", "md"},
		outputDir:    "reports",
		engine:       "native",
		noLLM:        true,
		clauseReview: true,
		noHistory:    true,
	}

	require.NoError(t, f.apply(cfg))
	assert.Equal(t, []string{"json", "md"}, cfg.PDF.ExportFormats)
	assert.Equal(t, "reports", cfg.Export.OutputDir)
	assert.Equal(t, "native", cfg.PDF.ExtractionEngine)
	assert.False(t, cfg.LLM.Enabled)
	assert.True(t, cfg.LLM.ClauseReview)
	assert.False(t, cfg.History.Enabled)

	bad := analysisFlags{formats: []string{"docx"}}
	assert.Error(t, bad.apply(model.DefaultConfig()))
}

func TestAnalysisFlags_ApplyNothing(t *testing.T) {
	cfg := model.DefaultConfig()
	require.NoError(t, (&analysisFlags{}).apply(cfg))
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadScorer(t *testing.T) {
	cfg := model.DefaultConfig()
	scorer, err := loadScorer(cfg)
	require.NoError(t, err)
	assert.Equal(t, score.DefaultLexicon().Len(), scorer.Lexicon().Len())

	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
high:
  forfeit: 12
`), 0o644))
	cfg.Risk.LexiconFile = path

	scorer, err = loadScorer(cfg)
	require.NoError(t, err)
	assert.Equal(t, 12, scorer.CalculateText("Deposits are forfeit.").TotalScore)

	cfg.Risk.LexiconFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = loadScorer(cfg)
	assert.Error(t, err)
}

func TestNewAnalyst(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")

	cfg := model.DefaultConfig()
	cfg.LLM.Enabled = false
	assert.Nil(t, newAnalyst(cfg, logging.Discard()))

	cfg.LLM.Enabled = true
	assert.Nil(t, newAnalyst(cfg, logging.Discard()), "no provider has a key")

	cfg.LLM.Summary.APIKey = "test-key"
	cfg.Cache.Dir = t.TempDir()
	a := newAnalyst(cfg, logging.Discard())
	require.NotNil(t, a)
	assert.True(t, a.IsEnabled())
	assert.Equal(t, "mistral", a.SummaryProvider())
	assert.Empty(t, a.InsightsProvider())
}

func TestWriteScore(t *testing.T) {
	result := score.NewScorer(nil).CalculateText("Late payment incurs a penalty.\n\nNotice period is 30 days.")

	var text bytes.Buffer
	require.NoError(t, writeScore(&text, result, false))
	assert.Equal(t, `Risk Score: 17 (Low Risk)

1. [15] Late payment incurs a penalty.
   - penalty (high, 10)
   - late payment (medium, 5)
2. [2] Notice period is 30 days.
   - notice (low, 2)
`, text.String())

	var js bytes.Buffer
	require.NoError(t, writeScore(&js, result, true))
	var decoded struct {
		Score   int                `json:"score"`
		Level   string             `json:"level"`
		Records []model.ClauseRisk `json:"records"`
	}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, 17, decoded.Score)
	assert.Equal(t, "Low", decoded.Level)
	assert.Equal(t, result.Records, decoded.Records)
}

func TestWriteScore_NoRisk(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScore(&buf, model.RiskResult{Records: []model.ClauseRisk{}}, false))
	assert.Equal(t, "Risk Score: 0 (Low Risk)\nNo risk terms found.\n", buf.String())

	buf.Reset()
	require.NoError(t, writeScore(&buf, model.RiskResult{Records: []model.ClauseRisk{}}, true))
	assert.Contains(t, buf.String(), `"records": []`)
}

func TestWatchable(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"inbox/lease.pdf", true},
		{"inbox/terms.HTML", true},
		{"inbox/notes.md", true},
		{"inbox/.lease.pdf.swp", false},
		{"inbox/lease_analysis.pdf", false},
		{"inbox/lease_analysis.json", false},
		{"inbox/lease_analysis.txt", false},
		{"inbox/lease_analysis.md", false},
		{"inbox/analysis.txt", true},
		{"inbox/photo.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, watchable(tt.path))
		})
	}
}

func TestBatchSources_SkipEarlierReports(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"lease.pdf", "lease_analysis.txt", "lease_analysis.md", "lease_analysis.json", "terms.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("Penalty applies."), 0o600))
	}

	sources, err := worker.CollectSources(dir, analyzable)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "lease.pdf"), filepath.Join(dir, "terms.txt")}, sources)
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	var fired atomic.Int32
	done := make(chan string, 4)
	d := newDebouncer(100*time.Millisecond, func(key string) {
		fired.Add(1)
		done <- key
	})
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Trigger("lease.pdf")
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case key := <-done:
		assert.Equal(t, "lease.pdf", key)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDebouncer_Stop(t *testing.T) {
	var fired atomic.Int32
	d := newDebouncer(20*time.Millisecond, func(string) { fired.Add(1) })

	d.Trigger("a.pdf")
	d.Trigger("b.pdf")
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestWriteConfigTemplate_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfigTemplate(&buf, model.DefaultConfig()))

	assert.Contains(t, buf.String(), "# Legalyze configuration")
	assert.Contains(t, buf.String(), "MISTRAL_API_KEY")

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &cfg))
	assert.Equal(t, model.DefaultConfig(), &cfg)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, writeDefaultConfig(path, false))
	assert.FileExists(t, path)

	err := writeDefaultConfig(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.NoError(t, writeDefaultConfig(path, true))
}

func TestWriteDefaultConfig_WritesLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeDefaultConfig(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, lexiconPath(path), cfg.Risk.LexiconFile)

	lex, err := score.LoadLexiconFile(cfg.Risk.LexiconFile)
	require.NoError(t, err)
	assert.Equal(t, score.DefaultLexicon().Tiers(), lex.Tiers())

	scorer, err := loadScorer(&cfg)
	require.NoError(t, err)
	assert.Equal(t, 17, scorer.CalculateText("Late payment incurs a penalty.\n\nNotice period is 30 days.").TotalScore)
}

func TestWriteDefaultConfig_ExistingLexicon(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, lexiconFileName), []byte("high:\n  forfeit: 12\n"), 0o600))

	err := writeDefaultConfig(filepath.Join(dir, "config.yaml"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), lexiconFileName)
	assert.NoFileExists(t, filepath.Join(dir, "config.yaml"))
}

func TestHistoryTable(t *testing.T) {
	out := historyTable([]history.Entry{
		{ID: "a1", Document: "lease", RiskScore: 36, Clauses: 12, Records: 4, AnalyzedAt: time.Now()},
		{ID: "b2", Document: "nda", RiskScore: 0, Clauses: 3, AnalyzedAt: time.Now()},
	})

	assert.Contains(t, out, "DOCUMENT")
	assert.Contains(t, out, "lease")
	assert.Contains(t, out, "36 (Medium)")
	assert.Contains(t, out, "0 (Low)")
	assert.Contains(t, out, "b2")
}
