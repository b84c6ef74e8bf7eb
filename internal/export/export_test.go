package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/legalyze/internal/model"
)

func testReport() *model.Report {
	return &model.Report{
		ID: "0b6f0d7c-3c1e-4d0f-9b7e-0a1b2c3d4e5f",
		Document: model.DocumentMeta{
			Name:       "lease",
			Source:     "contracts/lease.pdf",
			Format:     "pdf",
			Engine:     "pdftotext",
			Characters: 1200,
			Clauses:    12,
			AnalyzedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		},
		Risk: model.RiskResult{
			TotalScore: 36,
			Records: []model.ClauseRisk{{
				Excerpt:     "The party shall face penalty and breach liability under this termination clause.",
				ClauseScore: 36,
				Matches: []model.RiskMatch{
					{Term: "penalty", Category: model.TierHigh, Weight: 10},
					{Term: "breach", Category: model.TierHigh, Weight: 10},
					{Term: "termination", Category: model.TierHigh, Weight: 8},
					{Term: "liability", Category: model.TierHigh, Weight: 8},
				},
			}},
		},
		Summary:  "A commercial lease.\n\n## Obligations\n\n- Rent is due monthly.\n- Repairs | maintenance by tenant.",
		Insights: "Termination requires 90 days notice.",
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"pdf", "txt", "json", "md", "PDF"} {
		exp, err := New(format)
		require.NoError(t, err, format)
		assert.Equal(t, strings.ToLower(format), exp.Format())
	}

	_, err := New("docx")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "lease_analysis.pdf", FileName(testReport(), FormatPDF))
}

func TestIsOutput(t *testing.T) {
	for _, format := range []string{FormatPDF, FormatText, FormatJSON, FormatMarkdown} {
		assert.True(t, IsOutput(FileName(testReport(), format)), format)
	}
	assert.True(t, IsOutput("reports/Lease_analysis.TXT"))

	assert.False(t, IsOutput("lease.pdf"))
	assert.False(t, IsOutput("analysis.txt"))
	assert.False(t, IsOutput("lease_analysis.docx"))
	assert.False(t, IsOutput("lease_analysis_v2.pdf"))
}

func TestTextExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextExporter{}).Write(&buf, testReport()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "LEGAL DOCUMENT ANALYSIS\n======================\n\n"), out)
	assert.Contains(t, out, "Document: lease\n")
	assert.Contains(t, out, "Analysis Date: 2026-03-14 09:26:53\n")
	assert.Contains(t, out, "Risk Score: 36 (Medium Risk)\n\n# Summary\n\nA commercial lease.")
	assert.Contains(t, out, "# Key Insights\n\nTermination requires 90 days notice.")
	assert.Contains(t, out, "1. [36] The party shall face penalty")
	assert.Contains(t, out, "   penalty (high, 10), breach (high, 10), termination (high, 8), liability (high, 8)\n")
	assert.NotContains(t, out, "Warnings")
}

func TestTextExporter_NoRecordsAndWarnings(t *testing.T) {
	r := testReport()
	r.Risk = model.RiskResult{Records: []model.ClauseRisk{}}
	r.Warn("insights unavailable: llm disabled")

	var buf bytes.Buffer
	require.NoError(t, (&TextExporter{}).Write(&buf, r))

	assert.Contains(t, buf.String(), "Risk Score: 0 (Low Risk)")
	assert.Contains(t, buf.String(), "No risk terms found.")
	assert.Contains(t, buf.String(), "Warnings\n--------\n- insights unavailable: llm disabled\n")
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONExporter{}).Write(&buf, testReport()))

	var got struct {
		Document struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			Source       string `json:"source"`
			Clauses      int    `json:"clauses"`
			AnalysisDate string `json:"analysis_date"`
		} `json:"document"`
		Risk struct {
			Score   int                `json:"score"`
			Level   string             `json:"level"`
			Details []model.ClauseRisk `json:"details"`
		} `json:"risk"`
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "lease", got.Document.Name)
	assert.Equal(t, "contracts/lease.pdf", got.Document.Source)
	assert.Equal(t, 12, got.Document.Clauses)
	assert.Equal(t, "2026-03-14T09:26:53Z", got.Document.AnalysisDate)
	assert.Equal(t, 36, got.Risk.Score)
	assert.Equal(t, "Medium", got.Risk.Level)
	assert.Equal(t, testReport().Risk.Records, got.Risk.Details)
	assert.Equal(t, testReport().Content(), got.Content)
}

func TestJSONExporter_EmptyDetailsIsArray(t *testing.T) {
	r := testReport()
	r.Risk = model.RiskResult{}

	var buf bytes.Buffer
	require.NoError(t, (&JSONExporter{}).Write(&buf, r))

	assert.Contains(t, buf.String(), `"details": []`)
	assert.Contains(t, buf.String(), `"level": "Low"`)
}

func TestMarkdownExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownExporter{}).Write(&buf, testReport()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Legal Document Analysis\n\n"))
	assert.Contains(t, out, "| **Risk Score** | 36 (Medium Risk) |")
	assert.Contains(t, out, "## Obligations")
	assert.Contains(t, out, "| # | Clause | Score | Matches |")
	assert.Contains(t, out, "| 1 | The party shall face penalty and breach liability under this termination clause. | 36 | penalty (high, 10),")
}

func TestCell(t *testing.T) {
	assert.Equal(t, `a \| b c`, cell("a | b\n c"))
}

func TestPDFExporter(t *testing.T) {
	r := testReport()
	r.Summary += "\n\nCosts in € and “quoted” terms • 雇用"
	r.Warn("clause review failed")

	var buf bytes.Buffer
	require.NoError(t, (&PDFExporter{}).Write(&buf, r))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestPDFExporter_ManyRecordsPaginate(t *testing.T) {
	r := testReport()
	rec := r.Risk.Records[0]
	for i := 0; i < 80; i++ {
		r.Risk.Records = append(r.Risk.Records, rec)
	}

	var buf bytes.Buffer
	require.NoError(t, (&PDFExporter{}).Write(&buf, r))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestExportAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "export")

	paths, err := ExportAll(testReport(), []string{"pdf", "txt", "json", "md"}, dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "lease_analysis.pdf"),
		filepath.Join(dir, "lease_analysis.txt"),
		filepath.Join(dir, "lease_analysis.json"),
		filepath.Join(dir, "lease_analysis.md"),
	}, paths)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "no temp files left behind")
}

func TestExportAll_UnknownFormatDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()

	paths, err := ExportAll(testReport(), []string{"docx", "txt"}, dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown export format "docx"`)
	assert.Equal(t, []string{filepath.Join(dir, "lease_analysis.txt")}, paths)
}

func TestParseBlocks(t *testing.T) {
	content := "Intro text.\n\n# Summary\n\nFirst line\nsecond line.\n\n## Parties\n\n1. Landlord\n2. Tenant\n   - nested\n\n### Detail\n\n```\ncode here\n```\n"

	blocks := parseBlocks(content)

	assert.Equal(t, []block{
		{kind: blockHeading1, text: "Summary"},
		{kind: blockParagraph, text: "Intro text."},
		{kind: blockHeading1, text: "Summary"},
		{kind: blockParagraph, text: "First line second line."},
		{kind: blockHeading2, text: "Parties"},
		{kind: blockBullet, text: "1. Landlord"},
		{kind: blockBullet, text: "2. Tenant"},
		{kind: blockBullet, text: "  • nested"},
		{kind: blockHeading2, text: "Detail"},
		{kind: blockCode, text: "code here"},
	}, blocks)
}

func TestParseBlocks_Empty(t *testing.T) {
	assert.Empty(t, parseBlocks(""))
	assert.Empty(t, parseBlocks("   \n\n"))
}
