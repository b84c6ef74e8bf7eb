package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/score"
)

// Page geometry in inches
const (
	pdfMargin    = 0.5
	pdfLineH     = 0.2
	pdfLabelW    = 2.0
	pdfValueW    = 4.0
	pdfBulletPad = 0.25
)

type rgb struct{ r, g, b int }

var (
	colorDarkBlue  = rgb{0, 0, 139}
	colorLightGrey = rgb{211, 211, 211}
	colorGrey      = rgb{128, 128, 128}
	colorBlack     = rgb{0, 0, 0}
)

// levelColor returns the display color for a risk level
func levelColor(level score.Level) rgb {
	switch level {
	case score.LevelHigh:
		return rgb{255, 0, 0}
	case score.LevelMedium:
		return rgb{255, 165, 0}
	default:
		return rgb{0, 128, 0}
	}
}

// PDFExporter writes a Letter-size PDF report
type PDFExporter struct{}

// Format returns "pdf"
func (e *PDFExporter) Format() string { return FormatPDF }

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// Write lays out the title, the info table, the narrative content and the
// risk breakdown table
func (e *PDFExporter) Write(w io.Writer, r *model.Report) error {
	pdf := fpdf.New("P", "in", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle("Legal Document Analysis: "+r.Document.Name, true)
	pdf.SetCreator("legalyze", false)
	pdf.SetCreationDate(r.Document.AnalyzedAt)
	pdf.SetModificationDate(r.Document.AnalyzedAt)
	pdf.AddPage()

	pw := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pw.title("Legal Document Analysis")
	pw.infoTable(r)

	for _, b := range parseBlocks(r.Content()) {
		pw.block(b)
	}

	pw.heading("Risk Breakdown", 16)
	if len(r.Risk.Records) == 0 {
		pw.paragraph("No risk terms found.")
	} else {
		pw.breakdownTable(r.Risk.Records)
	}

	if len(r.Warnings) > 0 {
		pw.heading("Warnings", 13)
		for _, warning := range r.Warnings {
			pw.bullet("• " + warning)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func (pw *pdfWriter) setColor(c rgb) {
	pw.pdf.SetTextColor(c.r, c.g, c.b)
}

func (pw *pdfWriter) title(text string) {
	pw.pdf.SetFont("Helvetica", "B", 20)
	pw.setColor(colorBlack)
	pw.pdf.CellFormat(0, 0.45, pw.tr(text), "", 1, "C", false, 0, "")
	pw.pdf.Ln(0.1)
}

func (pw *pdfWriter) infoTable(r *model.Report) {
	level := score.LevelFor(r.Risk.TotalScore)
	rows := [][2]string{
		{"Document", r.Document.Name},
		{"Analysis Date", r.Document.AnalyzedAt.Format(DateLayout)},
		{"Risk Score", riskLine(r)},
	}

	pw.pdf.SetDrawColor(colorGrey.r, colorGrey.g, colorGrey.b)
	pw.pdf.SetLineWidth(0.007)
	pw.pdf.SetFillColor(colorLightGrey.r, colorLightGrey.g, colorLightGrey.b)
	for i, row := range rows {
		pw.pdf.SetFont("Helvetica", "B", 11)
		pw.setColor(colorDarkBlue)
		pw.pdf.CellFormat(pdfLabelW, 0.3, pw.tr(row[0]), "1", 0, "L", true, 0, "")

		pw.pdf.SetFont("Helvetica", "", 11)
		pw.setColor(colorBlack)
		if i == len(rows)-1 {
			pw.pdf.SetFont("Helvetica", "B", 11)
			pw.setColor(levelColor(level))
		}
		pw.pdf.CellFormat(pdfValueW, 0.3, pw.tr(row[1]), "1", 1, "L", false, 0, "")
	}
	pw.setColor(colorBlack)
	pw.pdf.Ln(0.2)
}

func (pw *pdfWriter) block(b block) {
	switch b.kind {
	case blockHeading1:
		pw.heading(b.text, 16)
	case blockHeading2:
		pw.heading(b.text, 13)
	case blockBullet:
		pw.bullet(b.text)
	case blockCode:
		pw.pdf.SetFont("Courier", "", 9)
		pw.setColor(colorBlack)
		pw.pdf.MultiCell(0, 0.16, pw.tr(b.text), "", "L", false)
		pw.pdf.Ln(0.08)
	default:
		pw.paragraph(b.text)
	}
}

func (pw *pdfWriter) heading(text string, size float64) {
	pw.pdf.Ln(size / 72)
	pw.pdf.SetFont("Helvetica", "B", size)
	pw.setColor(colorDarkBlue)
	pw.pdf.MultiCell(0, size/72*1.3, pw.tr(text), "", "L", false)
	pw.pdf.Ln(0.08)
	pw.setColor(colorBlack)
}

func (pw *pdfWriter) paragraph(text string) {
	pw.pdf.SetFont("Helvetica", "", 11)
	pw.setColor(colorBlack)
	pw.pdf.MultiCell(0, pdfLineH, pw.tr(text), "", "L", false)
	pw.pdf.Ln(0.08)
}

func (pw *pdfWriter) bullet(text string) {
	left, _, _, _ := pw.pdf.GetMargins()
	pw.pdf.SetFont("Helvetica", "", 11)
	pw.setColor(colorBlack)
	pw.pdf.SetX(left + pdfBulletPad)
	pw.pdf.MultiCell(0, pdfLineH, pw.tr(text), "", "L", false)
	pw.pdf.Ln(0.04)
}

// breakdownTable draws one row per risk record; rows grow to fit wrapped text
func (pw *pdfWriter) breakdownTable(records []model.ClauseRisk) {
	widths := []float64{0.4, 4.1, 0.6, 2.4}
	aligns := []string{"C", "L", "C", "L"}

	pw.pdf.SetFont("Helvetica", "B", 10)
	pw.pdf.SetFillColor(colorLightGrey.r, colorLightGrey.g, colorLightGrey.b)
	pw.setColor(colorDarkBlue)
	pw.tableRow([]string{"#", "Clause", "Score", "Matches"}, widths, aligns, true)

	pw.pdf.SetFont("Helvetica", "", 9)
	pw.setColor(colorBlack)
	for i, rec := range records {
		pw.tableRow([]string{
			strconv.Itoa(i + 1),
			rec.Excerpt,
			strconv.Itoa(rec.ClauseScore),
			matchList(rec.Matches),
		}, widths, aligns, false)
	}
}

func (pw *pdfWriter) tableRow(cells []string, widths []float64, aligns []string, fill bool) {
	const lineH = 0.18
	const pad = 0.05

	lines := make([][]string, len(cells))
	maxLines := 1
	for i, text := range cells {
		lines[i] = pw.splitText(text, widths[i]-2*pad)
		if len(lines[i]) > maxLines {
			maxLines = len(lines[i])
		}
	}
	rowH := float64(maxLines) * lineH

	_, pageH := pw.pdf.GetPageSize()
	_, _, _, bottom := pw.pdf.GetMargins()
	if pw.pdf.GetY()+rowH > pageH-bottom {
		pw.pdf.AddPage()
	}

	x, y := pw.pdf.GetXY()
	for i := range cells {
		style := "D"
		if fill {
			style = "FD"
		}
		pw.pdf.Rect(x, y, widths[i], rowH, style)
		for j, line := range lines[i] {
			pw.pdf.SetXY(x+pad, y+float64(j)*lineH)
			pw.pdf.CellFormat(widths[i]-2*pad, lineH, line, "", 0, aligns[i], false, 0, "")
		}
		x += widths[i]
	}

	left, _, _, _ := pw.pdf.GetMargins()
	pw.pdf.SetXY(left, y+rowH)
}

// splitText wraps text after translating it to cp1252. SplitText indexes
// font widths by rune, so each encoded byte is passed as its own rune.
func (pw *pdfWriter) splitText(text string, w float64) []string {
	encoded := pw.tr(text)
	runes := make([]rune, len(encoded))
	for i := 0; i < len(encoded); i++ {
		runes[i] = rune(encoded[i])
	}

	lines := pw.pdf.SplitText(string(runes), w)
	for i, line := range lines {
		b := make([]byte, 0, len(line))
		for _, r := range line {
			b = append(b, byte(r))
		}
		lines[i] = string(b)
	}
	return lines
}
