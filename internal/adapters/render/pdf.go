package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"

	model "github.com/okian/lifespan/internal/domain/model"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
)

// PDFContentType is the media type of PredictionPDF output.
const PDFContentType = "application/pdf"

const (
	pdfTitle   = "Life Expectancy Prediction"
	labelWidth = 90.0
	lineHeight = 7.0
)

// PredictionPDF renders a one-page report of p for owner.
func PredictionPDF(p *model.Prediction, owner string) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("render: nil prediction")
	}

	pdf, tr := newPDF()
	pdf.SetTitle(pdfTitle, false)
	pdf.SetCreator("lifespan", false)
	pdf.SetCreationDate(p.CreatedAt)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, pdfTitle, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pair(pdf, "Prepared for", tr(owner))
	pair(pdf, "Date", p.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	pair(pdf, "Rule set", tr(p.RuleSet))
	pdf.Ln(4)

	section(pdf, "Inputs")
	for _, row := range ProfileRows(p.Profile) {
		pair(pdf, tr(row.Label), tr(row.Value))
	}
	pdf.Ln(4)

	section(pdf, "Result")
	pair(pdf, "Predicted life expectancy", strconv.FormatFloat(p.Result.PredictedLifeExpectancy, 'f', 1, 64)+" years")
	pair(pdf, "Estimated years left", strconv.FormatFloat(p.Result.YearsLeft, 'f', 1, 64))
	pair(pdf, "Estimated days left", strconv.Itoa(p.Result.DaysLeft))

	if len(p.Adjustments) > 0 {
		pdf.Ln(4)
		section(pdf, "Adjustments")
		for _, a := range p.Adjustments {
			if a.Delta == 0 {
				continue
			}
			pair(pdf, tr(a.Rule), strconv.FormatFloat(a.Delta, 'f', -1, 64))
		}
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.MultiCell(0, 5, tr(scoring.Disclaimer), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// newPDF starts an A4 document and returns the translator from UTF-8 to the
// cp1252 encoding of the core fonts. Runes outside cp1252 print as '.'.
func newPDF() (*fpdf.Fpdf, func(string) string) {
	pdf := fpdf.New("P", "mm", "A4", "")
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, title, "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
}

func pair(pdf *fpdf.Fpdf, label, value string) {
	pdf.CellFormat(labelWidth, lineHeight, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, lineHeight, value, "", 1, "L", false, 0, "")
}
