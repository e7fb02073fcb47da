// Package export renders a completed self-check as a PDF report.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/ddll/leadercheck/internal/selfcheck"
)

const (
	title    = "Leadership Self-Check Results"
	subtitle = "Are You Leading Strategically or Reactively?"
)

type rgb struct{ r, g, b int }

var (
	accent = rgb{124, 93, 173}
	body   = rgb{80, 80, 80}
	muted  = rgb{150, 150, 150}
)

// FileName is the download name for a report generated on day.
func FileName(day time.Time) string {
	return "leadership-assessment-" + day.Format("2006-01-02") + ".pdf"
}

// WritePDF renders res to w.
func WritePDF(w io.Writer, res selfcheck.Result) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		setText(pdf, "", 10, muted)
		pdf.CellFormat(0, 10, "Leadership Self-Check Assessment Results", "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	setText(pdf, "B", 20, accent)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	setText(pdf, "", 12, rgb{100, 100, 100})
	pdf.CellFormat(0, 8, subtitle, "", 1, "C", false, 0, "")
	pdf.Ln(8)

	setText(pdf, "", 12, body)
	line := func(s string) { pdf.CellFormat(0, 7, tr(s), "", 1, "L", false, 0, "") }
	line("Name: " + res.UserInfo.Name)
	line("Email: " + res.UserInfo.Email)
	if res.UserInfo.Organization != "" {
		line("Organization: " + res.UserInfo.Organization)
	}
	if res.UserInfo.Role != "" {
		line("Role: " + res.UserInfo.Role)
	}
	line("Assessment Date: " + res.Date.Format("January 2, 2006"))

	heading(pdf, "Your Scores")
	setText(pdf, "", 12, body)
	line(scoreLine("Reactive Score", res.ReactiveScore))
	line(scoreLine("Strategic Score", res.StrategicScore))

	heading(pdf, "Interpretation")
	setText(pdf, "B", 12, body)
	line(res.Interpretation.Guide())
	setText(pdf, "", 12, body)
	pdf.MultiCell(0, 6, tr(res.Interpretation.Description()), "", "L", false)

	heading(pdf, "Interpretation Guide")
	for _, i := range selfcheck.Interpretations {
		style := ""
		if i == res.Interpretation {
			style = "B"
		}
		setText(pdf, style, 11, body)
		pdf.MultiCell(0, 6, tr(i.Guide()+": "+i.Description()), "", "L", false)
	}

	heading(pdf, "Your Answers")
	for _, q := range res.Questions {
		rating := "-"
		if q.Value != nil {
			rating = fmt.Sprintf("%d / %d", *q.Value, selfcheck.MaxRating)
		}
		setText(pdf, "B", 10, body)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d. %s  (%s)", q.ID, categoryName(q.Category), rating), "", 1, "L", false, 0, "")
		setText(pdf, "", 10, body)
		pdf.MultiCell(0, 5, tr(q.Text), "", "L", false)
		pdf.Ln(1)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return pdf.Output(w)
}

func scoreLine(label string, score int) string {
	return fmt.Sprintf("%s: %d / %d (%d%%)", label, score, selfcheck.MaxCategoryScore, selfcheck.Percent(score))
}

func categoryName(c selfcheck.Category) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func heading(pdf *gofpdf.Fpdf, s string) {
	pdf.Ln(6)
	setText(pdf, "B", 16, accent)
	pdf.CellFormat(0, 9, s, "", 1, "L", false, 0, "")
}

func setText(pdf *gofpdf.Fpdf, style string, size float64, c rgb) {
	pdf.SetFont("Helvetica", style, size)
	pdf.SetTextColor(c.r, c.g, c.b)
}
