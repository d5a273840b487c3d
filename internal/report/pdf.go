// Package report renders the analytics dashboard as a PDF with go-pdf/fpdf.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"pharmastock/m/internal/analytics"
)

const (
	margin   = 15.0
	rowH     = 6.0
	maxLabel = 40
)

// WriteDashboardPDF renders d as an A4 report into w: summary, activity
// series, top movers, and the low-stock section.
func WriteDashboardPDF(w io.Writer, d analytics.Dashboard, title string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(title, true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*margin

	// Header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Window %s, from %s. Generated %s.",
		windowLabel(d.Window), d.From.Format("02 Jan 2006"), d.GeneratedAt.Format(time.RFC1123)), "", 1, "L", false, 0, "")
	if d.Truncated {
		pdf.SetTextColor(180, 0, 0)
		pdf.CellFormat(contentW, 5, fmt.Sprintf("Partial data: only the newest %d ledger entries were aggregated.", d.EntriesUsed), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(3)

	// Summary
	section(pdf, contentW, "Summary")
	summary := [][2]string{
		{"Units moved", fmt.Sprintf("%d", d.TotalUnits)},
		{"Sales", fmt.Sprintf("%d", d.Sales)},
		{"Restocks", fmt.Sprintf("%d", d.Restocks)},
		{"Low-stock medicines", fmt.Sprintf("%d", d.LowStockCount)},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, kv := range summary {
		pdf.CellFormat(contentW*0.6, rowH, kv[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, rowH, kv[1], "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	// Activity
	section(pdf, contentW, "Activity")
	table(pdf, []string{"Period", "Units"}, []float64{contentW * 0.7, contentW * 0.3}, func(add func(...string)) {
		for _, b := range d.Activity {
			add(b.Label, fmt.Sprintf("%d", b.Units))
		}
	})
	pdf.Ln(3)

	// Top movers
	section(pdf, contentW, "Top activity")
	table(pdf, []string{"Medicine", "Units"}, []float64{contentW * 0.7, contentW * 0.3}, func(add func(...string)) {
		if len(d.TopActivity) == 0 {
			add("No activity in this window", "")
		}
		for _, a := range d.TopActivity {
			add(truncate(a.Name), fmt.Sprintf("%d", a.Units))
		}
	})
	pdf.Ln(3)

	// Low stock
	section(pdf, contentW, "Low stock")
	table(pdf, []string{"Medicine", "Category", "Stock"}, []float64{contentW * 0.5, contentW * 0.3, contentW * 0.2}, func(add func(...string)) {
		if len(d.LowStock) == 0 {
			add("All medicines are above the threshold", "", "")
		}
		for _, l := range d.LowStock {
			add(truncate(l.Name), truncate(l.Category), fmt.Sprintf("%d", l.Stock))
		}
	})

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write: %w", err)
	}
	return nil
}

func section(pdf *fpdf.Fpdf, width float64, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(width, 8, title, "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func table(pdf *fpdf.Fpdf, headers []string, widths []float64, rows func(add func(...string))) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		align := "L"
		if i == len(headers)-1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], rowH, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	rows(func(cells ...string) {
		for i, c := range cells {
			align := "L"
			if i == len(cells)-1 {
				align = "R"
			}
			pdf.CellFormat(widths[i], rowH, c, "", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	})
}

func windowLabel(w analytics.Window) string {
	switch w {
	case analytics.Window30Days:
		return "last 30 days"
	case analytics.Window90Days:
		return "last 90 days (weekly)"
	default:
		return "last 7 days"
	}
}

// Helvetica in fpdf is cp1252; long or exotic names are clipped rather than
// wrapped.
func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxLabel {
		return string(r[:maxLabel-3]) + "..."
	}
	return s
}
