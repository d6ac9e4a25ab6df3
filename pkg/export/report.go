package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/hervehildenbrand/threatmap/pkg/models"
)

const (
	reportTitle = "Threat Intelligence Report"

	// Table layout (mm)
	lineHeight = 6
)

// WriteReport renders the session report: the narrative briefing, the
// tabulated attack history and the tabulated malicious IP list, with a
// paginated footer. Generation errors propagate to the caller; there is no
// retry.
func WriteReport(w io.Writer, briefing models.Briefing, attacks []models.Attack, ips []models.MaliciousIP) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(reportTitle, false)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, reportTitle, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+time.Now().UTC().Format(time.RFC1123), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeBriefingSection(pdf, briefing)
	writeAttackSection(pdf, attacks)
	writeIPSection(pdf, ips)

	return pdf.Output(w)
}

func writeBriefingSection(pdf *fpdf.Fpdf, briefing models.Briefing) {
	sectionHeader(pdf, "Briefing")
	pdf.SetFont("Helvetica", "", 10)
	summary := briefing.Summary
	if summary == "" {
		summary = "No briefing available for this session."
	}
	pdf.MultiCell(0, 5, summary, "", "L", false)
	if briefing.RiskLevel != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, lineHeight, "Assessed risk level: "+briefing.RiskLevel, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func writeAttackSection(pdf *fpdf.Fpdf, attacks []models.Attack) {
	sectionHeader(pdf, fmt.Sprintf("Attacks (%d)", len(attacks)))
	if len(attacks) == 0 {
		emptyNote(pdf, "No attacks recorded.")
		return
	}

	widths := []float64{34, 24, 46, 46, 40}
	tableHeader(pdf, widths, []string{"Time (UTC)", "Severity", "Source", "Target", "Types"})
	pdf.SetFont("Helvetica", "", 8)
	for _, a := range attacks {
		cells := []string{
			a.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			string(a.Severity),
			a.Source.Name,
			a.Target.Name,
			strings.Join(a.Types, ", "),
		}
		tableRow(pdf, widths, cells)
	}
	pdf.Ln(4)
}

func writeIPSection(pdf *fpdf.Fpdf, ips []models.MaliciousIP) {
	sectionHeader(pdf, fmt.Sprintf("Malicious IPs (%d)", len(ips)))
	if len(ips) == 0 {
		emptyNote(pdf, "No malicious IPs recorded.")
		return
	}

	widths := []float64{50, 35, 35, 35, 35}
	tableHeader(pdf, widths, []string{"Address", "Latitude", "Longitude", "Severity", "Country"})
	pdf.SetFont("Helvetica", "", 8)
	for _, ip := range ips {
		cells := []string{
			ip.IP,
			fmt.Sprintf("%.4f", ip.Latitude),
			fmt.Sprintf("%.4f", ip.Longitude),
			string(ip.Severity),
			ip.CountryCode,
		}
		tableRow(pdf, widths, cells)
	}
	pdf.Ln(4)
}

func sectionHeader(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func emptyNote(pdf *fpdf.Fpdf, note string) {
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, lineHeight, note, "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func tableHeader(pdf *fpdf.Fpdf, widths []float64, labels []string) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for i, label := range labels {
		pdf.CellFormat(widths[i], lineHeight, label, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func tableRow(pdf *fpdf.Fpdf, widths []float64, cells []string) {
	for i, cell := range cells {
		pdf.CellFormat(widths[i], lineHeight, cell, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}
