package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"resume-optimizer/internal/resume"
	"resume-optimizer/internal/templates"
)

// A4 geometry in millimetres.
const (
	pageHeight   = 297.0
	marginLeft   = 18.0
	marginRight  = 18.0
	marginTop    = 18.0
	footerHeight = 18.0

	nameSize    = 18.0
	headerSize  = 13.0
	bodySize    = 10.5
	footerSize  = 8.0
	ptToMM      = 0.3528
	lineSpacing = 1.3
)

var sectionCaser = cases.Title(language.English)

func lineHeight(pt float64) float64 {
	return pt * ptToMM * lineSpacing
}

// RenderPDF lays the document out on A4 pages.
func (s *Service) RenderPDF(doc resume.Document, templateID string) ([]byte, error) {
	tpl, err := templates.Get(templateID)
	if err != nil {
		return nil, &RenderError{TemplateID: templateID, Format: FormatPDF, Err: err}
	}
	pdf := buildPDF(doc, tpl, s.now())
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{TemplateID: templateID, Format: FormatPDF, Err: err}
	}
	return buf.Bytes(), nil
}

type layout struct {
	pdf          *fpdf.Fpdf
	tr           func(string) string
	contentWidth float64
	bottom       float64
	accent       [3]int
}

func buildPDF(doc resume.Document, tpl templates.Template, now time.Time) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle(strings.TrimSpace(doc.PersonalInfo.Name+" "+tpl.Name+" resume"), true)
	pdf.AliasNbPages("")

	pageWidth, _ := pdf.GetPageSize()
	l := &layout{
		pdf:          pdf,
		tr:           pdf.UnicodeTranslatorFromDescriptor(""),
		contentWidth: pageWidth - marginLeft - marginRight,
		bottom:       pageHeight - footerHeight,
		accent:       hexColor(tpl.Accent),
	}

	generated := now.Format("2006-01-02")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", footerSize)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(l.contentWidth/2, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "L", false, 0, "")
		pdf.CellFormat(l.contentWidth/2, 5, "Generated "+generated, "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	l.writeHeader(doc.PersonalInfo)
	if !doc.HasSections() {
		l.paragraphs(doc.Raw)
		return pdf
	}
	if doc.Summary != "" {
		l.section("Summary")
		l.text(doc.Summary, "", bodySize)
	}
	if len(doc.Experience) > 0 {
		l.section("Experience")
		for _, e := range doc.Experience {
			heading := joinNonEmpty(" - ", e.Title, e.Company)
			l.entryHeading(heading, e.DateRange)
			for _, b := range e.Bullets {
				l.bullet(b)
			}
			l.gap(1.5)
		}
	}
	if len(doc.Education) > 0 {
		l.section("Education")
		for _, e := range doc.Education {
			l.entryHeading(joinNonEmpty(", ", e.Degree, e.School), e.DateRange)
			for _, d := range e.Details {
				l.text(d, "", bodySize)
			}
			l.gap(1.5)
		}
	}
	if !doc.Skills.IsEmpty() {
		l.section("Skills")
		if doc.Skills.Categorized() {
			for _, c := range doc.Skills.Categories {
				l.text(c.Name+": "+strings.Join(c.Skills, ", "), "", bodySize)
			}
		} else {
			l.text(strings.Join(doc.Skills.Flat, ", "), "", bodySize)
		}
	}
	if len(doc.Certifications) > 0 {
		l.section("Certifications")
		for _, c := range doc.Certifications {
			l.bullet(c)
		}
	}
	return pdf
}

// ensureSpace starts a new page when h does not fit above the footer.
func (l *layout) ensureSpace(h float64) {
	if l.pdf.GetY()+h > l.bottom {
		l.pdf.AddPage()
	}
}

func (l *layout) writeHeader(p resume.PersonalInfo) {
	if p.Name != "" {
		l.pdf.SetFont("Helvetica", "B", nameSize)
		l.pdf.SetTextColor(20, 20, 20)
		h := lineHeight(nameSize)
		l.ensureSpace(h)
		l.pdf.CellFormat(l.contentWidth, h, l.tr(p.Name), "", 1, "L", false, 0, "")
	}
	contact := joinNonEmpty("  |  ", p.Email, p.Phone, p.Location)
	links := joinNonEmpty("  |  ", p.LinkedIn, p.GitHub)
	for _, line := range []string{contact, links} {
		if line != "" {
			l.text(line, "", bodySize-1)
		}
	}
	l.gap(2)
}

func (l *layout) section(title string) {
	h := lineHeight(headerSize)
	// Keep the title with at least one body line.
	l.ensureSpace(h + 2 + lineHeight(bodySize))
	l.gap(2)
	l.pdf.SetFont("Helvetica", "B", headerSize)
	l.pdf.SetTextColor(l.accent[0], l.accent[1], l.accent[2])
	l.pdf.CellFormat(l.contentWidth, h, l.tr(sectionCaser.String(strings.ToLower(title))), "", 1, "L", false, 0, "")
	y := l.pdf.GetY()
	l.pdf.SetDrawColor(l.accent[0], l.accent[1], l.accent[2])
	l.pdf.SetLineWidth(0.4)
	l.pdf.Line(marginLeft, y, marginLeft+l.contentWidth, y)
	l.gap(1.5)
	l.pdf.SetTextColor(30, 30, 30)
}

func (l *layout) entryHeading(heading, dateRange string) {
	h := lineHeight(bodySize)
	l.ensureSpace(h)
	l.pdf.SetFont("Helvetica", "B", bodySize)
	dateWidth := 0.0
	if dateRange != "" {
		dateWidth = l.pdf.GetStringWidth(l.tr(dateRange)) + 2
	}
	lines := l.pdf.SplitText(l.tr(heading), l.contentWidth-dateWidth)
	if len(lines) == 0 {
		lines = []string{""}
	}
	for i, line := range lines {
		l.ensureSpace(h)
		if i == 0 && dateRange != "" {
			l.pdf.CellFormat(l.contentWidth-dateWidth, h, line, "", 0, "L", false, 0, "")
			l.pdf.SetFont("Helvetica", "", bodySize)
			l.pdf.CellFormat(dateWidth, h, l.tr(dateRange), "", 1, "R", false, 0, "")
			l.pdf.SetFont("Helvetica", "B", bodySize)
			continue
		}
		l.pdf.CellFormat(l.contentWidth, h, line, "", 1, "L", false, 0, "")
	}
}

func (l *layout) bullet(text string) {
	const indent = 5.0
	h := lineHeight(bodySize)
	l.pdf.SetFont("Helvetica", "", bodySize)
	lines := l.pdf.SplitText(l.tr(text), l.contentWidth-indent)
	for i, line := range lines {
		l.ensureSpace(h)
		marker := ""
		if i == 0 {
			marker = l.tr("•")
		}
		l.pdf.CellFormat(indent, h, marker, "", 0, "L", false, 0, "")
		l.pdf.CellFormat(l.contentWidth-indent, h, line, "", 1, "L", false, 0, "")
	}
}

func (l *layout) text(text, style string, size float64) {
	h := lineHeight(size)
	l.pdf.SetFont("Helvetica", style, size)
	for _, line := range l.pdf.SplitText(l.tr(text), l.contentWidth) {
		l.ensureSpace(h)
		l.pdf.CellFormat(l.contentWidth, h, line, "", 1, "L", false, 0, "")
	}
}

func (l *layout) paragraphs(raw string) {
	for _, para := range strings.Split(strings.TrimSpace(raw), "\n") {
		if strings.TrimSpace(para) == "" {
			l.gap(lineHeight(bodySize) / 2)
			continue
		}
		l.text(para, "", bodySize)
	}
}

func (l *layout) gap(h float64) {
	if l.pdf.GetY()+h > l.bottom {
		return
	}
	l.pdf.Ln(h)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func hexColor(hex string) [3]int {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return [3]int{40, 40, 40}
	}
	var rgb [3]int
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return [3]int{40, 40, 40}
		}
		rgb[i] = int(v)
	}
	return rgb
}
