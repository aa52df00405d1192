// Package report exports dashboard data as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/dashboard"
	"github.com/japhetcordova/clc-sub000/core/member"
)

const (
	fontFamily = "Helvetica"
	lineH      = 7.0
	chartImage = "attendance-chart"
)

type column struct {
	title string
	width float64
	align string
}

type Generator struct {
	church string
	loc    *time.Location
}

func NewGenerator(conf *core.Config) *Generator {
	return &Generator{church: conf.ChurchName, loc: conf.Location}
}

// newDoc starts a document with the church header and numbered footers.
func (g *Generator) newDoc(orientation, title, subtitle string) (*fpdf.Fpdf, func(string) string) {
	pdf := fpdf.New(orientation, "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252
	now := core.NowFunc().In(g.loc)

	pdf.SetTitle(title, true)
	pdf.SetAuthor(g.church, true)
	pdf.SetCreationDate(now)
	pdf.AliasNbPages("")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont(fontFamily, "B", 15)
		pdf.CellFormat(0, 8, tr(g.church), "", 1, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 11)
		pdf.CellFormat(0, 6, tr(title), "", 1, "L", false, 0, "")
		if subtitle != "" {
			pdf.SetFont(fontFamily, "", 9)
			pdf.SetTextColor(107, 114, 128)
			pdf.CellFormat(0, 5, tr(subtitle), "", 1, "L", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(4)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Generated %s", now.Format("Jan 2, 2006 15:04")), "", 0, "L", false, 0, "")
		pdf.SetY(-15)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()
	return pdf, tr
}

func table(pdf *fpdf.Fpdf, tr func(string) string, cols []column, rows [][]string) {
	header := func() {
		pdf.SetFont(fontFamily, "B", 9)
		pdf.SetFillColor(29, 58, 110)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range cols {
			pdf.CellFormat(c.width, lineH, tr(c.title), "1", 0, c.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(fontFamily, "", 9)
		pdf.SetTextColor(0, 0, 0)
	}

	header()
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, row := range rows {
		if pdf.GetY()+lineH > pageH-bottom-15 {
			pdf.AddPage()
			header()
		}
		pdf.SetFillColor(243, 244, 246)
		for j, c := range cols {
			pdf.CellFormat(c.width, lineH, tr(row[j]), "1", 0, c.align, i%2 == 1, 0, "")
		}
		pdf.Ln(-1)
	}
}

func heading(pdf *fpdf.Fpdf, tr func(string) string, s string) {
	pdf.Ln(4)
	pdf.SetFont(fontFamily, "B", 12)
	pdf.CellFormat(0, 8, tr(s), "", 1, "L", false, 0, "")
}

// AttendancePDF writes the overview: summary figures, a bar chart and the bucket table.
func (g *Generator) AttendancePDF(w io.Writer, ov dashboard.Overview) error {
	pdf, tr := g.newDoc("P", "Attendance report", fmt.Sprintf("%s to %s, grouped by %s", ov.From, ov.To, ov.Attendance.GroupBy))

	heading(pdf, tr, "Summary")
	table(pdf, tr,
		[]column{{"Figure", 120, "L"}, {"Value", 60, "R"}},
		[][]string{
			{"Attendance (check-ins)", strconv.Itoa(ov.Attendance.Total)},
			{"Unique attendees", strconv.Itoa(ov.Attendance.Unique)},
			{"Members", strconv.Itoa(ov.Members.Total)},
			{"Active members", strconv.Itoa(ov.Members.Active)},
			{"New members in period", strconv.Itoa(ov.Members.New)},
			{"Active classes", strconv.Itoa(ov.Classes.ActiveClasses)},
			{"Active enrollments", strconv.Itoa(ov.Classes.ActiveEnrollments)},
		},
	)

	if len(ov.Attendance.Buckets) > 0 {
		chart, err := BarChart(ov.Attendance.Buckets, 1200, 500)
		if err != nil {
			return err
		}
		heading(pdf, tr, "Attendance by "+ov.Attendance.GroupBy)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(chartImage, opts, bytes.NewReader(chart))
		pdf.ImageOptions(chartImage, pdf.GetX(), pdf.GetY(), 180, 75, true, opts, 0, "")

		rows := make([][]string, 0, len(ov.Attendance.Buckets))
		for _, b := range ov.Attendance.Buckets {
			rows = append(rows, []string{b.Key, strconv.Itoa(b.Total), strconv.Itoa(b.Unique)})
		}
		pdf.Ln(4)
		table(pdf, tr, []column{{"Group", 100, "L"}, {"Total", 40, "R"}, {"Unique", 40, "R"}}, rows)
	}

	return errors.Wrap(pdf.Output(w), "writing attendance report")
}

// MembersPDF writes the roster of members in landscape.
func (g *Generator) MembersPDF(w io.Writer, members []member.Member) error {
	pdf, tr := g.newDoc("L", "Member roster", fmt.Sprintf("%d members", len(members)))

	cols := []column{
		{"Code", 24, "L"},
		{"Name", 60, "L"},
		{"Gender", 18, "L"},
		{"Phone", 36, "L"},
		{"Email", 64, "L"},
		{"Ministry", 40, "L"},
		{"Joined", 24, "L"},
		{"Status", 11, "C"},
	}
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		status := "-"
		if m.IsActive {
			status = "A"
		}
		rows = append(rows, []string{
			m.Code,
			truncate(m.FullName(), 34),
			m.Gender,
			m.Phone,
			truncate(m.Email, 38),
			truncate(m.Ministry, 22),
			m.JoinedAt.In(g.loc).Format(core.DateLayout),
			status,
		})
	}
	table(pdf, tr, cols, rows)

	return errors.Wrap(pdf.Output(w), "writing member roster")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
