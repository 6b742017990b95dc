// Package report exports the progress snapshot as an XLSX workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/p-n-ai/pai-tracker/internal/progress"
	"github.com/p-n-ai/pai-tracker/internal/summary"
)

const (
	TopicsSheet  = "Topics"
	SummarySheet = "Summary"
)

var topicsHeader = []any{"Topic", "Problem", "Difficulty", "Completed", "Topic Progress", "Code", "Video", "Article"}

// Write renders topics, and view when non-nil, as an XLSX workbook to w.
func Write(w io.Writer, topics []progress.Topic, view *summary.View) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TopicsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeTopics(f, topics, bold); err != nil {
		return err
	}
	if view != nil {
		if err := writeSummary(f, view, bold); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTopics(f *excelize.File, topics []progress.Topic, bold int) error {
	rw := rowWriter{f: f, sheet: TopicsSheet}
	rw.append(topicsHeader...)
	for _, t := range topics {
		for _, p := range t.Problems {
			rw.append(
				t.Title,
				p.Name,
				string(p.Difficulty),
				yesNo(p.Completed),
				t.Progress,
				p.Links.Code,
				p.Links.Video,
				p.Links.Article,
			)
		}
	}
	if rw.err != nil {
		return rw.err
	}
	if err := f.SetRowStyle(TopicsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(TopicsSheet, "A", "B", 36); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, v *summary.View, bold int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	p := message.NewPrinter(language.English)

	rw := rowWriter{f: f, sheet: SummarySheet}
	rw.append("Name", v.User.FullName)
	rw.append("Email", v.User.Email)
	if !v.User.MemberSince.IsZero() {
		rw.append("Member Since", v.User.MemberSince.Format("2006-01-02"))
	}
	rw.append("Total Problems", v.TotalProblems)
	rw.append("Solved Problems", v.SolvedProblems)
	rw.append("Completion Rate", p.Sprintf("%.1f%%", v.CompletionRate))

	rw.blank()
	rw.header(bold, "Difficulty", "Solved")
	for _, d := range v.Difficulty {
		rw.append(d.Difficulty, d.Count)
	}

	rw.blank()
	rw.header(bold, "Date", "Solved")
	for _, d := range v.Daily {
		rw.append(d.Date, d.Count)
	}
	return rw.err
}

// rowWriter appends rows to a sheet, keeping the first error.
type rowWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (rw *rowWriter) append(values ...any) {
	if rw.err != nil {
		return
	}
	rw.row++
	cell, err := excelize.CoordinatesToCellName(1, rw.row)
	if err != nil {
		rw.err = err
		return
	}
	if err := rw.f.SetSheetRow(rw.sheet, cell, &values); err != nil {
		rw.err = fmt.Errorf("write %s row %d: %w", rw.sheet, rw.row, err)
	}
}

func (rw *rowWriter) header(style int, values ...any) {
	rw.append(values...)
	if rw.err != nil {
		return
	}
	if err := rw.f.SetRowStyle(rw.sheet, rw.row, rw.row, style); err != nil {
		rw.err = fmt.Errorf("style %s row %d: %w", rw.sheet, rw.row, err)
	}
}

func (rw *rowWriter) blank() {
	rw.row++
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
