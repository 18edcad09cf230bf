package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"candidate-interview/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary   = "Summary"
	sheetResponses = "Responses"
)

var responseHeaders = []string{"Stage", "Order", "Question ID", "Answer", "Submitted At"}

// Workbook is an exportable view of one finished session.
type Workbook struct {
	Summary   *Summary
	Responses []models.InterviewResponse
}

// ExportExcel writes the workbook to path.
func (wb Workbook) ExportExcel(path string) error {
	f, err := wb.build()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// WriteExcel streams the workbook to w.
func (wb Workbook) WriteExcel(w io.Writer) error {
	f, err := wb.build()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func (wb Workbook) build() (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetResponses); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create responses sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := wb.writeSummary(f, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := wb.writeResponses(f, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (wb Workbook) writeSummary(f *excelize.File, headerStyle int) error {
	s := wb.Summary
	if s == nil {
		s = &Summary{}
	}

	f.SetColWidth(sheetSummary, "A", "A", 24)
	f.SetColWidth(sheetSummary, "B", "B", 60)
	f.SetCellValue(sheetSummary, "A1", "Field")
	f.SetCellValue(sheetSummary, "B1", "Value")
	f.SetCellStyle(sheetSummary, "A1", "B1", headerStyle)

	rows := [][2]interface{}{
		{"Job ID", s.JobID},
		{"Job Title", s.JobTitle},
		{"Company", s.CompanyName},
		{"Candidate", s.Candidate},
		{"Email", s.Email},
		{"Stage", s.Stage},
		{"Completed", s.Completed},
	}
	if s.CompletedAt != nil {
		rows = append(rows, [2]interface{}{"Completed At", s.CompletedAt.Format(time.RFC3339)})
	}
	if s.Terminated != "" {
		rows = append(rows, [2]interface{}{"Terminated", s.Terminated})
	}
	if s.Match != nil {
		rows = append(rows,
			[2]interface{}{"Match Score", s.Match.Score},
			[2]interface{}{"Great Match", s.Match.GreatMatch},
		)
	}
	if s.Feedback != nil {
		rows = append(rows,
			[2]interface{}{"Feedback Score", s.Feedback.Score},
			[2]interface{}{"Feedback", s.Feedback.Summary},
		)
	}
	rows = append(rows, [2]interface{}{"Integrity Events", s.Integrity.Events})
	if len(s.Warnings) > 0 {
		rows = append(rows, [2]interface{}{"Notes", strings.Join(s.Warnings, "; ")})
	}

	for i, row := range rows {
		r := i + 2
		f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", r), row[0])
		f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", r), row[1])
	}
	return nil
}

func (wb Workbook) writeResponses(f *excelize.File, headerStyle int) error {
	widths := map[string]float64{"A": 18, "B": 8, "C": 14, "D": 60, "E": 22}
	for col, width := range widths {
		f.SetColWidth(sheetResponses, col, col, width)
	}

	for i, header := range responseHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetResponses, cell, header)
	}
	f.SetCellStyle(sheetResponses, "A1", "E1", headerStyle)

	for i, r := range wb.Responses {
		row := i + 2
		f.SetCellValue(sheetResponses, fmt.Sprintf("A%d", row), r.Stage.String())
		f.SetCellValue(sheetResponses, fmt.Sprintf("B%d", row), r.Order)
		f.SetCellValue(sheetResponses, fmt.Sprintf("C%d", row), r.QuestionID)
		f.SetCellValue(sheetResponses, fmt.Sprintf("D%d", row), answerText(r.Payload))
		f.SetCellValue(sheetResponses, fmt.Sprintf("E%d", row), r.SubmittedAt.Format(time.RFC3339))
	}

	return f.SetPanes(sheetResponses, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// answerText flattens a payload into one cell.
func answerText(p models.ResponsePayload) string {
	switch {
	case p.SourceCode != "":
		return fmt.Sprintf("[%s]\n%s", p.Language, p.SourceCode)
	case len(p.OptionIDs) > 0:
		ids := make([]string, len(p.OptionIDs))
		for i, id := range p.OptionIDs {
			ids[i] = fmt.Sprintf("%d", id)
		}
		return "options " + strings.Join(ids, ", ")
	case p.Transcript != "":
		return p.Transcript
	case p.Text != "":
		return p.Text
	default:
		return p.AudioRef
	}
}
