package analytics

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the Excel sheet name length limit.
const maxSheetName = 31

// sheetWriter appends rows to sheets of an xlsx workbook.
type sheetWriter struct {
	file  *excelize.File
	sheet string
	row   int
	bold  int
}

func newSheetWriter() *sheetWriter {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		bold = 0
	}
	return &sheetWriter{file: f, bold: bold}
}

func (w *sheetWriter) addSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheet = name
	w.row = 1
	return nil
}

func (w *sheetWriter) header(columns ...string) error {
	values := make([]interface{}, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := w.write(values); err != nil {
		return err
	}
	if w.bold != 0 {
		start, _ := excelize.CoordinatesToCellName(1, w.row-1)
		end, _ := excelize.CoordinatesToCellName(len(columns), w.row-1)
		_ = w.file.SetCellStyle(w.sheet, start, end, w.bold)
	}
	return nil
}

func (w *sheetWriter) write(values []interface{}) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", w.row, err)
	}
	w.row++
	return nil
}

// Report is the data exported to a workbook.
type Report struct {
	Overview    OverviewData
	Instructors InstructorsData
	Slots       []InstructorSlotDetails
}

// WriteXLSX writes the report as a workbook with Overview, Instructors, Slot Types
// and, when present, Instructor Slots sheets.
func WriteXLSX(out io.Writer, r Report) error {
	w := newSheetWriter()
	defer w.file.Close()

	if err := w.addSheet("Overview"); err != nil {
		return err
	}
	if err := w.header("Metric", "Value"); err != nil {
		return err
	}
	ov := r.Overview
	rows := [][]interface{}{
		{"Total users", ov.TotalUsers},
		{"Instructors", ov.TotalInstructors},
		{"Customers", ov.TotalCustomers},
		{"Instructors with availability", ov.InstructorsWithAvailability},
		{"Average slot types per instructor", ov.AverageSlotTypesPerInstructor},
		{"Slot types used", strings.Join(ov.SlotTypesUsed, ", ")},
	}
	for _, row := range rows {
		if err := w.write(row); err != nil {
			return err
		}
	}

	if err := w.addSheet("Instructors"); err != nil {
		return err
	}
	if err := w.header("ID", "Name", "Slot types", "Count", "Earliest", "Latest"); err != nil {
		return err
	}
	for _, in := range r.Instructors.Instructors {
		earliest, latest := "", ""
		if in.DateRange != nil {
			earliest, latest = in.DateRange.Earliest, in.DateRange.Latest
		}
		row := []interface{}{in.ID, in.Name, strings.Join(in.SlotTypes, ", "), in.SlotTypeCount, earliest, latest}
		if err := w.write(row); err != nil {
			return err
		}
	}

	if err := w.addSheet("Slot Types"); err != nil {
		return err
	}
	if err := w.header("ID", "Name", "Default start", "Default end", "Instructors", "Instructor names"); err != nil {
		return err
	}
	for _, st := range r.Instructors.Aggregate.SlotTypes {
		row := []interface{}{st.ID, st.Name, st.DefaultStartTime, st.DefaultEndTime, st.InstructorCount, strings.Join(st.InstructorNames, ", ")}
		if err := w.write(row); err != nil {
			return err
		}
	}

	if len(r.Slots) > 0 {
		if err := w.addSheet("Instructor Slots"); err != nil {
			return err
		}
		if err := w.header("Instructor", "Slot type", "Start", "End", "Days"); err != nil {
			return err
		}
		for _, d := range r.Slots {
			for _, st := range d.SlotTypes {
				row := []interface{}{d.Instructor.Name, st.Name, st.StartTime, st.EndTime, strings.Join(st.DaysConfigured, ", ")}
				if err := w.write(row); err != nil {
					return err
				}
			}
		}
	}

	if err := w.file.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
