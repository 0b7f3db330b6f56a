package xlsx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
)

const SheetName = "Processos"

var header = []any{
	"Processo",
	"Disponibilização",
	"Autores",
	"Advogados",
	"Valor principal",
	"Juros moratórios",
	"Honorários advocatícios",
}

// Exporter writes case records to a single-sheet workbook, one row per case.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(path string, cases []domain.CaseRecord) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := e.Write(f, cases); err != nil {
		return err
	}
	return f.Close()
}

func (e *Exporter) Write(w io.Writer, cases []domain.CaseRecord) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := book.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := book.SetCellStyle(SheetName, "A1", "G1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, record := range cases {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		row := []any{
			record.ProcessNumber,
			dateCell(record.AvailabilityDate),
			textCell(record.Authors),
			textCell(record.Lawyers),
			textCell(record.PrincipalAmount),
			textCell(record.MoratoryInterestAmount),
			textCell(record.AttorneyFeesAmount),
		}
		if err := book.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := book.SetColWidth(SheetName, "A", "A", 28); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if err := book.SetColWidth(SheetName, "B", "G", 22); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if err := book.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := book.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func dateCell(d *domain.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func textCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
