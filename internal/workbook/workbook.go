package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/phillip-england/empportal/internal/directory"
	"github.com/xuri/excelize/v2"
)

const (
	employeesSheet = "Employees"
	maxXLSRows     = 100000
)

var (
	ErrEmptySheet     = errors.New("worksheet has no header row")
	ErrMultipleSheets = errors.New("workbook must contain a single worksheet")
)

// Sheet is a roster worksheet: the header row keyed by normalized column
// name and the data rows beneath it. Blank rows are dropped.
type Sheet struct {
	Columns map[string]int
	Rows    [][]string
}

// Has reports whether the header contains column.
func (s Sheet) Has(column string) bool {
	_, ok := s.Columns[NormalizeHeader(column)]
	return ok
}

// Cell returns the trimmed value of column in row, or "" when either is
// missing.
func (s Sheet) Cell(row []string, column string) string {
	idx, ok := s.Columns[NormalizeHeader(column)]
	if !ok {
		return ""
	}
	return CellValue(row, idx)
}

type gridDecoder func(data []byte) ([][]string, error)

var decoders = map[string]gridDecoder{
	".xls":  decodeXLS,
	".xlsx": decodeXLSX,
}

// ReadSheet decodes the only worksheet of an .xls or .xlsx roster. The
// filename extension picks the decoder; anything else is read as .xlsx.
func ReadSheet(r io.Reader, filename string) (Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Sheet{}, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	decode, ok := decoders[ext]
	if !ok {
		ext, decode = ".xlsx", decodeXLSX
	}
	grid, err := decode(data)
	if err != nil {
		return Sheet{}, fmt.Errorf("decode %s: %w", ext, err)
	}
	return newSheet(grid)
}

func newSheet(grid [][]string) (Sheet, error) {
	rows := make([][]string, 0, len(grid))
	for _, row := range grid {
		if !blankRow(row) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return Sheet{}, ErrEmptySheet
	}
	return Sheet{Columns: HeaderIndex(rows[0]), Rows: rows[1:]}, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func decodeXLS(data []byte) ([][]string, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if book.NumSheets() > 1 {
		return nil, ErrMultipleSheets
	}
	return book.ReadAllCells(maxXLSRows), nil
}

func decodeXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) > 1 {
		return nil, ErrMultipleSheets
	}
	if len(sheets) == 0 {
		return nil, nil
	}
	return file.GetRows(sheets[0])
}

// HeaderIndex maps normalized header names to their column. The first
// occurrence of a repeated name wins.
func HeaderIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := NormalizeHeader(name)
		if _, seen := index[key]; key != "" && !seen {
			index[key] = i
		}
	}
	return index
}

func NormalizeHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(header)), " ")
}

func CellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

var exportHeader = []any{"ID", "Name", "Email", "Phone", "Department", "City", "Age", "Salary", "Address", "Company"}

// WriteEmployees writes records as a one-sheet .xlsx workbook.
func WriteEmployees(w io.Writer, records []directory.EmployeeRecord) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), employeesSheet); err != nil {
		return fmt.Errorf("name worksheet: %w", err)
	}
	if err := file.SetSheetRow(employeesSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(exportHeader))
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(employeesSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			record.ID,
			record.Name,
			record.Email,
			record.Phone,
			record.Department,
			record.City.Name,
			record.Age,
			record.Salary,
			record.Address,
			record.Company,
		}
		if err := file.SetSheetRow(employeesSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := file.SetColWidth(employeesSheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
