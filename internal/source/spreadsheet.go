package source

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/phillip-england/empportal/internal/directory"
	"github.com/phillip-england/empportal/internal/workbook"
)

// SpreadsheetFetcher reads a roster workbook (.xls or .xlsx) from disk.
// Required columns: id, first name, last name. Optional: age, email, phone,
// image, address, city, company.
type SpreadsheetFetcher struct {
	Path string
}

func (f *SpreadsheetFetcher) Fetch(ctx context.Context) ([]directory.RawUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadFailure{Op: "spreadsheet", URL: f.Path, Err: err}
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, &LoadFailure{Op: "spreadsheet", URL: f.Path, Err: err}
	}
	defer file.Close()

	sheet, err := workbook.ReadSheet(file, f.Path)
	if err != nil {
		return nil, &LoadFailure{Op: "spreadsheet", URL: f.Path, Err: err}
	}
	users, err := usersFromSheet(sheet)
	if err != nil {
		return nil, &LoadFailure{Op: "spreadsheet", URL: f.Path, Err: err}
	}
	return users, nil
}

func usersFromSheet(sheet workbook.Sheet) ([]directory.RawUser, error) {
	for _, required := range []string{"id", "first name", "last name"} {
		if !sheet.Has(required) {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	seen := make(map[int]bool, len(sheet.Rows))
	users := make([]directory.RawUser, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rawID := sheet.Cell(row, "id")
		if rawID == "" {
			continue
		}
		id, err := strconv.Atoi(rawID)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", rawID)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate id %d", id)
		}
		seen[id] = true

		age, _ := strconv.Atoi(sheet.Cell(row, "age"))
		user := directory.RawUser{
			ID:        id,
			FirstName: sheet.Cell(row, "first name"),
			LastName:  sheet.Cell(row, "last name"),
			Age:       age,
			Email:     sheet.Cell(row, "email"),
			Phone:     sheet.Cell(row, "phone"),
			Image:     sheet.Cell(row, "image"),
			Address: directory.Address{
				Address: sheet.Cell(row, "address"),
				City:    sheet.Cell(row, "city"),
			},
		}
		if company := sheet.Cell(row, "company"); company != "" {
			user.Company = &directory.Company{Name: company}
		}
		users = append(users, user)
	}
	return users, nil
}
