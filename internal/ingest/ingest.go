// Package ingest parses contact-location exports (CSV and XLSX) into model
// records with header mapping and per-row validation.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/venue-grouper/internal/model"
)

// headerAliases maps canonical column names to the spellings accepted in
// export headers. Matching is case-insensitive.
var headerAliases = map[string][]string{
	"contact_id":   {"contact_id", "contactid", "id"},
	"lat":          {"lat", "latitude"},
	"lng":          {"lng", "lon", "longitude"},
	"organization": {"organization", "org", "company"},
	"city":         {"city", "town"},
	"captured_at":  {"captured_at", "timestamp", "time"},
}

type columns struct {
	contactID  int
	lat        int
	lng        int
	org        int
	city       int
	capturedAt int
}

// mapHeader resolves column positions from a header row. contact_id, lat,
// and lng are required; the rest are optional.
func mapHeader(header []string) (columns, error) {
	cols := columns{contactID: -1, lat: -1, lng: -1, org: -1, city: -1, capturedAt: -1}

	find := func(canonical string) int {
		for i, h := range header {
			h = strings.ToLower(strings.TrimSpace(h))
			for _, alias := range headerAliases[canonical] {
				if h == alias {
					return i
				}
			}
		}
		return -1
	}

	cols.contactID = find("contact_id")
	cols.lat = find("lat")
	cols.lng = find("lng")
	cols.org = find("organization")
	cols.city = find("city")
	cols.capturedAt = find("captured_at")

	if cols.contactID < 0 || cols.lat < 0 || cols.lng < 0 {
		return cols, eris.Errorf("ingest: header must contain contact_id, lat, and lng columns (got %v)", header)
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow converts one data row. rowNum is 1-based including the header,
// for error messages.
func parseRow(row []string, cols columns, rowNum int) (model.ContactLocation, error) {
	var c model.ContactLocation

	c.ContactID = cell(row, cols.contactID)
	if c.ContactID == "" {
		return c, eris.Errorf("ingest: row %d: empty contact_id", rowNum)
	}

	lat, err := strconv.ParseFloat(cell(row, cols.lat), 64)
	if err != nil {
		return c, eris.Wrapf(err, "ingest: row %d: invalid latitude", rowNum)
	}
	lng, err := strconv.ParseFloat(cell(row, cols.lng), 64)
	if err != nil {
		return c, eris.Wrapf(err, "ingest: row %d: invalid longitude", rowNum)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return c, eris.Errorf("ingest: row %d: coordinate out of range (%f, %f)", rowNum, lat, lng)
	}
	c.Coordinate = model.Coordinate{Lat: lat, Lng: lng}

	c.Organization = cell(row, cols.org)
	c.City = cell(row, cols.city)

	if raw := cell(row, cols.capturedAt); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c, eris.Wrapf(err, "ingest: row %d: invalid captured_at", rowNum)
		}
		c.CapturedAt = &t
	}
	return c, nil
}

// ReadCSV parses a CSV contact export. The first row is the header.
func ReadCSV(path string) ([]model.ContactLocation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv header")
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var contacts []model.ContactLocation
	for rowNum := 2; ; rowNum++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read csv row %d", rowNum)
		}
		c, err := parseRow(row, cols, rowNum)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// ReadXLSX parses the first sheet of an XLSX contact export. The first row
// is the header.
func ReadXLSX(path string) ([]model.ContactLocation, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: xlsx file has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("ingest: xlsx sheet is empty")
	}

	header := rowToStrings(sheet.Rows[0])
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var contacts []model.ContactLocation
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if blankRow(cells) {
			continue
		}
		c, err := parseRow(cells, cols, i+2)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// ReadFile dispatches on the file extension.
func ReadFile(path string) ([]model.ContactLocation, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		return ReadXLSX(path)
	default:
		return ReadCSV(path)
	}
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, c := range row.Cells {
		cells[j] = c.String()
	}
	return cells
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
