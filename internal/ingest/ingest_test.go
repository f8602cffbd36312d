package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Contacts")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "contacts.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `contact_id,lat,lng,organization,city,captured_at
c-1,37.7842,-122.4016,Acme,San Francisco,2026-03-14T09:00:00Z
c-2,37.7850,-122.4020,,,
`)

	contacts, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	assert.Equal(t, "c-1", contacts[0].ContactID)
	assert.InDelta(t, 37.7842, contacts[0].Coordinate.Lat, 1e-9)
	assert.InDelta(t, -122.4016, contacts[0].Coordinate.Lng, 1e-9)
	assert.Equal(t, "Acme", contacts[0].Organization)
	assert.Equal(t, "San Francisco", contacts[0].City)
	require.NotNil(t, contacts[0].CapturedAt)

	assert.Equal(t, "c-2", contacts[1].ContactID)
	assert.Empty(t, contacts[1].Organization)
	assert.Nil(t, contacts[1].CapturedAt)
}

func TestReadCSV_HeaderAliases(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `ID,Latitude,Longitude,Company
c-1,30.2672,-97.7431,Globex
`)

	contacts, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Globex", contacts[0].Organization)
}

func TestReadCSV_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing required columns",
			content: "name,org\nx,y\n",
		},
		{
			name:    "bad latitude",
			content: "contact_id,lat,lng\nc-1,not-a-number,0\n",
		},
		{
			name:    "coordinate out of range",
			content: "contact_id,lat,lng\nc-1,91.0,0\n",
		},
		{
			name:    "empty contact id",
			content: "contact_id,lat,lng\n,1.0,2.0\n",
		},
		{
			name:    "bad timestamp",
			content: "contact_id,lat,lng,captured_at\nc-1,1.0,2.0,yesterday\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(writeCSV(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestReadXLSX(t *testing.T) {
	t.Parallel()

	path := createTestXLSX(t, [][]string{
		{"contact_id", "lat", "lng", "organization"},
		{"c-1", "37.4220", "-122.0841", "Google"},
		{"", "", "", ""}, // blank rows are skipped
		{"c-2", "37.4222", "-122.0843", "Google"},
	})

	contacts, err := ReadXLSX(path)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "c-1", contacts[0].ContactID)
	assert.Equal(t, "Google", contacts[1].Organization)
}

func TestReadFile_Dispatch(t *testing.T) {
	t.Parallel()

	xlsxPath := createTestXLSX(t, [][]string{
		{"contact_id", "lat", "lng"},
		{"c-1", "1.0", "2.0"},
	})
	contacts, err := ReadFile(xlsxPath)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)

	csvPath := writeCSV(t, "contact_id,lat,lng\nc-9,3.0,4.0\n")
	contacts, err = ReadFile(csvPath)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "c-9", contacts[0].ContactID)
}
