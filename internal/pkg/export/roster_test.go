package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRoster() Roster {
	return Roster{
		Title:       "Equipo de Alabanza",
		Columns:     []string{"Nombre", "Correo", "Estado"},
		Rows:        [][]string{{"Ana Mora", "ana@example.com", "approved"}, {"José Núñez", "jose@example.com", "pending"}},
		GeneratedAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRoster()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Equipo de Alabanza", title)

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Nombre", "Correo", "Estado"}, rows[2])
	assert.Equal(t, []string{"José Núñez", "jose@example.com", "pending"}, rows[4])
}

func TestWritePDF(t *testing.T) {
	roster := sampleRoster()
	for i := 0; i < 80; i++ {
		roster.Rows = append(roster.Rows, []string{"Miembro", "m@example.com", "approved"})
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, roster))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestParseFormatAndFilename(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("csv")
	assert.Error(t, err)

	assert.Equal(t, "equipo-de-alabanza.pdf", sampleRoster().Filename(FormatPDF))
	assert.Equal(t, "roster.xlsx", Roster{}.Filename(FormatXLSX))
}
