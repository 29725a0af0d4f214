package csvimport

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"05/01/24", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"05/01/75", time.Date(1975, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"31/12/49", time.Date(2049, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"01/06/50", time.Date(1950, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"7/3/2023", time.Date(2023, 3, 7, 0, 0, 0, 0, time.UTC)},
		{" 14/02/2021 ", time.Date(2021, 2, 14, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "2024-01-05", "31/02/24", "05/13/24", "aa/01/24", "05/01/202",
		"05/01/-024", "05/01/+024", "05/01/-1", "+5/01/24", "05/-1/24", "05/01/2 4"} {
		_, err := ParseDate(in)
		assert.Error(t, err, in)
	}
}

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"Asistencia 2024,,,,,",
		"Fecha,Adultos,Niños,Nuevos,Bebés,Adolescentes",
		"05/01/24,80,20,3,4,12",
		"",
		"12/01/24,85,,2,5,10",
		"19/01/24,abc,20,3,4,12",
		"26/01/24,90,20",
		"05/01/24,1,1,1,1,1",
	}, "\n")

	res, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	first := res.Rows[0]
	assert.Equal(t, 3, first.Line)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, Row{Line: 3, Date: first.Date, Adults: 80, Kids: 20, NewPeople: 3, Babies: 4, Teens: 12}, first)

	second := res.Rows[1]
	assert.Equal(t, 0, second.Kids, "empty cells count as zero")
	assert.Equal(t, 85, second.Adults)

	require.Len(t, res.Errors, 3)
	assert.Equal(t, 6, res.Errors[0].Line)
	assert.Contains(t, res.Errors[0].Message, "adults")
	assert.Equal(t, 7, res.Errors[1].Line)
	assert.Contains(t, res.Errors[1].Message, "columns")
	assert.Equal(t, 8, res.Errors[2].Line)
	assert.Contains(t, res.Errors[2].Message, "line 3")
}

func TestParse_OnlyHeaders(t *testing.T) {
	res, err := Parse(strings.NewReader("a,b\nc,d\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Empty(t, res.Errors)
}

func TestParse_BlankLineInHeader(t *testing.T) {
	res, err := Parse(strings.NewReader("\nFecha,Adultos,Niños,Nuevos,Bebés,Adolescentes\n05/01/24,10,2,1,0,3\n"))
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, 3, res.Rows[0].Line)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), res.Rows[0].Date)
	assert.Equal(t, 10, res.Rows[0].Adults)
	assert.Empty(t, res.Errors)
}

func TestParse_SignedYearIsLineError(t *testing.T) {
	input := "a\nb\n05/01/-024,10,2,1,0,3\n12/01/24,10,2,1,0,3\n"
	res, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.Contains(t, res.Errors[0].Message, "year")
}
