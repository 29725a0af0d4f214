// Package csvimport parses the attendance spreadsheet export.
//
// The file has two header lines followed by rows of
// date (DD/MM/YY or DD/MM/YYYY), adults, kids, new people, babies, teens.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// HeaderLines is the number of leading lines ignored by Parse, blank lines included
const HeaderLines = 2

const (
	colDate = iota
	colAdults
	colKids
	colNewPeople
	colBabies
	colTeens
	columnCount
)

// Row is one parsed attendance line
type Row struct {
	Line      int
	Date      time.Time
	Adults    int
	Kids      int
	NewPeople int
	Babies    int
	Teens     int
}

// LineError describes a line that could not be parsed
type LineError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Result holds the parsed rows and the rejected lines
type Result struct {
	Rows   []Row
	Errors []LineError
}

// ParseDate parses DD/MM/YY or DD/MM/YYYY. Two-digit years 00-49 map to 20xx and 50-99 to 19xx.
func ParseDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q: expected DD/MM/YY", s)
	}

	day, ok := digits(parts[0])
	if !ok {
		return time.Time{}, fmt.Errorf("invalid day in %q", s)
	}
	month, ok := digits(parts[1])
	if !ok {
		return time.Time{}, fmt.Errorf("invalid month in %q", s)
	}
	yearPart := strings.TrimSpace(parts[2])
	year, ok := digits(yearPart)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid year in %q", s)
	}

	switch len(yearPart) {
	case 1, 2:
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	case 4:
	default:
		return time.Time{}, fmt.Errorf("invalid year in %q", s)
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month {
		return time.Time{}, fmt.Errorf("date %q does not exist", s)
	}
	return date, nil
}

// digits parses an unsigned decimal number. Signs and other characters are rejected.
func digits(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func parseCount(field, value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number, got %q", field, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s cannot be negative", field)
	}
	return n, nil
}

func parseRecord(line int, record []string) (Row, error) {
	if len(record) < columnCount {
		return Row{}, fmt.Errorf("expected %d columns, got %d", columnCount, len(record))
	}

	date, err := ParseDate(record[colDate])
	if err != nil {
		return Row{}, err
	}

	row := Row{Line: line, Date: date}
	counts := []struct {
		name string
		col  int
		dst  *int
	}{
		{"adults", colAdults, &row.Adults},
		{"kids", colKids, &row.Kids},
		{"new people", colNewPeople, &row.NewPeople},
		{"babies", colBabies, &row.Babies},
		{"teens", colTeens, &row.Teens},
	}
	for _, c := range counts {
		n, err := parseCount(c.name, record[c.col])
		if err != nil {
			return Row{}, err
		}
		*c.dst = n
	}
	return row, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Parse reads an attendance CSV. Bad lines are collected in Result.Errors and do not stop
// the parse; a second row for a date already seen is rejected. An error is returned only
// when the input is not readable CSV.
func Parse(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	res := &Result{}
	seen := make(map[time.Time]int)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if parseErr.StartLine <= HeaderLines {
					continue
				}
				res.Errors = append(res.Errors, LineError{Line: parseErr.Line, Message: parseErr.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		// Header lines are counted physically; csv skips empty lines on its own
		line, _ := reader.FieldPos(0)
		if line <= HeaderLines {
			continue
		}
		if blank(record) {
			continue
		}

		if len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}

		row, err := parseRecord(line, record)
		if err != nil {
			res.Errors = append(res.Errors, LineError{Line: line, Message: err.Error()})
			continue
		}
		if first, dup := seen[row.Date]; dup {
			res.Errors = append(res.Errors, LineError{
				Line:    line,
				Message: fmt.Sprintf("date %s already appears on line %d", row.Date.Format("2006-01-02"), first),
			})
			continue
		}
		seen[row.Date] = line
		res.Rows = append(res.Rows, row)
	}

	return res, nil
}
