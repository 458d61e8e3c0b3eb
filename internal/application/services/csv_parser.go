package services

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
)

// MaxImportRows caps a single CSV upload
const MaxImportRows = 20000

type columnKind int

const (
	kindText columnKind = iota
	kindDate
	kindBool
)

// importColumns are the CSV headers accepted per import type, mapped to
// their value kind. Unknown headers are ignored.
var importColumns = map[entities.ImportType]map[string]columnKind{
	entities.ImportTypeAppointments: {
		"ghl_id":                      kindText,
		"ghl_appointment_id":          kindText,
		"date_of_appointment":         kindDate,
		"requested_time":              kindText,
		"date_appointment_created":    kindDate,
		"calendar_name":               kindText,
		"status":                      kindText,
		"confirmed":                   kindBool,
		"is_reserved_block":           kindBool,
		"lead_name":                   kindText,
		"lead_phone_number":           kindText,
		"lead_email":                  kindText,
		"dob":                         kindText,
		"patient_intake_notes":        kindText,
		"detected_insurance_provider": kindText,
		"detected_insurance_plan":     kindText,
		"detected_insurance_id":       kindText,
		"procedure_ordered":           kindBool,
		"internal_process_complete":   kindBool,
	},
	entities.ImportTypeLeads: {
		"ghl_id":                      kindText,
		"lead_name":                   kindText,
		"first_name":                  kindText,
		"last_name":                   kindText,
		"phone_number":                kindText,
		"email":                       kindText,
		"dob":                         kindText,
		"patient_intake_notes":        kindText,
		"detected_insurance_provider": kindText,
		"detected_insurance_plan":     kindText,
		"detected_insurance_id":       kindText,
	},
}

// headerAliases maps common spreadsheet headings onto column names
var headerAliases = map[string]string{
	"name":             "lead_name",
	"patient_name":     "lead_name",
	"phone":            "lead_phone_number",
	"email":            "lead_email",
	"appointment_date": "date_of_appointment",
	"date":             "date_of_appointment",
	"calendar":         "calendar_name",
	"contact_id":       "ghl_id",
	"appointment_id":   "ghl_appointment_id",
	"notes":            "patient_intake_notes",
	"intake_notes":     "patient_intake_notes",
}

var leadAliases = map[string]string{
	"phone":             "phone_number",
	"lead_phone_number": "phone_number",
	"lead_email":        "email",
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006", "2006/01/02", "Jan 2, 2006", time.RFC3339}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}

// resolveHeader maps a raw CSV heading to a column for the import type
func resolveHeader(importType entities.ImportType, raw string) (string, bool) {
	h := normalizeHeader(raw)
	cols := importColumns[importType]
	if _, ok := cols[h]; ok {
		return h, true
	}
	if importType == entities.ImportTypeLeads {
		if alias, ok := leadAliases[h]; ok {
			return alias, true
		}
	}
	if alias, ok := headerAliases[h]; ok {
		if _, ok := cols[alias]; ok {
			return alias, true
		}
	}
	return "", false
}

func parseDate(s string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognised date %q", s)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func convertValue(kind columnKind, s string) (interface{}, error) {
	switch kind {
	case kindDate:
		return parseDate(s)
	case kindBool:
		return parseBool(s)
	}
	return s, nil
}

// ParsedCSV is the result of reading an upload
type ParsedCSV struct {
	Records []repositories.ImportRecord
	Errors  []entities.ImportRowError
}

// ParseImportCSV reads a CSV upload into records. Rows with a bad value or
// without lead_name are reported and skipped; the rest are kept.
func ParseImportCSV(importType entities.ImportType, r io.Reader) (*ParsedCSV, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	colIdx := map[int]string{}
	seen := map[string]bool{}
	for i, h := range header {
		col, ok := resolveHeader(importType, h)
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		colIdx[i] = col
	}
	if !seen["lead_name"] {
		return nil, fmt.Errorf("missing required column lead_name")
	}

	kinds := importColumns[importType]
	out := &ParsedCSV{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			line := 0
			if errors.As(err, &perr) {
				line = perr.StartLine
			}
			out.Errors = append(out.Errors, entities.ImportRowError{Line: line, Error: err.Error()})
			continue
		}
		line, _ := reader.FieldPos(0)
		if isBlankRow(row) {
			continue
		}
		if len(out.Records) >= MaxImportRows {
			return nil, fmt.Errorf("file has more than %d rows", MaxImportRows)
		}

		record := repositories.ImportRecord{}
		var rowErr error
		for i, col := range colIdx {
			if i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			val, err := convertValue(kinds[col], v)
			if err != nil {
				rowErr = fmt.Errorf("%s: %w", col, err)
				break
			}
			record[col] = val
		}
		if rowErr == nil && record["lead_name"] == nil {
			rowErr = errors.New("lead_name is required")
		}
		if rowErr != nil {
			out.Errors = append(out.Errors, entities.ImportRowError{Line: line, Error: rowErr.Error()})
			continue
		}
		out.Records = append(out.Records, record)
	}
	return out, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
