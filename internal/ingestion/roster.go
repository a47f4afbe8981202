// Package ingestion reads employee rosters from uploaded CSV and XLSX files
// so they can be placed on a movement list in one go.
package ingestion

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rpattn/movementcontrol/internal/domain"
)

type column int

const (
	columnLastName column = iota
	columnFirstName
	columnPatronymic
	columnPosition
	columnSenior
)

// headerAliases maps normalised header text onto roster columns.
var headerAliases = map[string]column{
	"фамилия":    columnLastName,
	"last_name":  columnLastName,
	"last name":  columnLastName,
	"surname":    columnLastName,
	"имя":        columnFirstName,
	"first_name": columnFirstName,
	"first name": columnFirstName,
	"name":       columnFirstName,
	"отчество":   columnPatronymic,
	"patronymic": columnPatronymic,
	"должность":  columnPosition,
	"position":   columnPosition,
	"старший":    columnSenior,
	"is_senior":  columnSenior,
	"senior":     columnSenior,
}

var (
	trueValues  = map[string]bool{"да": true, "yes": true, "true": true, "1": true, "+": true, "x": true, "х": true}
	falseValues = map[string]bool{"": true, "нет": true, "no": true, "false": true, "0": true, "-": true}
)

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, "ё", "е")
	return strings.Join(strings.Fields(h), " ")
}

// Row is one data row of a roster with the problems found in it.
type Row struct {
	Number int               `json:"row"`
	Input  domain.EntryInput `json:"entry"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Valid reports whether the row can be imported.
func (r Row) Valid() bool { return len(r.Errors) == 0 }

// Roster is a parsed upload.
type Roster struct {
	Rows []Row `json:"rows"`
	// Ignored lists header cells that did not match any known column.
	Ignored []string `json:"ignored_columns,omitempty"`
}

// Inputs returns the entry inputs of every row in file order.
func (r Roster) Inputs() []domain.EntryInput {
	out := make([]domain.EntryInput, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, row.Input)
	}
	return out
}

// InvalidRows counts rows with at least one error.
func (r Roster) InvalidRows() int {
	n := 0
	for _, row := range r.Rows {
		if !row.Valid() {
			n++
		}
	}
	return n
}

// ReadRoster parses an uploaded file. Patronymic and senior columns are
// optional, the rest must be present in the header.
func ReadRoster(fileName string, payload []byte, headerRow *int) (Roster, error) {
	table, err := ParseTable(fileName, payload, headerRow)
	if err != nil {
		return Roster{}, err
	}

	positions := make(map[column]int)
	var roster Roster
	for idx, header := range table.Headers {
		col, ok := headerAliases[normalizeHeader(header)]
		if !ok {
			if header != "" {
				roster.Ignored = append(roster.Ignored, header)
			}
			continue
		}
		if _, dup := positions[col]; dup {
			return Roster{}, fmt.Errorf("column %q appears more than once", header)
		}
		positions[col] = idx
	}
	var missing []string
	if _, ok := positions[columnLastName]; !ok {
		missing = append(missing, "фамилия")
	}
	if _, ok := positions[columnFirstName]; !ok {
		missing = append(missing, "имя")
	}
	if _, ok := positions[columnPosition]; !ok {
		missing = append(missing, "должность")
	}
	if len(missing) > 0 {
		return Roster{}, fmt.Errorf("header row %d lacks required columns: %s", table.HeaderRow, strings.Join(missing, ", "))
	}

	cell := func(row []string, col column) string {
		idx, ok := positions[col]
		if !ok {
			return ""
		}
		return row[idx]
	}

	for i, cells := range table.Rows {
		in := domain.EntryInput{PersonName: domain.PersonName{
			LastName:   cell(cells, columnLastName),
			FirstName:  cell(cells, columnFirstName),
			Patronymic: cell(cells, columnPatronymic),
			Position:   cell(cells, columnPosition),
		}}.Normalize()

		row := Row{Number: table.RowNumbers[i], Input: in}
		if err := in.Validate(); err != nil {
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				return Roster{}, err
			}
			row.Errors = verr.Fields
		}
		if senior, ok := parseSenior(cell(cells, columnSenior)); ok {
			if senior {
				row.Input.IsSenior = &senior
			}
		} else {
			if row.Errors == nil {
				row.Errors = map[string]string{}
			}
			row.Errors["is_senior"] = "must be да or нет"
		}
		roster.Rows = append(roster.Rows, row)
	}
	sort.Strings(roster.Ignored)
	return roster, nil
}

func parseSenior(raw string) (senior, ok bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case trueValues[v]:
		return true, true
	case falseValues[v]:
		return false, true
	default:
		return false, false
	}
}
