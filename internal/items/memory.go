package items

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// MemoryBackend is an in-process Backend holding sheets as rows of cells.
// Writes are coerced the way USER_ENTERED input is: booleans read back as
// TRUE/FALSE. Used by the tests and the --memory dev mode.
type MemoryBackend struct {
	mu     sync.Mutex
	sheets map[string][][]interface{}

	// ReadErr and WriteErr, when set, are returned by every read or write.
	ReadErr  error
	WriteErr error

	Reads  int
	Writes int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sheets: make(map[string][][]interface{})}
}

// SetRows replaces the contents of a sheet.
func (m *MemoryBackend) SetRows(sheetName string, rows [][]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheetName] = copyRows(rows)
}

// Rows returns a copy of a sheet's contents.
func (m *MemoryBackend) Rows(sheetName string) [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRows(m.sheets[sheetName])
}

func (m *MemoryBackend) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}

	name := unquoteSheetName(range_)
	if i := strings.LastIndex(range_, "!"); i >= 0 {
		name = unquoteSheetName(range_[:i])
	}
	rows, ok := m.sheets[name]
	if !ok {
		return nil, fmt.Errorf("unable to parse range: %s", range_)
	}
	return copyRows(rows), nil
}

func (m *MemoryBackend) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++

	if err := ctx.Err(); err != nil {
		return err
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if len(values) != 1 || len(values[0]) != 1 {
		return fmt.Errorf("only single-cell updates are supported, got %d rows", len(values))
	}

	i := strings.LastIndex(range_, "!")
	if i < 0 {
		return fmt.Errorf("unable to parse range: %s", range_)
	}
	name := unquoteSheetName(range_[:i])
	column, row, err := parseCell(range_[i+1:])
	if err != nil {
		return err
	}

	rows := m.sheets[name]
	for len(rows) < row {
		rows = append(rows, []interface{}{})
	}
	cells := rows[row-1]
	for len(cells) <= column {
		cells = append(cells, "")
	}
	cells[column] = userEntered(values[0][0])
	rows[row-1] = cells
	m.sheets[name] = rows
	return nil
}

// userEntered mimics the sheet's coercion of typed input.
func userEntered(value interface{}) interface{} {
	switch v := value.(type) {
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case string:
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "TRUE", "FALSE":
			return strings.ToUpper(strings.TrimSpace(v))
		}
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseCell splits an A1 cell reference such as "T5" into a 0-based column
// offset and a 1-based row.
func parseCell(ref string) (int, int, error) {
	split := strings.IndexFunc(ref, func(r rune) bool { return r >= '0' && r <= '9' })
	if split <= 0 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}

	column := 0
	for _, r := range ref[:split] {
		if r < 'A' || r > 'Z' {
			return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
		}
		column = column*26 + int(r-'A'+1)
	}

	row, err := strconv.Atoi(ref[split:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	return column - 1, row, nil
}

func unquoteSheetName(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		return strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}

func copyRows(rows [][]interface{}) [][]interface{} {
	if rows == nil {
		return nil
	}
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = append([]interface{}(nil), row...)
	}
	return out
}
