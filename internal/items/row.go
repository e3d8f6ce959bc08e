package items

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Checkbox is the three-valued state of the label column.
type Checkbox int

const (
	CheckboxUnset Checkbox = iota
	CheckboxFalse
	CheckboxTrue
)

// ParseCheckbox decodes a cell. Only TRUE and FALSE (any case, trimmed)
// are recognised; everything else is unset.
func ParseCheckbox(cell string) Checkbox {
	switch strings.ToUpper(strings.TrimSpace(cell)) {
	case "TRUE":
		return CheckboxTrue
	case "FALSE":
		return CheckboxFalse
	default:
		return CheckboxUnset
	}
}

// CheckboxOf returns the explicit state for a boolean.
func CheckboxOf(value bool) Checkbox {
	if value {
		return CheckboxTrue
	}
	return CheckboxFalse
}

func (c Checkbox) IsSet() bool   { return c != CheckboxUnset }
func (c Checkbox) Checked() bool { return c == CheckboxTrue }

func (c Checkbox) String() string {
	switch c {
	case CheckboxTrue:
		return "true"
	case CheckboxFalse:
		return "false"
	default:
		return "unset"
	}
}

// MarshalJSON encodes unset as null.
func (c Checkbox) MarshalJSON() ([]byte, error) {
	switch c {
	case CheckboxTrue:
		return []byte("true"), nil
	case CheckboxFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (c *Checkbox) UnmarshalJSON(data []byte) error {
	var value *bool
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("checkbox must be true, false or null: %w", err)
	}
	if value == nil {
		*c = CheckboxUnset
	} else {
		*c = CheckboxOf(*value)
	}
	return nil
}

// Field is one labelled cell of a row.
type Field struct {
	Label string
	Value string
}

// Fields keeps column order and encodes as a JSON object keyed by label.
type Fields []Field

// Get returns the value for a column label, or "" if absent.
func (f Fields) Get(label string) string {
	for _, field := range f {
		if field.Label == label {
			return field.Value
		}
	}
	return ""
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			sb.WriteByte(',')
		}
		key, err := json.Marshal(field.Label)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		sb.Write(key)
		sb.WriteByte(':')
		sb.Write(value)
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// Row is the logical view of one physical row of the item table.
//
// RowIndex is the 1-based sheet row at the time of the read. It is not a
// durable key: rows inserted or deleted upstream shift it.
type Row struct {
	RowIndex    int      `json:"row_index"`
	InventoryID string   `json:"inventory_id"`
	Checkbox    Checkbox `json:"checkbox_t"`
	Fields      Fields   `json:"data"`
}

func (r Row) Name() string            { return r.field(NameColumn) }
func (r Row) Location() string        { return r.field(LocationColumn) }
func (r Row) InventoryNumber() string { return r.field(SecondaryColumn) }

func (r Row) field(offset int) string {
	if offset < 0 || offset >= len(r.Fields) {
		return ""
	}
	return r.Fields[offset].Value
}

// decodeRow builds a Row from raw cells. ok is false when the key column is
// absent from the physical row.
func decodeRow(cells []interface{}, rowIndex int) (Row, bool) {
	if len(cells) <= KeyColumn {
		return Row{}, false
	}

	fields := make(Fields, FieldCount)
	for i := range fields {
		fields[i] = Field{Label: ColumnLetter(i), Value: cellString(cells, i)}
	}

	return Row{
		RowIndex:    rowIndex,
		InventoryID: cellString(cells, KeyColumn),
		Checkbox:    ParseCheckbox(cellString(cells, CheckboxColumn)),
		Fields:      fields,
	}, true
}

// cellString extracts a cell as text, "" when missing.
func cellString(row []interface{}, index int) string {
	if len(row) > index && row[index] != nil {
		return fmt.Sprintf("%v", row[index])
	}
	return ""
}

func decodeRows(values [][]interface{}) []Row {
	rows := make([]Row, 0, len(values))
	for i, cells := range values {
		if row, ok := decodeRow(cells, i+1); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// sameKey compares inventory ids the way the sheet is curated: trimmed,
// case-sensitive.
func sameKey(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
