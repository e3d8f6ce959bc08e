package items

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// itemRow builds a physical row with the given id, checkbox and name; n is
// the physical length.
func itemRow(n int, id, checkbox, name string) []interface{} {
	row := make([]interface{}, n)
	for i := range row {
		row[i] = ""
	}
	if n > NameColumn {
		row[NameColumn] = name
	}
	if n > KeyColumn {
		row[KeyColumn] = id
	}
	if n > CheckboxColumn {
		row[CheckboxColumn] = checkbox
	}
	return row
}

func newTestTable(t *testing.T, rows [][]interface{}) (*Table, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	backend.SetRows(DefaultSheetName, rows)
	table, err := NewTable(backend, "sheet-id", "")
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return table, backend
}

func TestNewTableMalformed(t *testing.T) {
	if _, err := NewTable(nil, "sheet-id", "ITEMS"); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for nil backend, got %v", err)
	}
	if _, err := NewTable(NewMemoryBackend(), "  ", "ITEMS"); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for empty spreadsheet id, got %v", err)
	}
}

func TestListAllExcludesShortRows(t *testing.T) {
	table, _ := newTestTable(t, [][]interface{}{
		{"header", "Name"},
		itemRow(10, "", "", "too short"),
		itemRow(11, "ID-1", "", "key only"),
		itemRow(26, "ID-2", "TRUE", "full"),
	})

	rows, err := table.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].RowIndex != 3 || rows[0].InventoryID != "ID-1" {
		t.Errorf("Expected row 3 ID-1, got row %d %q", rows[0].RowIndex, rows[0].InventoryID)
	}
	if rows[1].RowIndex != 4 || rows[1].Name() != "full" {
		t.Errorf("Expected row 4 'full', got row %d %q", rows[1].RowIndex, rows[1].Name())
	}
}

func TestListAllKeepsEmptyKey(t *testing.T) {
	table, _ := newTestTable(t, [][]interface{}{itemRow(11, "", "", "")})

	rows, err := table.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected row with empty key to be kept, got %d rows", len(rows))
	}
}

func TestListAllEmptyTable(t *testing.T) {
	table, _ := newTestTable(t, nil)

	rows, err := table.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", rows)
	}
}

func TestListAllFieldsPadded(t *testing.T) {
	table, _ := newTestTable(t, [][]interface{}{itemRow(11, "ID-1", "", "Drill")})

	rows, err := table.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	row := rows[0]
	if len(row.Fields) != FieldCount {
		t.Fatalf("Expected %d fields, got %d", FieldCount, len(row.Fields))
	}
	if row.Fields[0].Label != "A" || row.Fields[25].Label != "Z" {
		t.Errorf("Unexpected labels %q..%q", row.Fields[0].Label, row.Fields[25].Label)
	}
	if row.Fields.Get("B") != "Drill" {
		t.Errorf("Expected B = Drill, got %q", row.Fields.Get("B"))
	}
	if row.Location() != "" || row.Fields.Get("V") != "" {
		t.Errorf("Expected missing cells to be empty")
	}
	if row.Checkbox != CheckboxUnset {
		t.Errorf("Expected unset checkbox, got %v", row.Checkbox)
	}
}

func TestFindByInventoryIDFirstMatch(t *testing.T) {
	table, _ := newTestTable(t, [][]interface{}{
		itemRow(20, "ID-1", "", "first"),
		itemRow(20, "ID-1", "", "second"),
	})

	row, found, err := table.FindByInventoryID(context.Background(), "ID-1")
	if err != nil {
		t.Fatalf("FindByInventoryID() error = %v", err)
	}
	if !found {
		t.Fatal("Expected ID-1 to be found")
	}
	if row.RowIndex != 1 || row.Name() != "first" {
		t.Errorf("Expected row 1 'first', got row %d %q", row.RowIndex, row.Name())
	}
}

func TestFindByInventoryIDTrimsWhitespace(t *testing.T) {
	table, _ := newTestTable(t, [][]interface{}{
		itemRow(20, "ID-0", "", ""),
		itemRow(20, "  ID-1\t", "", ""),
	})

	for _, query := range []string{"ID-1", " ID-1 "} {
		row, found, err := table.FindByInventoryID(context.Background(), query)
		if err != nil {
			t.Fatalf("FindByInventoryID(%q) error = %v", query, err)
		}
		if !found || row.RowIndex != 2 {
			t.Errorf("FindByInventoryID(%q) = row %d found %v, expected row 2", query, row.RowIndex, found)
		}
	}
}

func TestFindByInventoryIDCaseSensitive(t *testing.T) {
	table, _ := newTestTable(t, [][]interface{}{itemRow(20, "ID-1", "", "")})

	_, found, err := table.FindByInventoryID(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("FindByInventoryID() error = %v", err)
	}
	if found {
		t.Error("Expected case-mismatched id not to match")
	}
}

func TestFindByInventoryIDNotFound(t *testing.T) {
	table, _ := newTestTable(t, [][]interface{}{itemRow(20, "ID-1", "", "")})

	row, found, err := table.FindByInventoryID(context.Background(), "ID-404")
	if err != nil {
		t.Fatalf("Expected no error for missing id, got %v", err)
	}
	if found {
		t.Errorf("Expected not found, got row %d", row.RowIndex)
	}
}

func TestFindByInventoryIDFreshReadEachCall(t *testing.T) {
	table, backend := newTestTable(t, [][]interface{}{itemRow(20, "ID-1", "", "")})

	for i := 0; i < 3; i++ {
		if _, _, err := table.FindByInventoryID(context.Background(), "ID-1"); err != nil {
			t.Fatalf("FindByInventoryID() error = %v", err)
		}
	}
	if backend.Reads != 3 {
		t.Errorf("Expected 3 backend reads, got %d", backend.Reads)
	}
}

func TestBackendReadFailure(t *testing.T) {
	table, backend := newTestTable(t, [][]interface{}{itemRow(20, "ID-1", "", "")})
	backend.ReadErr = errors.New("dial tcp: connection refused")

	rows, err := table.ListAll(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("ListAll() error = %v, expected ErrBackendUnavailable", err)
	}
	if rows != nil {
		t.Errorf("Expected nil rows on failure, got %v", rows)
	}

	_, found, err := table.FindByInventoryID(context.Background(), "ID-1")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("FindByInventoryID() error = %v, expected ErrBackendUnavailable", err)
	}
	if found {
		t.Error("Expected found to be false on failure")
	}
}

func TestSetCheckboxRoundTrip(t *testing.T) {
	rows := make([][]interface{}, 6)
	for i := range rows {
		rows[i] = itemRow(20, "ID-"+string(rune('A'+i)), "FALSE", "")
	}
	table, _ := newTestTable(t, rows)

	if err := table.SetCheckbox(context.Background(), 5, true); err != nil {
		t.Fatalf("SetCheckbox() error = %v", err)
	}

	got, err := table.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	for _, row := range got {
		want := CheckboxFalse
		if row.RowIndex == 5 {
			want = CheckboxTrue
		}
		if row.Checkbox != want {
			t.Errorf("Row %d checkbox = %v, expected %v", row.RowIndex, row.Checkbox, want)
		}
	}
}

func TestSetCheckboxCellAddress(t *testing.T) {
	table, backend := newTestTable(t, [][]interface{}{itemRow(11, "ID-1", "", "")})

	if err := table.SetCheckbox(context.Background(), 1, false); err != nil {
		t.Fatalf("SetCheckbox() error = %v", err)
	}
	cells := backend.Rows(DefaultSheetName)[0]
	if len(cells) != CheckboxColumn+1 || cells[CheckboxColumn] != "FALSE" {
		t.Errorf("Expected FALSE written at column T, got %v", cells)
	}
}

func TestSetSecondaryField(t *testing.T) {
	table, backend := newTestTable(t, [][]interface{}{itemRow(20, "ID-1", "", "")})

	if err := table.SetSecondaryField(context.Background(), 1, "INV-0042"); err != nil {
		t.Fatalf("SetSecondaryField() error = %v", err)
	}
	cells := backend.Rows(DefaultSheetName)[0]
	if cells[SecondaryColumn] != "INV-0042" {
		t.Errorf("Expected INV-0042 at column Z, got %v", cells[SecondaryColumn])
	}

	row, _, err := table.FindByInventoryID(context.Background(), "ID-1")
	if err != nil {
		t.Fatalf("FindByInventoryID() error = %v", err)
	}
	if row.InventoryNumber() != "INV-0042" {
		t.Errorf("Expected inventory number INV-0042, got %q", row.InventoryNumber())
	}
}

func TestWriteFailure(t *testing.T) {
	table, backend := newTestTable(t, [][]interface{}{itemRow(20, "ID-1", "", "")})
	backend.WriteErr = errors.New("quota exceeded")

	if err := table.SetCheckbox(context.Background(), 1, true); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("SetCheckbox() error = %v, expected ErrBackendUnavailable", err)
	}
	if err := table.SetSecondaryField(context.Background(), 1, "x"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("SetSecondaryField() error = %v, expected ErrBackendUnavailable", err)
	}
}

func TestInvalidRowIndex(t *testing.T) {
	table, backend := newTestTable(t, nil)

	if err := table.SetCheckbox(context.Background(), 0, true); !errors.Is(err, ErrInvalidRow) {
		t.Errorf("SetCheckbox(0) error = %v, expected ErrInvalidRow", err)
	}
	if backend.Writes != 0 {
		t.Errorf("Expected no backend writes, got %d", backend.Writes)
	}
}

func TestCheckByInventoryIDReresolves(t *testing.T) {
	table, backend := newTestTable(t, [][]interface{}{
		itemRow(20, "ID-1", "", ""),
		itemRow(20, "ID-2", "", ""),
	})

	// A row is inserted above ID-2 between the lookup and the write.
	before, _, _ := table.FindByInventoryID(context.Background(), "ID-2")
	backend.SetRows(DefaultSheetName, [][]interface{}{
		itemRow(20, "ID-1", "", ""),
		itemRow(20, "ID-NEW", "", ""),
		itemRow(20, "ID-2", "", ""),
	})

	row, found, err := table.CheckByInventoryID(context.Background(), "ID-2", true)
	if err != nil || !found {
		t.Fatalf("CheckByInventoryID() = found %v, err %v", found, err)
	}
	if before.RowIndex != 2 || row.RowIndex != 3 {
		t.Errorf("Expected row to move from 2 to 3, got %d -> %d", before.RowIndex, row.RowIndex)
	}
	if !row.Checkbox.Checked() {
		t.Error("Expected returned row to be checked")
	}

	rows, _ := table.ListAll(context.Background())
	if rows[1].Checkbox.IsSet() {
		t.Error("Expected inserted row to stay untouched")
	}
	if !rows[2].Checkbox.Checked() {
		t.Error("Expected ID-2 to be checked")
	}
}

func TestCheckByInventoryIDNotFound(t *testing.T) {
	table, backend := newTestTable(t, [][]interface{}{itemRow(20, "ID-1", "", "")})

	_, found, err := table.CheckByInventoryID(context.Background(), "ID-9", true)
	if err != nil || found {
		t.Errorf("Expected not found without error, got found %v err %v", found, err)
	}
	if backend.Writes != 0 {
		t.Errorf("Expected no writes, got %d", backend.Writes)
	}
}

func TestUpdateSecondaryByInventoryID(t *testing.T) {
	table, _ := newTestTable(t, [][]interface{}{itemRow(26, "ID-1", "", "")})

	row, found, err := table.UpdateSecondaryByInventoryID(context.Background(), " ID-1", "N-7")
	if err != nil || !found {
		t.Fatalf("UpdateSecondaryByInventoryID() = found %v, err %v", found, err)
	}
	if row.InventoryNumber() != "N-7" {
		t.Errorf("Expected N-7, got %q", row.InventoryNumber())
	}
}

func TestRowJSON(t *testing.T) {
	row, ok := decodeRow(itemRow(20, "ID-1", "true", "Drill"), 4)
	if !ok {
		t.Fatal("Expected row to decode")
	}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var decoded struct {
		RowIndex    int               `json:"row_index"`
		InventoryID string            `json:"inventory_id"`
		Checkbox    *bool             `json:"checkbox_t"`
		Data        map[string]string `json:"data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if decoded.RowIndex != 4 || decoded.InventoryID != "ID-1" {
		t.Errorf("Unexpected row %+v", decoded)
	}
	if decoded.Checkbox == nil || !*decoded.Checkbox {
		t.Errorf("Expected checkbox_t true, got %v", decoded.Checkbox)
	}
	if decoded.Data["B"] != "Drill" || len(decoded.Data) != FieldCount {
		t.Errorf("Unexpected data %v", decoded.Data)
	}
}
