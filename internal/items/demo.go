package items

// DemoRows returns a small ITEMS table for running without Google
// credentials: a header row followed by a few items.
func DemoRows() [][]interface{} {
	header := make([]interface{}, FieldCount)
	for i := range header {
		header[i] = ColumnLetter(i)
	}
	header[NameColumn] = "Name"
	header[KeyColumn] = "inventory_id"
	header[CheckboxColumn] = "Label"
	header[LocationColumn] = "Location"
	header[SecondaryColumn] = "Inventory number"

	rows := [][]interface{}{header}
	for _, item := range []struct {
		id, name, location, checked string
	}{
		{"WH-0001", "Cordless drill", "A-01-3", "FALSE"},
		{"WH-0002", "Pallet jack", "B-04-1", "TRUE"},
		{"WH-0003", "Label printer", "C-02-2", ""},
	} {
		row := make([]interface{}, FieldCount)
		for i := range row {
			row[i] = ""
		}
		row[NameColumn] = item.name
		row[KeyColumn] = item.id
		row[CheckboxColumn] = item.checked
		row[LocationColumn] = item.location
		rows = append(rows, row)
	}
	return rows
}
