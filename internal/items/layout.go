package items

// Column offsets (0-based) into each row of the ITEMS sheet. The sheet's
// column order is owned by the people curating it, so every read and write
// path goes through these constants.
const (
	NameColumn      = 1  // B
	KeyColumn       = 10 // K, inventory id
	CheckboxColumn  = 19 // T, label printed
	LocationColumn  = 21 // V, storage location
	SecondaryColumn = 25 // Z, inventory number

	// FieldCount is the number of labelled fields decoded per row (A..Z).
	FieldCount = 26
)

// DefaultSheetName is the tab holding the item table.
const DefaultSheetName = "ITEMS"

// ColumnLetter converts a 0-based column offset to its A1 letter(s).
func ColumnLetter(offset int) string {
	if offset < 0 {
		return ""
	}
	var letters []byte
	for n := offset + 1; n > 0; n = (n - 1) / 26 {
		letters = append([]byte{byte('A' + (n-1)%26)}, letters...)
	}
	return string(letters)
}
