// Package items maps the ITEMS sheet onto item rows and performs the few
// single-cell writes the bot and the API need.
package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"warehouse_bot/internal/sheets"

	"github.com/rs/zerolog/log"
)

var (
	// ErrBackendUnavailable wraps any failure talking to the spreadsheet.
	ErrBackendUnavailable = errors.New("item table backend unavailable")
	// ErrMalformed reports missing credentials or configuration at startup.
	ErrMalformed = errors.New("item table misconfigured")
	// ErrInvalidRow is returned for row indexes below 1.
	ErrInvalidRow = errors.New("invalid row index")
)

// Backend is the read/write contract against the remote sheet.
type Backend interface {
	ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error)
	UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error
}

// Store is the capability set the front ends depend on.
type Store interface {
	ListAll(ctx context.Context) ([]Row, error)
	FindByInventoryID(ctx context.Context, id string) (Row, bool, error)
	SetCheckbox(ctx context.Context, rowIndex int, value bool) error
	SetSecondaryField(ctx context.Context, rowIndex int, value string) error
	CheckByInventoryID(ctx context.Context, id string, value bool) (Row, bool, error)
	UpdateSecondaryByInventoryID(ctx context.Context, id, value string) (Row, bool, error)
}

// Table reads and writes one sheet of one spreadsheet. It holds no mutable
// state; concurrent writers to the same row race and the last write wins.
type Table struct {
	backend       Backend
	spreadsheetID string
	sheetName     string
}

var _ Store = (*Table)(nil)

// NewTable validates the target and returns a Table.
func NewTable(backend Backend, spreadsheetID, sheetName string) (*Table, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: no backend", ErrMalformed)
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, fmt.Errorf("%w: spreadsheet id is empty", ErrMalformed)
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	return &Table{
		backend:       backend,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func (t *Table) SheetName() string { return t.sheetName }

// ListAll reads the whole sheet in one request and returns its item rows
// top to bottom. Rows without a key column are skipped.
func (t *Table) ListAll(ctx context.Context) ([]Row, error) {
	values, err := t.backend.ReadSheet(ctx, t.spreadsheetID, sheets.SheetRange(t.sheetName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	rows := decodeRows(values)
	log.Debug().
		Int("physical_rows", len(values)).
		Int("item_rows", len(rows)).
		Str("sheet", t.sheetName).
		Msg("Read item table")
	return rows, nil
}

// FindByInventoryID returns the first row whose trimmed key equals the
// trimmed id. Every call issues a fresh read. found is false, with a nil
// error, when no row matches.
func (t *Table) FindByInventoryID(ctx context.Context, id string) (Row, bool, error) {
	rows, err := t.ListAll(ctx)
	if err != nil {
		return Row{}, false, err
	}

	for _, row := range rows {
		if sameKey(row.InventoryID, id) {
			return row, true, nil
		}
	}

	log.Debug().Str("inventory_id", id).Msg("Inventory id not found")
	return Row{}, false, nil
}

// SetCheckbox writes the boolean into the checkbox column of rowIndex.
// It does not check that the row still holds the item it was read for.
func (t *Table) SetCheckbox(ctx context.Context, rowIndex int, value bool) error {
	return t.writeCell(ctx, CheckboxColumn, rowIndex, value)
}

// SetSecondaryField writes free text into the inventory number column.
func (t *Table) SetSecondaryField(ctx context.Context, rowIndex int, value string) error {
	return t.writeCell(ctx, SecondaryColumn, rowIndex, value)
}

// CheckByInventoryID resolves the row by id immediately before writing the
// checkbox, so a row index remembered from an earlier read is never used.
func (t *Table) CheckByInventoryID(ctx context.Context, id string, value bool) (Row, bool, error) {
	row, found, err := t.FindByInventoryID(ctx, id)
	if err != nil || !found {
		return row, found, err
	}
	if err := t.SetCheckbox(ctx, row.RowIndex, value); err != nil {
		return row, true, err
	}
	row.Checkbox = CheckboxOf(value)
	return row, true, nil
}

// UpdateSecondaryByInventoryID resolves the row by id and writes value into
// the inventory number column.
func (t *Table) UpdateSecondaryByInventoryID(ctx context.Context, id, value string) (Row, bool, error) {
	row, found, err := t.FindByInventoryID(ctx, id)
	if err != nil || !found {
		return row, found, err
	}
	if err := t.SetSecondaryField(ctx, row.RowIndex, value); err != nil {
		return row, true, err
	}
	if SecondaryColumn < len(row.Fields) {
		row.Fields[SecondaryColumn].Value = value
	}
	return row, true, nil
}

func (t *Table) writeCell(ctx context.Context, column, rowIndex int, value interface{}) error {
	if rowIndex < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRow, rowIndex)
	}

	letter := ColumnLetter(column)
	cellRange := sheets.CellRange(t.sheetName, letter, rowIndex)
	if err := t.backend.UpdateRange(ctx, t.spreadsheetID, cellRange, [][]interface{}{{value}}); err != nil {
		log.Error().Err(err).Int("row", rowIndex).Str("column", letter).Msg("Failed to update cell")
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	log.Info().
		Int("row", rowIndex).
		Str("column", letter).
		Interface("value", value).
		Msg("Updated cell")
	return nil
}
