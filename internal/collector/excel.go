package collector

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/xuri/excelize/v2"
)

// Excel is a batching, mutex-guarded Collector that appends bound results as
// spreadsheet rows and flushes to disk every flushEvery rows (or on Close).
// Row shape is derived once, from the first result's exported struct fields,
// via reflection — results passed to the same Excel instance must share a
// type.
type Excel struct {
	mu         sync.Mutex
	file       *excelize.File
	sheet      string
	path       string
	logger     *slog.Logger
	flushEvery int
	pending    int
	row        int
	header     []string
}

// NewExcel creates a new, empty .xlsx workbook that every flush saves to
// path, replacing any file already there; an existing workbook is not read.
// Rows go to sheet starting at row 2 (row 1 reserved for the header, written
// lazily from the first collected result).
func NewExcel(path, sheet string, flushEvery int, logger *slog.Logger) (*Excel, error) {
	if sheet == "" {
		sheet = "Sheet1"
	}
	if flushEvery <= 0 {
		flushEvery = 50
	}
	if logger == nil {
		logger = slog.Default()
	}

	f := excelize.NewFile()
	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)

	return &Excel{
		file:       f,
		sheet:      sheet,
		path:       path,
		logger:     logger.With("component", "excel_collector"),
		flushEvery: flushEvery,
		row:        1,
	}, nil
}

// Collect appends result as one spreadsheet row. Safe for concurrent use.
func (e *Excel) Collect(result any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fields, values := flatten(result)
	if e.header == nil {
		e.header = fields
		for col, name := range e.header {
			axis, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return err
			}
			if err := e.file.SetCellValue(e.sheet, axis, name); err != nil {
				return err
			}
		}
	}

	e.row++
	for col, v := range values {
		axis, err := excelize.CoordinatesToCellName(col+1, e.row)
		if err != nil {
			return err
		}
		if err := e.file.SetCellValue(e.sheet, axis, v); err != nil {
			return err
		}
	}

	e.pending++
	if e.pending >= e.flushEvery {
		if err := e.flushLocked(); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes any pending rows and closes the underlying workbook.
func (e *Excel) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.flushLocked(); err != nil {
		return err
	}
	return e.file.Close()
}

func (e *Excel) flushLocked() error {
	if e.pending == 0 {
		return nil
	}
	if err := e.file.SaveAs(e.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	e.logger.Debug("workbook flushed", "rows", e.row-1, "path", e.path)
	e.pending = 0
	return nil
}

// flatten reduces a bound result (typically *SomeStruct) to a parallel
// (fieldNames, values) pair, skipping unexported fields.
func flatten(result any) ([]string, []any) {
	v := reflect.ValueOf(result)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return []string{"value"}, []any{result}
	}

	t := v.Type()
	names := make([]string, 0, t.NumField())
	values := make([]any, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		names = append(names, field.Name)
		values = append(values, v.Field(i).Interface())
	}
	return names, values
}
