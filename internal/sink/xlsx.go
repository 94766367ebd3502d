package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/llm"
)

const xlsxSheet = "Invoices"

// XLSXSink appends one row per result to a workbook. Columns are keyed by the
// header row; fields not seen before get a new column.
type XLSXSink struct {
	path string
	mu   sync.Mutex
}

func NewXLSXSink(path string) *XLSXSink {
	return &XLSXSink{path: path}
}

func (s *XLSXSink) Name() string { return constants.SinkXLSX }

func (s *XLSXSink) Deliver(_ context.Context, docRef string, res llm.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", common.ErrSinkDelivery, s.path, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", common.ErrSinkDelivery, s.path, err)
	}
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	if len(header) == 0 {
		header = []string{"Blob Name"}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[h] = i + 1
	}

	rowNum := len(rows) + 1
	if rowNum == 1 {
		rowNum = 2
	}
	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(xlsxSheet, cell, v)
	}

	write(1, rowNum, docRef)
	for _, k := range res.Keys() {
		col, ok := cols[k]
		if !ok {
			header = append(header, k)
			col = len(header)
			cols[k] = col
		}
		v, _ := res.Get(k)
		write(col, rowNum, v)
	}
	for i, h := range header {
		write(i+1, 1, h)
	}

	_ = f.SetColWidth(xlsxSheet, "A", "A", 40)
	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("%w: save %s: %v", common.ErrSinkDelivery, s.path, err)
	}
	return nil
}

func (s *XLSXSink) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		if idx, _ := f.GetSheetIndex(xlsxSheet); idx == -1 {
			if _, err := f.NewSheet(xlsxSheet); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		if _, statErr := os.Stat(s.path); statErr == nil {
			return nil, err
		}
	}
	f = excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func (s *XLSXSink) Close() error { return nil }
