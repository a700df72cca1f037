package tabular

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// readParquet parses a columnar parquet export. Column order follows the
// file schema; leaf values are rendered back to cell strings so the rest of
// the pipeline sees the same shape as every other format.
func readParquet(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[map[string]any](f)
	defer reader.Close()

	fields := reader.Schema().Fields()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name()
	}

	var rows [][]string
	buf := make([]map[string]any, 128)
	for i := range buf {
		buf[i] = make(map[string]any, len(columns))
	}
	for {
		n, err := reader.Read(buf)
		for _, record := range buf[:n] {
			row := make([]string, len(columns))
			for i, col := range columns {
				row[i] = parquetCellString(record[col])
			}
			rows = append(rows, row)
			clear(record)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: parquet file has no rows", ErrNoTable)
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

func parquetCellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", val)
	}
}
