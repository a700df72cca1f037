package tabular

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readJSONLines parses a line-delimited JSON export, one object per line.
// Column order follows first appearance across the records; lines that fail
// to decode are skipped.
func readJSONLines(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var columns []string
	seen := make(map[string]int)
	var records []map[string]string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		keys, values, err := decodeObjectLine(line)
		if err != nil {
			continue
		}
		record := make(map[string]string, len(keys))
		for i, k := range keys {
			if _, ok := seen[k]; !ok {
				seen[k] = len(columns)
				columns = append(columns, k)
			}
			record[k] = values[i]
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no JSON records", ErrNoTable)
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, len(columns))
		for k, v := range record {
			row[seen[k]] = v
		}
		rows = append(rows, row)
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// decodeObjectLine decodes one JSON object, preserving key order.
func decodeObjectLine(line []byte) ([]string, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("line is not a JSON object")
	}

	var keys, values []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, jsonCellString(value))
	}
	return keys, values, nil
}

func jsonCellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}

// GobTable is the on-disk shape of a serialized Table snapshot.
type GobTable struct {
	Columns []string
	Rows    [][]string
}

// readGob parses a serialized Table snapshot (the Go-native object format,
// used by tooling that re-exports previously parsed data).
func readGob(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var snapshot GobTable
	if err := gob.NewDecoder(f).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode table snapshot: %w", err)
	}
	if len(snapshot.Columns) == 0 {
		return nil, fmt.Errorf("%w: snapshot has no columns", ErrNoTable)
	}

	columns := make([]string, len(snapshot.Columns))
	for i, c := range snapshot.Columns {
		columns[i] = strings.TrimSpace(c)
	}
	return &Table{Columns: columns, Rows: normalizeRows(columns, snapshot.Rows)}, nil
}
