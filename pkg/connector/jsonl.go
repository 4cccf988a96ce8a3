// pkg/connector/jsonl.go
package connector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/David-Botos/data-quality/pkg/converter"
	"github.com/David-Botos/data-quality/pkg/model"
)

const maxJSONLLine = 16 * 1024 * 1024

// LoadJSONL reads a file holding one JSON object per line. Blank lines are
// skipped and any malformed line fails the load.
func LoadJSONL(ctx context.Context, name, path string) (*model.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", name, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)

	records := make([]model.Record, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var obj map[string]interface{}
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("%s:%d: malformed record: %w", path, lineNo, err)
		}
		if obj == nil {
			return nil, fmt.Errorf("%s:%d: record is not a JSON object", path, lineNo)
		}
		if dec.More() {
			return nil, fmt.Errorf("%s:%d: unexpected data after record", path, lineNo)
		}

		record := make(model.Record, len(obj))
		for k, v := range obj {
			record[k] = converter.NormalizeValue(v)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return model.NewDataset(name, nil, records), nil
}
