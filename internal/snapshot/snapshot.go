// Package snapshot exports a user's tables to JSONL files and imports them
// back, one file per table (hydration_logs.jsonl, meals.jsonl, ...).
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cella-health/cella/pkg/types"
)

// FileName returns the JSONL file name for table.
func FileName(table types.TableName) string {
	return string(table) + ".jsonl"
}

// Result reports how many rows were written or loaded per table.
type Result struct {
	Rows    map[types.TableName]int
	Skipped map[types.TableName]int
}

func newResult() *Result {
	return &Result{
		Rows:    make(map[types.TableName]int),
		Skipped: make(map[types.TableName]int),
	}
}

// Export writes the rows of each table visible to owner into dir. Tables
// without an owner column are exported whole.
func Export(ctx context.Context, r types.Reader, dir string, owner types.OwnerFilter, tables []types.TableName, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	res := newResult()
	for _, table := range tables {
		rows, err := r.Select(ctx, table, owner)
		if err != nil {
			return res, fmt.Errorf("export %s: %w", table, err)
		}
		records := make([]json.RawMessage, 0, len(rows))
		for _, row := range rows {
			data, err := json.Marshal(row)
			if err != nil {
				return res, fmt.Errorf("marshaling %s row: %w", table, err)
			}
			records = append(records, data)
		}
		if err := writeJSONL(filepath.Join(dir, FileName(table)), records); err != nil {
			return res, fmt.Errorf("writing %s: %w", FileName(table), err)
		}
		res.Rows[table] = len(records)
		logger.Debug("exported table", zap.String("table", string(table)), zap.Int("rows", len(records)))
	}
	return res, nil
}

// Import inserts every record found in dir for the given tables. Missing
// files are skipped; malformed lines are skipped and counted. Import stops at
// the first insert error.
func Import(ctx context.Context, w types.Writer, dir string, tables []types.TableName, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	res := newResult()
	for _, table := range tables {
		path := filepath.Join(dir, FileName(table))
		records, skipped, err := readJSONL(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return res, err
		}
		res.Skipped[table] = skipped

		for _, rec := range records {
			var row types.Row
			if err := json.Unmarshal(rec, &row); err != nil {
				res.Skipped[table]++
				continue
			}
			if _, err := w.Insert(ctx, table, row); err != nil {
				return res, fmt.Errorf("import %s row %s: %w", table, row.ID(), err)
			}
			res.Rows[table]++
		}
		logger.Debug("imported table",
			zap.String("table", string(table)),
			zap.Int("rows", res.Rows[table]),
			zap.Int("skipped", res.Skipped[table]))
	}
	return res, nil
}
