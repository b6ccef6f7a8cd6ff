package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/sifter/pkg/types"
)

// ParquetRecord is the Parquet row of an exported record. Field values are
// kept as a JSON object since entities do not share columns.
type ParquetRecord struct {
	Entity  string `parquet:"entity"`
	ID      int64  `parquet:"id"`
	Display string `parquet:"display"`
	Values  string `parquet:"values"` // JSON string
}

// WriteRecordsParquet writes records to a Parquet file at path, creating its
// directory.
func WriteRecordsParquet(path string, records []types.Record) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	rows := make([]ParquetRecord, len(records))
	for i, r := range records {
		values, err := json.Marshal(r.Values)
		if err != nil {
			return fmt.Errorf("record %s/%d: %w", r.Entity, r.ID, err)
		}
		rows[i] = ParquetRecord{Entity: r.Entity, ID: r.ID, Display: r.Display, Values: string(values)}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	return nil
}

// ReadRecordsParquet reads a file written by WriteRecordsParquet.
func ReadRecordsParquet(path string) ([]types.Record, error) {
	rows, err := parquet.ReadFile[ParquetRecord](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file: %w", err)
	}
	records := make([]types.Record, len(rows))
	for i, row := range rows {
		records[i] = types.Record{Entity: row.Entity, ID: row.ID, Display: row.Display}
		if err := json.Unmarshal([]byte(row.Values), &records[i].Values); err != nil {
			return nil, fmt.Errorf("record %s/%d: %w", row.Entity, row.ID, err)
		}
	}
	return records, nil
}
