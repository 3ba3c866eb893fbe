package store

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// MarshalParquet encodes rows as one parquet file in memory. Partitions
// are small enough (a few thousand postings) that buffering the whole file
// is the simpler and safe choice.
func MarshalParquet[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[T](&buf)
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return nil, fmt.Errorf("parquet write: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("parquet close: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalParquet decodes a parquet file previously written by
// MarshalParquet.
func UnmarshalParquet[T any](data []byte) ([]T, error) {
	rows, err := parquet.Read[T](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parquet read: %w", err)
	}
	return rows, nil
}
