package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetRow struct {
	ID           int64  `parquet:"name=id, type=INT64"`
	InvocationID string `parquet:"name=invocation_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp    int64  `parquet:"name=timestamp, type=INT64"`
	Type         string `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Attributes   string `parquet:"name=attributes, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ExportParquet writes every event matching f, oldest first, as a snappy
// compressed parquet file. Limit and Offset on f are ignored.
func (a *Archive) ExportParquet(ctx context.Context, out io.Writer, f Filter) (int, error) {
	pw, err := writer.NewParquetWriter(writerfile.NewWriterFile(out), new(parquetRow), 1)
	if err != nil {
		return 0, fmt.Errorf("archive: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	f.Oldest = true
	f.Limit = maxQueryLimit
	f.Offset = 0
	written := 0
	for {
		rows, err := a.Query(ctx, f)
		if err != nil {
			return written, err
		}
		for _, row := range rows {
			if err := pw.Write(parquetRow{
				ID:           int64(row.ID),
				InvocationID: row.InvocationID,
				Timestamp:    row.Timestamp,
				Type:         row.Type,
				Attributes:   row.Attributes,
			}); err != nil {
				return written, fmt.Errorf("archive: parquet write: %w", err)
			}
			written++
		}
		if len(rows) < f.Limit {
			break
		}
		f.Offset += len(rows)
	}
	if err := pw.WriteStop(); err != nil {
		return written, fmt.Errorf("archive: parquet flush: %w", err)
	}
	return written, nil
}
