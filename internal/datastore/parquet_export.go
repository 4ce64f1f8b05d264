package datastore

import (
	"context"
	"io"
	"strings"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

const defaultExportBatchSize = 1000

// ParquetEvent is the columnar row of an exported change event.
type ParquetEvent struct {
	ID          string  `parquet:"id"`
	TaskID      string  `parquet:"task_id"`
	TimestampMs int64   `parquet:"timestamp_ms"`
	ChangeType  string  `parquet:"change_type"`
	OldValue    *string `parquet:"old_value,optional"`
	NewValue    *string `parquet:"new_value,optional"`
	DiffSummary string  `parquet:"diff_summary"`
}

func toParquetEvent(e models.ChangeEvent) ParquetEvent {
	row := ParquetEvent{
		ID:          e.ID,
		TaskID:      e.TaskID,
		TimestampMs: e.Timestamp.UnixMilli(),
		ChangeType:  string(e.ChangeType),
		DiffSummary: e.DiffSummary,
	}
	if e.OldValue != "" {
		v := e.OldValue
		row.OldValue = &v
	}
	if e.NewValue != "" {
		v := e.NewValue
		row.NewValue = &v
	}
	return row
}

// EventExporter writes change history as Parquet for offline analysis.
type EventExporter struct {
	store     *Store
	codec     string
	batchSize int
	logger    zerolog.Logger
}

// NewEventExporter creates an exporter using the given compression codec
// (zstd, snappy, gzip or none).
func NewEventExporter(store *Store, codec string, logger zerolog.Logger) *EventExporter {
	return &EventExporter{
		store:     store,
		codec:     codec,
		batchSize: defaultExportBatchSize,
		logger:    logger.With().Str("component", "EventExporter").Logger(),
	}
}

// Export writes the events matching q to w and returns the row count.
func (x *EventExporter) Export(ctx context.Context, w io.Writer, q EventQuery) (int, error) {
	events, err := x.store.QueryEvents(ctx, q)
	if err != nil {
		return 0, err
	}
	return ExportEventsParquet(ctx, w, events, x.codec, x.batchSize)
}

// ExportEventsParquet encodes events to w in batches.
func ExportEventsParquet(ctx context.Context, w io.Writer, events []models.ChangeEvent, codec string, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultExportBatchSize
	}

	var opts []parquet.WriterOption
	if opt := compressionOption(codec); opt != nil {
		opts = append(opts, opt)
	}
	writer := parquet.NewGenericWriter[ParquetEvent](w, opts...)

	written := 0
	batch := make([]ParquetEvent, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := writer.Write(batch)
		written += n
		batch = batch[:0]
		return err
	}

	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		batch = append(batch, toParquetEvent(e))
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return written, common.WrapError(err, "failed to write parquet rows")
			}
		}
	}
	if err := flush(); err != nil {
		return written, common.WrapError(err, "failed to write parquet rows")
	}
	if err := writer.Close(); err != nil {
		return written, common.WrapError(err, "failed to close parquet writer")
	}
	return written, nil
}

func compressionOption(codec string) parquet.WriterOption {
	switch strings.ToLower(codec) {
	case "gzip":
		return parquet.Compression(&parquet.Gzip)
	case "snappy":
		return parquet.Compression(&parquet.Snappy)
	case "none":
		return nil
	default:
		return parquet.Compression(&parquet.Zstd)
	}
}
