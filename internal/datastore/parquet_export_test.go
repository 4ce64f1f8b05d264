package datastore_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readParquetEvents(t *testing.T, data []byte) []datastore.ParquetEvent {
	t.Helper()
	reader := parquet.NewGenericReader[datastore.ParquetEvent](bytes.NewReader(data))
	defer reader.Close()

	rows := make([]datastore.ParquetEvent, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestExportEventsParquet(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []models.ChangeEvent{
		{ID: "1", TaskID: "p", Timestamp: at, ChangeType: models.ChangePriceDropped, OldValue: "19.99", NewValue: "17.5", DiffSummary: "dropped"},
		{ID: "2", TaskID: "s", Timestamp: at.Add(time.Minute), ChangeType: models.ChangeUnavailable, DiffSummary: "gone"},
	}

	for _, codec := range []string{"zstd", "snappy", "gzip", "none"} {
		t.Run(codec, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := datastore.ExportEventsParquet(context.Background(), &buf, events, codec, 1)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			rows := readParquetEvents(t, buf.Bytes())
			require.Len(t, rows, 2)
			assert.Equal(t, "price_dropped", rows[0].ChangeType)
			assert.Equal(t, at.UnixMilli(), rows[0].TimestampMs)
			require.NotNil(t, rows[0].OldValue)
			assert.Equal(t, "19.99", *rows[0].OldValue)
			assert.Nil(t, rows[1].OldValue)
		})
	}
}

func TestEventExporter_Export(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertTask(ctx, newTask("x", models.FullPageStrategy{})))

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.CommitCheck(ctx, datastore.CheckCommit{
		TaskID: "x", LastCheck: at, UpdateComparable: true, LastContentHash: strPtr("h"),
		Event: &models.ChangeEvent{ID: "e", TaskID: "x", Timestamp: at, ChangeType: models.ChangeContentChanged, DiffSummary: "Content changed (10 bytes)"},
	}))

	var buf bytes.Buffer
	n, err := datastore.NewEventExporter(store, "zstd", zerolog.Nop()).Export(ctx, &buf, datastore.EventQuery{TaskID: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows := readParquetEvents(t, buf.Bytes())
	require.Len(t, rows, 1)
	assert.Equal(t, "Content changed (10 bytes)", rows[0].DiffSummary)
}
