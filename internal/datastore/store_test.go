package datastore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *datastore.Store {
	t.Helper()
	cfg := config.NewDefaultStorageConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "dataspy.db")
	store, err := datastore.Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTask(id string, strategy models.CheckStrategy) models.MonitorTask {
	return models.MonitorTask{
		ID:            id,
		Name:          "task " + id,
		URL:           "https://example.com/" + id,
		Strategy:      strategy,
		CheckInterval: 5 * time.Minute,
		Enabled:       true,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func strPtr(s string) *string { return &s }

func TestStore_TaskRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	strategies := []models.CheckStrategy{
		models.FullPageStrategy{},
		models.SelectorStrategy{Selector: "#stock", Presence: models.PresenceAvailability},
		models.JSONAPIStrategy{Path: "data.items.0"},
		models.PriceStrategy{Selector: ".price", Presence: models.PresenceStrict},
	}

	for i, strategy := range strategies {
		task := newTask(string(rune('a'+i)), strategy)
		task.Headers = map[string]string{"Authorization": "Bearer x"}
		last := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
		task.LastCheck = &last
		task.LastContentHash = strPtr("abc")

		require.NoError(t, store.UpsertTask(ctx, task))

		got, err := store.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task, got)
	}

	tasks, err := store.ListTasks(ctx, false)
	require.NoError(t, err)
	assert.Len(t, tasks, len(strategies))
}

func TestStore_UpsertReplaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	task := newTask("t1", models.FullPageStrategy{})
	task.LastContentHash = strPtr("old")
	require.NoError(t, store.UpsertTask(ctx, task))

	replaced := newTask("t1", models.JSONAPIStrategy{Path: "a.b"})
	replaced.URL = "https://example.com/api"
	require.NoError(t, store.UpsertTask(ctx, replaced))

	got, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api", got.URL)
	assert.Equal(t, models.JSONAPIStrategy{Path: "a.b"}, got.Strategy)
	assert.Nil(t, got.LastContentHash)
}

func TestStore_InsertTaskIfMissing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	task := newTask("seed", models.FullPageStrategy{})
	task.LastContentHash = strPtr("kept")
	inserted, err := store.InsertTaskIfMissing(ctx, task)
	require.NoError(t, err)
	assert.True(t, inserted)

	task.LastContentHash = nil
	inserted, err = store.InsertTaskIfMissing(ctx, task)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := store.GetTask(ctx, "seed")
	require.NoError(t, err)
	require.NotNil(t, got.LastContentHash)
	assert.Equal(t, "kept", *got.LastContentHash)
}

func TestStore_ListTasksEnabledOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertTask(ctx, newTask("on", models.FullPageStrategy{})))
	off := newTask("off", models.FullPageStrategy{})
	off.Enabled = false
	require.NoError(t, store.UpsertTask(ctx, off))

	enabled, err := store.ListTasks(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "on", enabled[0].ID)

	require.NoError(t, store.SetTaskEnabled(ctx, "off", true))
	enabled, err = store.ListTasks(ctx, true)
	require.NoError(t, err)
	assert.Len(t, enabled, 2)
}

func TestStore_GetAndDeleteMissing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetTask(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
	assert.ErrorIs(t, store.DeleteTask(ctx, "nope"), models.ErrRecordNotFound)
}

func TestStore_UpsertInvalidTask(t *testing.T) {
	store := openTestStore(t)
	task := newTask("bad", models.FullPageStrategy{})
	task.URL = ""
	err := store.UpsertTask(context.Background(), task)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestStore_CommitCheck(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertTask(ctx, newTask("p", models.PriceStrategy{Selector: ".price"})))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("baseline stores comparable without event", func(t *testing.T) {
		err := store.CommitCheck(ctx, datastore.CheckCommit{
			TaskID: "p", LastCheck: base, UpdateComparable: true,
			LastContentHash: strPtr("h1"), LastValue: strPtr("19.99"),
		})
		require.NoError(t, err)

		got, err := store.GetTask(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, base, *got.LastCheck)
		assert.Equal(t, "19.99", *got.LastValue)
	})

	t.Run("change writes event and snapshot", func(t *testing.T) {
		at := base.Add(5 * time.Minute)
		err := store.CommitCheck(ctx, datastore.CheckCommit{
			TaskID: "p", LastCheck: at, UpdateComparable: true,
			LastContentHash: strPtr("h2"), LastValue: strPtr("17.5"),
			Event: &models.ChangeEvent{
				ID: "e1", TaskID: "p", Timestamp: at, ChangeType: models.ChangePriceDropped,
				OldValue: "19.99", NewValue: "17.5", DiffSummary: "Price dropped from 19.99 to 17.50 (-12.46%)",
			},
			Snapshot: &models.Snapshot{ID: "s1", TaskID: "p", Timestamp: at, ContentHash: "h2", ContentPath: "/tmp/p/h2.html"},
		})
		require.NoError(t, err)

		events, err := store.ListEvents(ctx, "p", 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, models.ChangePriceDropped, events[0].ChangeType)
		assert.Equal(t, at, events[0].Timestamp)

		snap, err := store.LatestSnapshot(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/p/h2.html", snap.ContentPath)
	})

	t.Run("failure only moves last check", func(t *testing.T) {
		at := base.Add(10 * time.Minute)
		require.NoError(t, store.CommitCheck(ctx, datastore.CheckCommit{TaskID: "p", LastCheck: at}))

		got, err := store.GetTask(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, at, *got.LastCheck)
		assert.Equal(t, "17.5", *got.LastValue)
		assert.Equal(t, "h2", *got.LastContentHash)
	})

	t.Run("missing task writes nothing", func(t *testing.T) {
		err := store.CommitCheck(ctx, datastore.CheckCommit{
			TaskID: "gone", LastCheck: base, UpdateComparable: true,
			Event: &models.ChangeEvent{ID: "orphan", TaskID: "gone", Timestamp: base, ChangeType: models.ChangeContentChanged},
		})
		assert.True(t, errors.Is(err, models.ErrRecordNotFound))

		events, err := store.ListEvents(ctx, "gone", 0)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestStore_CommitCheck_RollsBackOnDuplicateEvent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertTask(ctx, newTask("d", models.FullPageStrategy{})))

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	event := models.ChangeEvent{ID: "dup", TaskID: "d", Timestamp: at, ChangeType: models.ChangeContentChanged}
	require.NoError(t, store.CommitCheck(ctx, datastore.CheckCommit{
		TaskID: "d", LastCheck: at, UpdateComparable: true, LastContentHash: strPtr("h1"), Event: &event,
	}))

	err := store.CommitCheck(ctx, datastore.CheckCommit{
		TaskID: "d", LastCheck: at.Add(time.Minute), UpdateComparable: true, LastContentHash: strPtr("h2"), Event: &event,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrPersistence)

	got, err := store.GetTask(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, "h1", *got.LastContentHash)
	assert.Equal(t, at, *got.LastCheck)
}

func TestStore_ListEventsOrderingAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertTask(ctx, newTask("a", models.FullPageStrategy{})))
	require.NoError(t, store.UpsertTask(ctx, newTask("b", models.FullPageStrategy{})))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		taskID := "a"
		if i%2 == 1 {
			taskID = "b"
		}
		require.NoError(t, store.CommitCheck(ctx, datastore.CheckCommit{
			TaskID: taskID, LastCheck: at, UpdateComparable: true, LastContentHash: strPtr("h"),
			Event: &models.ChangeEvent{ID: string(rune('0' + i)), TaskID: taskID, Timestamp: at, ChangeType: models.ChangeContentChanged},
		}))
	}

	all, err := store.ListEvents(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].Timestamp.After(all[i].Timestamp))
	}

	limited, err := store.ListEvents(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "4", limited[0].ID)

	onlyA, err := store.ListEvents(ctx, "a", 0)
	require.NoError(t, err)
	assert.Len(t, onlyA, 3)

	since, err := store.QueryEvents(ctx, datastore.EventQuery{Since: base.Add(3 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	unbounded, err := store.QueryEvents(ctx, datastore.EventQuery{Limit: -1})
	require.NoError(t, err)
	assert.Len(t, unbounded, 5)
}

func TestStore_EventsOutliveTask(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertTask(ctx, newTask("x", models.FullPageStrategy{})))

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.CommitCheck(ctx, datastore.CheckCommit{
		TaskID: "x", LastCheck: at, UpdateComparable: true, LastContentHash: strPtr("h"),
		Event: &models.ChangeEvent{ID: "e", TaskID: "x", Timestamp: at, ChangeType: models.ChangeContentChanged},
	}))
	require.NoError(t, store.DeleteTask(ctx, "x"))

	events, err := store.ListEvents(ctx, "x", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	cfg := config.NewDefaultStorageConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := datastore.Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.UpsertTask(ctx, newTask("r", models.FullPageStrategy{})))
	require.NoError(t, store.Close())

	reopened, err := datastore.Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetTask(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/r", got.URL)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := datastore.Open(context.Background(), config.StorageConfig{Driver: "mysql"}, zerolog.Nop())
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestStore_UpdateTaskKeepsState(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	task := newTask("u", models.FullPageStrategy{})
	last := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	task.LastCheck = &last
	task.LastContentHash = strPtr("h")
	require.NoError(t, store.UpsertTask(ctx, task))

	task.Name = "renamed"
	task.CheckInterval = time.Hour
	task.LastCheck = nil
	task.LastContentHash = nil
	require.NoError(t, store.UpdateTask(ctx, task))

	got, err := store.GetTask(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, time.Hour, got.CheckInterval)
	require.NotNil(t, got.LastCheck)
	assert.Equal(t, last, *got.LastCheck)
	assert.Equal(t, "h", *got.LastContentHash)

	missing := newTask("missing", models.FullPageStrategy{})
	assert.ErrorIs(t, store.UpdateTask(ctx, missing), models.ErrRecordNotFound)
}

func TestStore_UpdateTaskStrategyChangeClearsComparable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	task := newTask("w", models.FullPageStrategy{})
	last := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	task.LastCheck = &last
	task.LastContentHash = strPtr("h")
	require.NoError(t, store.UpsertTask(ctx, task))

	task.Strategy = models.PriceStrategy{Selector: "#p"}
	require.NoError(t, store.UpdateTask(ctx, task))

	got, err := store.GetTask(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, models.PriceStrategy{Selector: "#p", Presence: models.PresenceStrict}, got.Strategy)
	assert.Nil(t, got.LastContentHash)
	assert.Nil(t, got.LastValue)
	require.NotNil(t, got.LastCheck)
	assert.Equal(t, last, *got.LastCheck)
}
