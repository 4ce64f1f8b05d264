package datastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/models"
)

// EventQuery filters ListEvents. Zero values mean no filter, except Limit:
// zero means DefaultEventLimit and a negative limit returns every match.
type EventQuery struct {
	TaskID string
	Since  time.Time
	Limit  int
}

// ListEvents returns up to limit events of a task, newest first. An empty
// taskID lists events of every task.
func (s *Store) ListEvents(ctx context.Context, taskID string, limit int) ([]models.ChangeEvent, error) {
	return s.QueryEvents(ctx, EventQuery{TaskID: taskID, Limit: limit})
}

// QueryEvents returns events matching q newest first. An unknown task yields
// an empty slice rather than an error.
func (s *Store) QueryEvents(ctx context.Context, q EventQuery) ([]models.ChangeEvent, error) {
	query := `SELECT id, task_id, timestamp, change_type, old_value, new_value, diff_summary FROM events WHERE 1=1`
	var args []interface{}
	if q.TaskID != "" {
		query += ` AND task_id = ?`
		args = append(args, q.TaskID)
	}
	if !q.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, formatTime(q.Since))
	}
	limit := q.Limit
	if limit == 0 {
		limit = DefaultEventLimit
	}
	query += ` ORDER BY timestamp DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, common.NewPersistenceError("list events", err)
	}
	defer rows.Close()

	events := make([]models.ChangeEvent, 0)
	for rows.Next() {
		var (
			e                       models.ChangeEvent
			ts, changeType          string
			oldValue, newValue, sum sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &ts, &changeType, &oldValue, &newValue, &sum); err != nil {
			return nil, common.NewPersistenceError("scan event", err)
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, common.NewPersistenceError("parse event timestamp", err)
		}
		if e.ChangeType, err = models.ParseChangeType(changeType); err != nil {
			s.logger.Warn().Err(err).Str("event_id", e.ID).Msg("Skipping event with unknown change type")
			continue
		}
		e.OldValue, e.NewValue, e.DiffSummary = oldValue.String, newValue.String, sum.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list events", err)
	}
	return events, nil
}

// ListSnapshots returns a task's snapshots newest first.
func (s *Store) ListSnapshots(ctx context.Context, taskID string, limit int) ([]models.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, task_id, timestamp, content_hash, content_path
		FROM snapshots WHERE task_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`), taskID, limit)
	if err != nil {
		return nil, common.NewPersistenceError("list snapshots", err)
	}
	defer rows.Close()

	snaps := make([]models.Snapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, common.NewPersistenceError("scan snapshot", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list snapshots", err)
	}
	return snaps, nil
}

// LatestSnapshot returns the newest snapshot of a task, or
// models.ErrRecordNotFound.
func (s *Store) LatestSnapshot(ctx context.Context, taskID string) (models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, task_id, timestamp, content_hash, content_path
		FROM snapshots WHERE task_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`), taskID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, models.ErrRecordNotFound
	}
	if err != nil {
		return models.Snapshot{}, common.NewPersistenceError("latest snapshot", err)
	}
	return snap, nil
}

func scanSnapshot(row rowScanner) (models.Snapshot, error) {
	var (
		snap models.Snapshot
		ts   string
	)
	if err := row.Scan(&snap.ID, &snap.TaskID, &ts, &snap.ContentHash, &snap.ContentPath); err != nil {
		return models.Snapshot{}, err
	}
	t, err := parseTime(ts)
	if err != nil {
		return models.Snapshot{}, err
	}
	snap.Timestamp = t
	return snap, nil
}
