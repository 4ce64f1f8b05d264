package datastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/models"
)

// CheckCommit is everything one check writes. It is applied atomically.
type CheckCommit struct {
	TaskID    string
	LastCheck time.Time
	// UpdateComparable is false for failed checks, which only move LastCheck.
	UpdateComparable bool
	LastContentHash  *string
	LastValue        *string
	Event            *models.ChangeEvent
	Snapshot         *models.Snapshot
}

// CommitCheck applies a check result in a single transaction. The task row
// must exist; otherwise models.ErrRecordNotFound is returned and nothing is
// written.
func (s *Store) CommitCheck(ctx context.Context, c CheckCommit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewPersistenceError("begin check commit", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	if c.UpdateComparable {
		res, err = tx.ExecContext(ctx, s.rebind(`UPDATE tasks SET last_check = ?, last_content_hash = ?, last_value = ? WHERE id = ?`),
			formatTime(c.LastCheck), nullableString(c.LastContentHash), nullableString(c.LastValue), c.TaskID)
	} else {
		res, err = tx.ExecContext(ctx, s.rebind(`UPDATE tasks SET last_check = ? WHERE id = ?`),
			formatTime(c.LastCheck), c.TaskID)
	}
	if err != nil {
		return common.NewPersistenceError("update task state", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.NewPersistenceError("update task state", err)
	}
	if n == 0 {
		err = models.ErrRecordNotFound
		return err
	}

	if c.Event != nil {
		if err = insertEvent(ctx, tx, s, *c.Event); err != nil {
			return common.NewPersistenceError("insert event", err)
		}
	}
	if c.Snapshot != nil {
		if err = insertSnapshot(ctx, tx, s, *c.Snapshot); err != nil {
			return common.NewPersistenceError("insert snapshot", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return common.NewPersistenceError("commit check", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, s *Store, e models.ChangeEvent) error {
	_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO events
		(id, task_id, timestamp, change_type, old_value, new_value, diff_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.TaskID, formatTime(e.Timestamp), string(e.ChangeType), e.OldValue, e.NewValue, e.DiffSummary)
	return err
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, s *Store, snap models.Snapshot) error {
	_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO snapshots
		(id, task_id, timestamp, content_hash, content_path)
		VALUES (?, ?, ?, ?, ?)`),
		snap.ID, snap.TaskID, formatTime(snap.Timestamp), snap.ContentHash, snap.ContentPath)
	return err
}
