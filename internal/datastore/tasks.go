package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/models"
)

const taskColumns = `id, name, url, check_type, selector, json_path, presence, check_interval,
	last_check, last_content_hash, last_value, enabled, created_at, headers`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// UpsertTask inserts a task or replaces every column of an existing task
// with the same id.
func (s *Store) UpsertTask(ctx context.Context, task models.MonitorTask) error {
	args, err := taskArgs(task)
	if err != nil {
		return err
	}

	query := s.rebind(`INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			check_type = excluded.check_type,
			selector = excluded.selector,
			json_path = excluded.json_path,
			presence = excluded.presence,
			check_interval = excluded.check_interval,
			last_check = excluded.last_check,
			last_content_hash = excluded.last_content_hash,
			last_value = excluded.last_value,
			enabled = excluded.enabled,
			created_at = excluded.created_at,
			headers = excluded.headers`)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to upsert task")
		return common.NewPersistenceError("upsert task", err)
	}
	return nil
}

// InsertTaskIfMissing inserts task unless a task with the same id exists.
// It reports whether a row was written.
func (s *Store) InsertTaskIfMissing(ctx context.Context, task models.MonitorTask) (bool, error) {
	args, err := taskArgs(task)
	if err != nil {
		return false, err
	}

	query := s.rebind(`INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to insert task")
		return false, common.NewPersistenceError("insert task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, common.NewPersistenceError("insert task", err)
	}
	return n > 0, nil
}

// GetTask loads one task. It returns models.ErrRecordNotFound when absent.
func (s *Store) GetTask(ctx context.Context, id string) (models.MonitorTask, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MonitorTask{}, models.ErrRecordNotFound
	}
	if err != nil {
		return models.MonitorTask{}, common.NewPersistenceError("get task", err)
	}
	return task, nil
}

// ListTasks returns tasks ordered by creation time.
func (s *Store) ListTasks(ctx context.Context, enabledOnly bool) ([]models.MonitorTask, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []interface{}
	if enabledOnly {
		query += ` WHERE enabled = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, common.NewPersistenceError("list tasks", err)
	}
	defer rows.Close()

	var tasks []models.MonitorTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping unreadable task row")
			continue
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list tasks", err)
	}
	return tasks, nil
}

// DeleteTask removes a task. Its events and snapshots are kept.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return common.NewPersistenceError("delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.NewPersistenceError("delete task", err)
	}
	if n == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

// UpdateTask changes a task's definition. The last check time is kept. The
// stored comparable is kept only while the strategy still extracts the same
// thing; otherwise it is cleared so the next check records a new baseline.
func (s *Store) UpdateTask(ctx context.Context, task models.MonitorTask) (err error) {
	if err := task.Validate(); err != nil {
		return common.NewValidationError("task", task.ID, err.Error())
	}
	headers, err := encodeHeaders(task.Headers)
	if err != nil {
		return err
	}
	selector, jsonPath, presence := models.StrategyFields(task.Strategy)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewPersistenceError("begin task update", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := scanTask(tx.QueryRowContext(ctx, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), task.ID))
	if errors.Is(err, sql.ErrNoRows) {
		err = models.ErrRecordNotFound
		return err
	}
	if err != nil {
		return common.NewPersistenceError("update task", err)
	}

	query := `UPDATE tasks SET name = ?, url = ?, check_type = ?, selector = ?,
		json_path = ?, presence = ?, check_interval = ?, enabled = ?, headers = ?`
	if !models.SameStrategy(current.Strategy, task.Strategy) {
		query += `, last_content_hash = NULL, last_value = NULL`
	}
	query += ` WHERE id = ?`

	if _, err = tx.ExecContext(ctx, s.rebind(query),
		task.Name, task.URL, string(task.CheckType()), selector, jsonPath, presence,
		int64(task.CheckInterval/time.Second), task.Enabled, headers, task.ID); err != nil {
		s.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to update task")
		return common.NewPersistenceError("update task", err)
	}
	if err = tx.Commit(); err != nil {
		return common.NewPersistenceError("commit task update", err)
	}
	return nil
}

// SetTaskEnabled toggles whether the scheduler considers a task.
func (s *Store) SetTaskEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE tasks SET enabled = ? WHERE id = ?`), enabled, id)
	if err != nil {
		return common.NewPersistenceError("update task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

func taskArgs(task models.MonitorTask) ([]interface{}, error) {
	if err := task.Validate(); err != nil {
		return nil, common.NewValidationError("task", task.ID, err.Error())
	}

	selector, jsonPath, presence := models.StrategyFields(task.Strategy)

	headers, err := encodeHeaders(task.Headers)
	if err != nil {
		return nil, err
	}

	createdAt := task.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return []interface{}{
		task.ID,
		task.Name,
		task.URL,
		string(task.CheckType()),
		selector,
		jsonPath,
		presence,
		int64(task.CheckInterval / time.Second),
		nullableTime(task.LastCheck),
		nullableString(task.LastContentHash),
		nullableString(task.LastValue),
		task.Enabled,
		formatTime(createdAt),
		headers,
	}, nil
}

func scanTask(row rowScanner) (models.MonitorTask, error) {
	var (
		task                         models.MonitorTask
		checkType                    string
		selector, jsonPath, presence sql.NullString
		intervalSeconds              int64
		lastCheck, hash, value       sql.NullString
		createdAt                    string
		headers                      sql.NullString
	)

	err := row.Scan(&task.ID, &task.Name, &task.URL, &checkType, &selector, &jsonPath, &presence,
		&intervalSeconds, &lastCheck, &hash, &value, &task.Enabled, &createdAt, &headers)
	if err != nil {
		return models.MonitorTask{}, err
	}

	task.Strategy, err = models.NewCheckStrategy(models.CheckType(checkType), selector.String, jsonPath.String, presence.String)
	if err != nil {
		return models.MonitorTask{}, fmt.Errorf("task %s: %w", task.ID, err)
	}
	task.CheckInterval = time.Duration(intervalSeconds) * time.Second

	if lastCheck.Valid {
		t, err := parseTime(lastCheck.String)
		if err != nil {
			return models.MonitorTask{}, fmt.Errorf("task %s: bad last_check: %w", task.ID, err)
		}
		task.LastCheck = &t
	}
	task.LastContentHash = stringPtr(hash)
	task.LastValue = stringPtr(value)

	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.MonitorTask{}, fmt.Errorf("task %s: bad created_at: %w", task.ID, err)
	}

	if headers.Valid && headers.String != "" {
		if err := json.Unmarshal([]byte(headers.String), &task.Headers); err != nil {
			return models.MonitorTask{}, fmt.Errorf("task %s: bad headers: %w", task.ID, err)
		}
	}
	return task, nil
}

func encodeHeaders(headers map[string]string) (sql.NullString, error) {
	if len(headers) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(headers)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode headers: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
