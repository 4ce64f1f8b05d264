package datastore

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		check_type TEXT NOT NULL,
		selector TEXT,
		json_path TEXT,
		presence TEXT,
		check_interval INTEGER NOT NULL DEFAULT 3600,
		last_check TEXT,
		last_content_hash TEXT,
		last_value TEXT,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		headers TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		change_type TEXT NOT NULL,
		old_value TEXT,
		new_value TEXT,
		diff_summary TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_task_time ON events (task_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_events_time ON events (timestamp)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		content_path TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_task_time ON snapshots (task_id, timestamp)`,
}
