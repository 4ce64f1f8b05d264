package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/aleister1102/dataspy/internal/differ"
	"github.com/aleister1102/dataspy/internal/extractor"
	"github.com/aleister1102/dataspy/internal/httpclient"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fetcher retrieves the raw content of a task URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (*httpclient.FetchResult, error)
}

// SnapshotReader looks up the last stored snapshot of a task.
type SnapshotReader interface {
	LatestSnapshot(ctx context.Context, taskID string) (models.Snapshot, error)
}

// CheckExecutor runs a single check of one task: fetch, extract, classify
// and persist.
type CheckExecutor struct {
	fetcher   Fetcher
	extractor *extractor.Extractor
	registry  *TaskRegistry
	blobs     datastore.BlobStore
	snapshots SnapshotReader
	summaries *differ.SummaryBuilder
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
	logger    zerolog.Logger
}

// ExecutorOption customizes a CheckExecutor.
type ExecutorOption func(*CheckExecutor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *CheckExecutor) { e.now = now }
}

// WithFetchTimeout sets the per-fetch timeout.
func WithFetchTimeout(d time.Duration) ExecutorOption {
	return func(e *CheckExecutor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithSnapshotReader enables line diffs against the previous snapshot.
func WithSnapshotReader(r SnapshotReader) ExecutorOption {
	return func(e *CheckExecutor) { e.snapshots = r }
}

// NewCheckExecutor creates an executor.
func NewCheckExecutor(fetcher Fetcher, registry *TaskRegistry, blobs datastore.BlobStore, logger zerolog.Logger, opts ...ExecutorOption) *CheckExecutor {
	e := &CheckExecutor{
		fetcher:   fetcher,
		extractor: extractor.New(),
		registry:  registry,
		blobs:     blobs,
		summaries: differ.NewSummaryBuilder(logger),
		timeout:   30 * time.Second,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    logger.With().Str("component", "CheckExecutor").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute checks the task referenced by ref. It never panics; every failure
// is reported through the returned outcome.
func (e *CheckExecutor) Execute(ctx context.Context, ref TaskRef) (outcome models.CheckOutcome) {
	task := ref.Task
	startedAt := e.now().UTC()
	outcome = models.CheckOutcome{TaskID: task.ID, StartedAt: startedAt}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("task_id", task.ID).Interface("panic", r).Msg("Check panicked")
			outcome = e.failed(outcome, models.FailureInternal, fmt.Errorf("check panicked: %v", r))
		}
		outcome.Duration = e.now().Sub(startedAt)
	}()

	fetched, err := e.fetcher.Fetch(ctx, task.URL, task.Headers, e.timeout)
	if err != nil {
		e.recordAttempt(ctx, ref, startedAt)
		return e.failed(outcome, models.FailureFetch, err)
	}
	if fetched.Truncated {
		e.logger.Warn().Str("task_id", task.ID).Int("bytes", len(fetched.Body)).Msg("Response body truncated to max content size")
	}

	current, err := e.extractor.Extract(task.Strategy, fetched.Body)
	if err != nil {
		e.recordAttempt(ctx, ref, startedAt)
		return e.failed(outcome, models.FailureExtraction, err)
	}

	previous := task.PreviousComparable()
	hash, value := current.Encode()
	commit := datastore.CheckCommit{
		TaskID:           task.ID,
		LastCheck:        startedAt,
		UpdateComparable: true,
		LastContentHash:  hash,
		LastValue:        value,
	}

	status := models.StatusBaseline
	if previous != nil {
		status = models.StatusNoChange
		if changeType, changed := differ.Classify(task.Strategy, previous, current); changed {
			status = models.StatusChanged
			// past this point the check is not cancellable
			persistCtx := context.WithoutCancel(ctx)
			commit.Event, commit.Snapshot, err = e.buildChange(persistCtx, task, changeType, previous, current, fetched, startedAt)
			if err != nil {
				return e.failed(outcome, models.FailurePersistence, err)
			}
		}
	}

	if _, err := e.registry.CommitCheck(context.WithoutCancel(ctx), ref.Revision, commit); err != nil {
		if errors.Is(err, ErrStaleTask) {
			return e.failed(outcome, models.FailureStale, err)
		}
		return e.failed(outcome, models.FailurePersistence, err)
	}

	outcome.Status = status
	outcome.Event = commit.Event
	outcome.Snapshot = commit.Snapshot
	return outcome
}

func (e *CheckExecutor) buildChange(
	ctx context.Context,
	task models.MonitorTask,
	changeType models.ChangeType,
	previous *models.Comparable,
	current models.Comparable,
	fetched *httpclient.FetchResult,
	at time.Time,
) (*models.ChangeEvent, *models.Snapshot, error) {
	var snapshot *models.Snapshot
	if isHashBased(task.Strategy) {
		contentHash := extractor.HashContent(fetched.Body)
		key := datastore.SnapshotKey(task.ID, contentHash, fetched.ContentType)
		handle, err := e.blobs.Put(ctx, key, fetched.Body)
		if err != nil {
			return nil, nil, common.WrapError(err, "failed to store snapshot")
		}
		snapshot = &models.Snapshot{
			ID:          e.newID(),
			TaskID:      task.ID,
			Timestamp:   at,
			ContentHash: contentHash,
			ContentPath: handle,
		}
	}

	summary := e.summaries.Summarize(differ.SummaryInput{
		Strategy:        task.Strategy,
		ChangeType:      changeType,
		Previous:        previous,
		Current:         current,
		PreviousContent: e.previousContent(ctx, task.ID),
		CurrentContent:  fetched.Body,
		SourceURL:       task.URL,
	})

	event := &models.ChangeEvent{
		ID:          e.newID(),
		TaskID:      task.ID,
		Timestamp:   at,
		ChangeType:  changeType,
		OldValue:    differ.Describe(previous),
		NewValue:    differ.Describe(&current),
		DiffSummary: summary,
	}
	return event, snapshot, nil
}

// previousContent loads the raw content of the last snapshot. Missing
// content only makes the summary less detailed.
func (e *CheckExecutor) previousContent(ctx context.Context, taskID string) []byte {
	if e.snapshots == nil || e.blobs == nil {
		return nil
	}
	snap, err := e.snapshots.LatestSnapshot(ctx, taskID)
	if err != nil {
		if !errors.Is(err, models.ErrRecordNotFound) {
			e.logger.Debug().Err(err).Str("task_id", taskID).Msg("Could not look up previous snapshot")
		}
		return nil
	}
	data, err := e.blobs.Get(ctx, snap.ContentPath)
	if err != nil {
		e.logger.Debug().Err(err).Str("task_id", taskID).Str("path", snap.ContentPath).Msg("Could not read previous snapshot")
		return nil
	}
	return data
}

// recordAttempt moves LastCheck after a failed fetch or extraction so the
// task waits a full interval before the next try.
func (e *CheckExecutor) recordAttempt(ctx context.Context, ref TaskRef, at time.Time) {
	_, err := e.registry.CommitCheck(context.WithoutCancel(ctx), ref.Revision, datastore.CheckCommit{
		TaskID:    ref.Task.ID,
		LastCheck: at,
	})
	if err != nil && !errors.Is(err, ErrStaleTask) {
		e.logger.Error().Err(err).Str("task_id", ref.Task.ID).Msg("Failed to record check attempt")
	}
}

func (e *CheckExecutor) failed(o models.CheckOutcome, kind models.FailureKind, err error) models.CheckOutcome {
	o.Status = models.StatusFailed
	o.ErrKind = kind
	o.Err = err
	o.Event = nil
	o.Snapshot = nil
	return o
}

func isHashBased(strategy models.CheckStrategy) bool {
	switch strategy.(type) {
	case models.PriceStrategy:
		return false
	}
	return true
}
