package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/aleister1102/dataspy/internal/httpclient"
	"github.com/aleister1102/dataspy/internal/logger"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/aleister1102/dataspy/internal/monitor"
	"github.com/aleister1102/dataspy/internal/notifier"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

// app is the wired process: config, logger, store and monitoring service.
type app struct {
	cfg     *config.GlobalConfig
	logger  zerolog.Logger
	store   *datastore.Store
	service *monitor.MonitoringService
}

func loadConfig(flags *globalFlags) (*config.GlobalConfig, zerolog.Logger, error) {
	if flags.envFile != "" {
		if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, zerolog.Nop(), fmt.Errorf("loading env file %s: %w", flags.envFile, err)
		}
	}

	bootLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	cfg, err := config.LoadGlobalConfig(flags.configPath, bootLogger)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if flags.logLevel != "" {
		cfg.LogConfig.LogLevel = flags.logLevel
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, zerolog.Nop(), err
	}

	log, err := logger.New(cfg.LogConfig)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, log, nil
}

// newApp opens storage and builds the monitoring service. Seed tasks from
// the config are registered unless an id is already stored.
func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, log, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	store, err := datastore.Open(ctx, cfg.StorageConfig, log)
	if err != nil {
		return nil, err
	}
	blobs, err := datastore.NewBlobStore(ctx, cfg.SnapshotConfig, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	client, err := httpclient.NewHTTPClientBuilder(log).WithMonitorConfig(cfg.MonitorConfig).Build()
	if err != nil {
		closeBlobStore(blobs, log)
		store.Close()
		return nil, err
	}

	service := monitor.NewMonitoringService(cfg.MonitorConfig, monitor.ServiceDeps{
		Store:      store,
		Blobs:      blobs,
		Fetcher:    client,
		Dispatcher: notifier.NewDispatcherFromConfig(cfg.NotificationConfig, client, log),
	}, log)

	seeds, err := seedTasks(cfg.Tasks, cfg.MonitorConfig, time.Now())
	if err != nil {
		service.Close()
		return nil, err
	}
	if err := service.Init(ctx, seeds); err != nil {
		service.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: log, store: store, service: service}, nil
}

func (a *app) Close() {
	if err := a.service.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Shutdown finished with errors")
	}
}

// closeBlobStore releases blob backends that hold a client, such as GCS.
func closeBlobStore(blobs datastore.BlobStore, log zerolog.Logger) {
	if closer, ok := blobs.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close blob store")
		}
	}
}

func seedTasks(specs []models.TaskSpec, mc config.MonitorConfig, now time.Time) ([]models.MonitorTask, error) {
	tasks := make([]models.MonitorTask, 0, len(specs))
	for i, spec := range specs {
		spec.ID = spec.SeedID()
		if spec.CheckIntervalSeconds <= 0 {
			spec.CheckIntervalSeconds = mc.DefaultCheckIntervalSeconds
		}
		if err := config.ValidateTaskSpec(spec); err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		task, err := spec.ToTask(now)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
