package config

const (
	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3
	DefaultMaxLogAgeDays = 28

	// Monitor Defaults
	DefaultUserAgent                = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultTickIntervalSeconds      = 60
	DefaultTaskCheckIntervalSeconds = 3600
	DefaultHTTPTimeoutSeconds       = 30
	DefaultMaxConcurrentChecks      = 5
	DefaultMaxContentSize           = 5 * 1024 * 1024
	DefaultMaxMemoryPercent         = 90.0
	DefaultMaxRedirects             = 10

	// Storage Defaults
	DefaultStorageDriver           = "sqlite"
	DefaultSQLitePath              = "data/dataspy.db"
	DefaultBusyTimeoutMs           = 5000
	DefaultStorageCompressionCodec = "zstd"

	// Snapshot Defaults
	DefaultSnapshotBackend = "file"
	DefaultSnapshotBaseDir = "data/snapshots"

	// Notification Defaults
	DefaultNotifyRetryAttempts = 3
	DefaultNotifyRetryDelayMs  = 1000
	DefaultSMTPPort            = 587

	// API Defaults
	DefaultAPIListenAddr = "127.0.0.1:8080"

	// ConfigPathEnv overrides the config file location.
	ConfigPathEnv = "DATASPY_CONFIG_PATH"
)
