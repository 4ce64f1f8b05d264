package config

// StorageConfig defines configuration for the durable store
type StorageConfig struct {
	Driver           string `json:"driver,omitempty" yaml:"driver,omitempty" validate:"omitempty,storagedriver"`
	SQLitePath       string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	DSN              string `json:"dsn,omitempty" yaml:"dsn,omitempty" validate:"required_if=Driver postgres"`
	BusyTimeoutMs    int    `json:"busy_timeout_ms,omitempty" yaml:"busy_timeout_ms,omitempty" validate:"omitempty,min=0"`
	MaxOpenConns     int    `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty" validate:"omitempty,min=1"`
	CompressionCodec string `json:"compression_codec,omitempty" yaml:"compression_codec,omitempty" validate:"omitempty,oneof=zstd snappy gzip none"`
}

// NewDefaultStorageConfig creates default storage configuration
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:           DefaultStorageDriver,
		SQLitePath:       DefaultSQLitePath,
		BusyTimeoutMs:    DefaultBusyTimeoutMs,
		CompressionCodec: DefaultStorageCompressionCodec,
	}
}
