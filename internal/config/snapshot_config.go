package config

// SnapshotConfig defines where raw content is kept when a change is detected.
type SnapshotConfig struct {
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty" validate:"omitempty,blobbackend"`
	BaseDir string `json:"base_dir,omitempty" yaml:"base_dir,omitempty"`
	Bucket  string `json:"bucket,omitempty" yaml:"bucket,omitempty" validate:"required_if=Backend gcs"`
	Prefix  string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// NewDefaultSnapshotConfig creates default snapshot configuration
func NewDefaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		Backend: DefaultSnapshotBackend,
		BaseDir: DefaultSnapshotBaseDir,
	}
}
