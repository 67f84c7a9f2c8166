package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/mgxrec/internal/errors"
	"github.com/vango-dev/mgxrec/pkg/protocol"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "mgxrec.json"

	// DefaultAddress is the default server listen address.
	DefaultAddress = "localhost:8080"

	// DefaultUploadDir is the default directory for stored recordings.
	DefaultUploadDir = "recs"

	// DefaultMaxUploadSize is the default upload limit (32MB).
	DefaultMaxUploadSize = 32 << 20

	// DefaultReadTimeout is the default server read timeout.
	DefaultReadTimeout = "30s"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "mgxrec"
)

// Config represents the complete mgxrec.json configuration.
type Config struct {
	// Decode contains stream decoding options.
	Decode DecodeConfig `json:"decode"`

	// Log contains logging options.
	Log LogConfig `json:"log"`

	// Server contains HTTP server options.
	Server ServerConfig `json:"server"`

	// Storage selects and configures the recording store.
	Storage StorageConfig `json:"storage"`

	// Metrics contains Prometheus options.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing contains OpenTelemetry options.
	Tracing TracingConfig `json:"tracing"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DecodeConfig contains stream decoding options.
type DecodeConfig struct {
	// SkipUnsupported keeps frames with unknown opcodes as raw bytes
	// instead of failing.
	SkipUnsupported bool `json:"skipUnsupported,omitempty"`

	// OldRecord reads the legacy Time record layout.
	OldRecord bool `json:"oldRecord,omitempty"`

	// MaxFrameLength is the largest accepted frame length.
	MaxFrameLength uint32 `json:"maxFrameLength,omitempty"`

	// MaxChatLength is the largest accepted chat message length.
	MaxChatLength uint32 `json:"maxChatLength,omitempty"`

	// UnitActionStateCutoff is the last save version with a one-byte unit
	// action state.
	UnitActionStateCutoff float32 `json:"unitActionStateCutoff,omitempty"`

	// Meta is the body metadata expected before the first action:
	// "none", "mgx" or "mgl".
	Meta string `json:"meta,omitempty"`

	// AllowUnresolved keeps going when a command reuses a selection that
	// was never made.
	AllowUnresolved bool `json:"allowUnresolved,omitempty"`
}

// LogConfig contains logging options.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// ServerConfig contains HTTP server options.
type ServerConfig struct {
	// Address is the listen address.
	Address string `json:"address,omitempty"`

	// MaxUploadSize is the largest accepted recording in bytes.
	MaxUploadSize int64 `json:"maxUploadSize,omitempty"`

	// ReadTimeout bounds reading a request (e.g., "30s").
	ReadTimeout string `json:"readTimeout,omitempty"`

	// Expiry removes stored recordings older than this (e.g., "24h").
	// Empty keeps them forever.
	Expiry string `json:"expiry,omitempty"`
}

// StorageConfig selects and configures the recording store.
type StorageConfig struct {
	// Backend is "disk" or "s3".
	Backend string `json:"backend,omitempty"`

	// Dir is the directory for the disk backend.
	Dir string `json:"dir,omitempty"`

	// Bucket, Prefix, Region and Endpoint configure the s3 backend.
	Bucket   string `json:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// MetricsConfig contains Prometheus options.
type MetricsConfig struct {
	// Enabled exposes /metrics and counts decoded actions.
	Enabled bool `json:"enabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry options.
type TracingConfig struct {
	// Enabled starts a span per stream and per command.
	Enabled bool `json:"enabled,omitempty"`

	// TracerName is the name passed to the tracer provider.
	TracerName string `json:"tracerName,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads mgxrec.json from dir.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C120").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				Wrap(err)
		}
		return nil, errors.New("C121").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("C121").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads mgxrec.json from dir, or returns defaults if there
// is none. A file that exists but does not parse is still an error.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		return New(), nil
	}
	return Load(dir)
}

// Save saves the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("C123").Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("C123").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path to the config file.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for missing fields.
func (c *Config) applyDefaults() {
	if c.Decode.MaxFrameLength == 0 {
		c.Decode.MaxFrameLength = protocol.DefaultMaxFrameLength
	}
	if c.Decode.MaxChatLength == 0 {
		c.Decode.MaxChatLength = protocol.DefaultMaxChatLength
	}
	if c.Decode.UnitActionStateCutoff == 0 {
		c.Decode.UnitActionStateCutoff = protocol.DefaultUnitActionStateCutoff
	}
	if c.Decode.Meta == "" {
		c.Decode.Meta = "none"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.MaxUploadSize == 0 {
		c.Server.MaxUploadSize = DefaultMaxUploadSize
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = DefaultReadTimeout
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "disk"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = DefaultUploadDir
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultNamespace
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	invalid := func(detail string) error {
		return errors.New("C122").WithDetail(detail)
	}

	if c.Decode.MaxFrameLength > protocol.HardMaxFrameLength {
		return invalid("decode.maxFrameLength must not exceed 16MB")
	}
	switch c.Decode.Meta {
	case "none", "mgx", "mgl":
	default:
		return invalid(`decode.meta must be "none", "mgx" or "mgl"`)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return invalid(err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid(`log.format must be "text" or "json"`)
	}
	if c.Server.MaxUploadSize < 0 {
		return invalid("server.maxUploadSize must not be negative")
	}
	if _, err := c.ReadTimeout(); err != nil {
		return invalid("server.readTimeout: " + err.Error())
	}
	if _, err := c.Expiry(); err != nil {
		return invalid("server.expiry: " + err.Error())
	}
	switch c.Storage.Backend {
	case "disk":
	case "s3":
		if c.Storage.Bucket == "" {
			return invalid("storage.bucket is required for the s3 backend")
		}
	default:
		return errors.New("S200").WithDetail("storage.backend " + c.Storage.Backend + ` is not "disk" or "s3"`)
	}
	return nil
}

// ReaderOptions returns the decode options for a protocol.Reader.
func (c *Config) ReaderOptions(logger *slog.Logger) protocol.ReaderOptions {
	return protocol.ReaderOptions{
		Limits: protocol.Limits{
			MaxFrameLength: c.Decode.MaxFrameLength,
			MaxChatLength:  c.Decode.MaxChatLength,
		},
		SkipUnsupported: c.Decode.SkipUnsupported,
		OldRecord:       c.Decode.OldRecord,
		Logger:          logger,
	}
}

// UnitActionStateWidth returns the width of the unit action state field
// for a save version, using the configured cutoff.
func (c *Config) UnitActionStateWidth(version float32) int {
	return protocol.UnitActionStateWidth(version, c.Decode.UnitActionStateCutoff)
}

// ReadTimeout returns server.readTimeout as a duration.
func (c *Config) ReadTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.ReadTimeout)
}

// Expiry returns server.expiry as a duration, or 0 if unset.
func (c *Config) Expiry() (time.Duration, error) {
	if c.Server.Expiry == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Server.Expiry)
}

// UploadPath returns the absolute path to the disk store directory.
func (c *Config) UploadPath() string {
	if filepath.IsAbs(c.Storage.Dir) {
		return c.Storage.Dir
	}
	return filepath.Join(c.Dir(), c.Storage.Dir)
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, err
	}
	return level, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindRoot walks up directories to find the nearest mgxrec.json.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("C120").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the nearest mgxrec.json above the working
// directory, or defaults if there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindRoot(wd)
	if err != nil {
		return New(), nil
	}

	return Load(root)
}
