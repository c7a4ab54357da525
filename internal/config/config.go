package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default locations, relative to the working directory.
const (
	DefaultConfigPath = "configs/config.yaml"
	DefaultInputPath  = "./static/sample_flow_logs.txt"
	DefaultOutputPath = "./output.txt"
	DefaultLookupPath = "./static/lookup.csv"
)

// PathsConfig names the three files a run touches.
type PathsConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	Lookup string `yaml:"lookup"`
}

// ParserConfig controls how unparsable flow log lines are handled.
type ParserConfig struct {
	// Strict aborts the run on the first malformed line instead of skipping it.
	Strict bool `yaml:"strict"`
	// LogSkipped emits a warning for every skipped line.
	LogSkipped    bool   `yaml:"log_skipped"`
	UntaggedLabel string `yaml:"untagged_label"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
	Caller     bool   `yaml:"caller"`
}

// MetricsConfig holds the run metrics export settings.
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	TextfilePath   string `yaml:"textfile_path"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// ClickHouseConfig holds the connection details for the ClickHouse writer.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MinioConfig holds the object storage settings for the minio writer.
type MinioConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	ObjectPrefix    string `yaml:"object_prefix"`
	Secure          bool   `yaml:"secure"`
}

// NATSConfig holds the settings for the nats writer.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// SnapshotConfig holds the settings for the snapshot writer.
type SnapshotConfig struct {
	RootPath string `yaml:"root_path"`
}

// TextConfig holds the settings for the text report writer.
// An empty path falls back to paths.output.
type TextConfig struct {
	Path string `yaml:"path"`
}

// WriterDef defines a single report writer.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Text       TextConfig       `yaml:"text"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Minio      MinioConfig      `yaml:"minio"`
	NATS       NATSConfig       `yaml:"nats"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Parser  ParserConfig  `yaml:"parser"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Writers []WriterDef   `yaml:"writers"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Input:  DefaultInputPath,
			Output: DefaultOutputPath,
			Lookup: DefaultLookupPath,
		},
		Parser: ParserConfig{
			LogSkipped:    true,
			UntaggedLabel: "untagged",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Job: "flowtagger",
		},
		Writers: []WriterDef{{Type: "text", Enabled: true}},
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// Keys missing from the file keep their default values.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filePath, err)
	}
	return cfg, nil
}

// LoadOrDefault loads filePath, falling back to Default when the file does not exist
// and optional is set.
func LoadOrDefault(filePath string, optional bool) (*Config, error) {
	cfg, err := LoadConfig(filePath)
	if err != nil && optional && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.Paths.Input == "" {
		return errors.New("paths.input must not be empty")
	}
	if c.Paths.Lookup == "" {
		return errors.New("paths.lookup must not be empty")
	}
	if c.Parser.UntaggedLabel == "" {
		return errors.New("parser.untagged_label must not be empty")
	}

	enabled := 0
	for i, w := range c.Writers {
		if !w.Enabled {
			continue
		}
		enabled++
		if w.Type == "" {
			return fmt.Errorf("writers[%d]: type must not be empty", i)
		}
		if w.Type == "text" && w.Text.Path == "" && c.Paths.Output == "" {
			return fmt.Errorf("writers[%d]: text writer needs text.path or paths.output", i)
		}
	}
	if enabled == 0 {
		return errors.New("at least one writer must be enabled")
	}
	return nil
}

// TextPath returns the destination of a text writer definition.
func (c *Config) TextPath(def WriterDef) string {
	if def.Text.Path != "" {
		return def.Text.Path
	}
	return c.Paths.Output
}
