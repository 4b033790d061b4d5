package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "COMPLIANCE_CONFIG"

	defaultAddr           = ":8080"
	defaultUploadDir      = "uploads"
	defaultMaxUploadBytes = 16 << 20
	defaultBulkWorkers    = 2
	defaultBulkQueueSize  = 64
	defaultBulkFiles      = 4
	defaultVertexRegion   = "us-central1"
	defaultVertexModel    = "gemini-1.5-pro"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Compliance ComplianceConfig `yaml:"compliance"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Bulk       BulkConfig       `yaml:"bulk"`
	Vertex     VertexConfig     `yaml:"vertex"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	UploadDir      string `yaml:"uploadDir"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type ComplianceConfig struct {
	DefaultTypes []string `yaml:"defaultTypes"`
	RulesFile    string   `yaml:"rulesFile"`
}

// ExtractionConfig lists decoders to mark unavailable at startup, e.g.
// "pdfcpu" to force the baseline PDF scanner.
type ExtractionConfig struct {
	DisabledDecoders []string `yaml:"disabledDecoders"`
}

type BulkConfig struct {
	Workers         int `yaml:"workers"`
	QueueSize       int `yaml:"queueSize"`
	FileConcurrency int `yaml:"fileConcurrency"`
}

// VertexConfig enables the Gemini suggestion generator when ProjectID is set.
type VertexConfig struct {
	ProjectID string `yaml:"projectId"`
	Region    string `yaml:"region"`
	Model     string `yaml:"model"`
}

func (v VertexConfig) Enabled() bool { return v.ProjectID != "" }

// Load layers defaults, the optional YAML file named by COMPLIANCE_CONFIG,
// .env and the process environment, in that order.
func Load() Config {
	_ = godotenv.Load()
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config: cannot read file, using defaults")
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("config: cannot parse file, using defaults")
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           defaultAddr,
			UploadDir:      defaultUploadDir,
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Log: LogConfig{Level: "info"},
		Compliance: ComplianceConfig{
			DefaultTypes: []string{"GDPR", "HIPAA"},
		},
		Bulk: BulkConfig{
			Workers:         defaultBulkWorkers,
			QueueSize:       defaultBulkQueueSize,
			FileConcurrency: defaultBulkFiles,
		},
		Vertex: VertexConfig{
			Region: defaultVertexRegion,
			Model:  defaultVertexModel,
		},
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.URL != "" {
		base.Database.URL = override.Database.URL
	}
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.UploadDir != "" {
		base.Server.UploadDir = override.Server.UploadDir
	}
	if override.Server.MaxUploadBytes > 0 {
		base.Server.MaxUploadBytes = override.Server.MaxUploadBytes
	}
	if override.Log.Level != "" {
		base.Log.Level = override.Log.Level
	}
	if override.Log.Pretty {
		base.Log.Pretty = true
	}
	if len(override.Compliance.DefaultTypes) > 0 {
		base.Compliance.DefaultTypes = override.Compliance.DefaultTypes
	}
	if override.Compliance.RulesFile != "" {
		base.Compliance.RulesFile = override.Compliance.RulesFile
	}
	if len(override.Extraction.DisabledDecoders) > 0 {
		base.Extraction.DisabledDecoders = override.Extraction.DisabledDecoders
	}
	if override.Bulk.Workers > 0 {
		base.Bulk.Workers = override.Bulk.Workers
	}
	if override.Bulk.QueueSize > 0 {
		base.Bulk.QueueSize = override.Bulk.QueueSize
	}
	if override.Bulk.FileConcurrency > 0 {
		base.Bulk.FileConcurrency = override.Bulk.FileConcurrency
	}
	if override.Vertex.ProjectID != "" {
		base.Vertex.ProjectID = override.Vertex.ProjectID
	}
	if override.Vertex.Region != "" {
		base.Vertex.Region = override.Vertex.Region
	}
	if override.Vertex.Model != "" {
		base.Vertex.Model = override.Vertex.Model
	}
	return base
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		c.Server.UploadDir = v
	}
	if v := envInt("MAX_UPLOAD_BYTES"); v > 0 {
		c.Server.MaxUploadBytes = int64(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		c.Log.Pretty = v == "true" || v == "1"
	}
	if v := envList("DEFAULT_COMPLIANCE_TYPES"); len(v) > 0 {
		c.Compliance.DefaultTypes = v
	}
	if v := os.Getenv("RULES_FILE"); v != "" {
		c.Compliance.RulesFile = v
	}
	if v := envList("DISABLED_DECODERS"); len(v) > 0 {
		c.Extraction.DisabledDecoders = v
	}
	if v := envInt("BULK_WORKERS"); v > 0 {
		c.Bulk.Workers = v
	}
	if v := envInt("BULK_QUEUE_SIZE"); v > 0 {
		c.Bulk.QueueSize = v
	}
	if v := envInt("BULK_FILE_CONCURRENCY"); v > 0 {
		c.Bulk.FileConcurrency = v
	}
	if v := os.Getenv("VERTEX_PROJECT_ID"); v != "" {
		c.Vertex.ProjectID = v
	}
	if v := os.Getenv("VERTEX_REGION"); v != "" {
		c.Vertex.Region = v
	}
	if v := os.Getenv("VERTEX_MODEL"); v != "" {
		c.Vertex.Model = v
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("config: ignoring non-integer value")
		return 0
	}
	return n
}

func envList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
