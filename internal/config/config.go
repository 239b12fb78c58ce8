package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	NATS        NATSConfig        `yaml:"nats"`
	MinIO       MinIOConfig       `yaml:"minio"`
	Upload      UploadConfig      `yaml:"upload"`
	Vision      VisionConfig      `yaml:"vision"`
	Sources     []SourceConfig    `yaml:"sources"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Retention   RetentionConfig   `yaml:"retention"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port    int         `yaml:"port"`
	APIKeys []APIKeyRef `yaml:"api_keys"`
}

// APIKeyRef binds a static API key to a caller identity.
type APIKeyRef struct {
	Key    string `yaml:"key"`
	UserID string `yaml:"user_id"`
	Role   string `yaml:"role"` // "officer" or "admin"
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type UploadConfig struct {
	MaxBytes     int64    `yaml:"max_bytes"`
	AllowedTypes []string `yaml:"allowed_types"`
}

type VisionConfig struct {
	ModelsDir          string  `yaml:"models_dir"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
	// MatchThreshold is the minimum cosine similarity for the direct
	// encoding comparison endpoint to declare a match.
	MatchThreshold float64 `yaml:"match_threshold"`
	EmotionModel   bool    `yaml:"emotion_model"` // load the optional emotion predictor
}

// SourceConfig describes one external lookup source. Priority orders sources
// for rank tie-breaks: lower value wins.
type SourceConfig struct {
	ID       string        `yaml:"id"`
	Kind     string        `yaml:"kind"` // "reverse_image", "profile_search", "watchlist"
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	Priority int           `yaml:"priority"`
	Enabled  bool          `yaml:"enabled"`
	// Threshold is the minimum cosine similarity, in [0,1], a watchlist
	// hit must reach to be returned. Ignored by the HTTP kinds.
	Threshold float64 `yaml:"threshold"`
}

type AggregationConfig struct {
	Deadline      time.Duration `yaml:"deadline"`
	MaxResults    int           `yaml:"max_results"`
	NameThreshold float64       `yaml:"name_threshold"` // dedup string-similarity threshold
}

type RetentionConfig struct {
	MaxAge time.Duration `yaml:"max_age"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// A .env file next to the binary is honoured when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = 16 << 20
	}
	if len(cfg.Upload.AllowedTypes) == 0 {
		cfg.Upload.AllowedTypes = []string{"image/jpeg", "image/png", "image/gif"}
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Vision.MatchThreshold == 0 {
		cfg.Vision.MatchThreshold = 0.6
	}
	if cfg.Vision.MatchThreshold > 1 {
		cfg.Vision.MatchThreshold = 1
	}
	if cfg.Aggregation.Deadline == 0 {
		cfg.Aggregation.Deadline = 10 * time.Second
	}
	if cfg.Aggregation.MaxResults == 0 {
		cfg.Aggregation.MaxResults = 50
	}
	if cfg.Aggregation.NameThreshold == 0 {
		cfg.Aggregation.NameThreshold = 0.9
	}
	if cfg.Retention.MaxAge == 0 {
		cfg.Retention.MaxAge = 90 * 24 * time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Timeout == 0 {
			cfg.Sources[i].Timeout = 5 * time.Second
		}
		if cfg.Sources[i].Kind == "watchlist" && cfg.Sources[i].Threshold == 0 {
			cfg.Sources[i].Threshold = 0.4
		}
	}
}

func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if s.ID == "" {
			return fmt.Errorf("source with empty id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
		switch s.Kind {
		case "reverse_image", "profile_search", "watchlist":
		default:
			return fmt.Errorf("source %q: unknown kind %q", s.ID, s.Kind)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FS_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FS_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FS_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FS_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FS_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FS_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FS_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FS_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FS_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FS_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FS_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("FS_UPLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Upload.MaxBytes = n
		}
	}
	if v := os.Getenv("FS_AGGREGATION_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Aggregation.Deadline = d
		}
	}
}

// EnabledSources returns the configured sources that are switched on,
// preserving file order.
func (c *Config) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
