package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ntphong404/rasa-control/internal/logger"
)

// Config is the top-level TOML structure for the daemon.
type Config struct {
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Rasa    RasaConfig    `toml:"rasa" mapstructure:"rasa"`
	Minio   MinioConfig   `toml:"minio" mapstructure:"minio"`
	Mongo   MongoConfig   `toml:"mongo" mapstructure:"mongo"`
	History HistoryConfig `toml:"history" mapstructure:"history"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

// RasaConfig describes how the Rasa executables are invoked and where their
// artifacts live.
type RasaConfig struct {
	Python      string        `toml:"python" mapstructure:"python"`
	WorkDir     string        `toml:"workdir" mapstructure:"workdir"`
	DataDir     string        `toml:"data_dir" mapstructure:"data_dir"`
	ModelsDir   string        `toml:"models_dir" mapstructure:"models_dir"`
	ActionsFile string        `toml:"actions_file" mapstructure:"actions_file"`
	ServerPort  int           `toml:"server_port" mapstructure:"server_port"`
	ActionPort  int           `toml:"action_port" mapstructure:"action_port"`
	RunArgs     []string      `toml:"run_args" mapstructure:"run_args"`
	Env         []string      `toml:"env" mapstructure:"env"`
	ProcessLog  logger.Config `toml:"process_log" mapstructure:"process_log"`
}

type MinioConfig struct {
	Endpoint  string `toml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `toml:"access_key" mapstructure:"access_key"`
	SecretKey string `toml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `toml:"bucket" mapstructure:"bucket"`
	Secure    bool   `toml:"secure" mapstructure:"secure"`
}

type MongoConfig struct {
	URI        string `toml:"uri" mapstructure:"uri"`
	Database   string `toml:"database" mapstructure:"database"`
	Collection string `toml:"collection" mapstructure:"collection"`
}

type HistoryConfig struct {
	// DSN selects the training history sink backend; empty disables history.
	// Supported: sqlite:// path, postgres://, clickhouse://.
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	Color bool   `toml:"color" mapstructure:"color"`
}

// SupportedModelExtensions are the archive suffixes accepted for model files.
var SupportedModelExtensions = []string{".tar.gz", ".tar.zip"}

// Default returns the configuration matching the original deployment
// constants when no config file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":5000"},
		Rasa: RasaConfig{
			Python:      "python3",
			WorkDir:     ".",
			DataDir:     "data",
			ModelsDir:   "models",
			ActionsFile: "actions/actions.py",
			ServerPort:  5005,
			ActionPort:  5055,
			RunArgs:     []string{"--enable-api", "--cors", "*"},
		},
		Minio: MinioConfig{
			Endpoint: "localhost:9000",
			Bucket:   "model",
		},
		Mongo: MongoConfig{
			Database:   "rasa",
			Collection: "models",
		},
		Log: LogConfig{Level: "info", Color: true},
	}
}

// Load reads a TOML config file and applies environment overrides for
// credentials. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides keeps the original deployment convention: MinIO and Mongo
// credentials may be supplied via environment variables, taking precedence
// over the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		c.Minio.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		c.Minio.Bucket = v
	}
	if v := os.Getenv("MINIO_SECURE"); v != "" {
		c.Minio.Secure = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		c.Mongo.Database = v
	}
	if v := os.Getenv("MODELS_COLLECTION"); v != "" {
		c.Mongo.Collection = v
	}
}

// Command signature helpers. The three fixed invocations mirror the original
// control plane; Match tokens deliberately exclude the interpreter so that
// differing python paths still match.

func (r RasaConfig) RunMain() []string    { return []string{"-m", "rasa", "run"} }
func (r RasaConfig) ActionMain() []string { return []string{"-m", "rasa", "run", "actions"} }
func (r RasaConfig) TrainMain() []string  { return []string{"-m", "rasa", "train"} }

// FullCommand prepends the configured interpreter to main+expand tokens.
func (r RasaConfig) FullCommand(main, expand []string) []string {
	out := make([]string, 0, 1+len(main)+len(expand))
	out = append(out, r.Python)
	out = append(out, main...)
	out = append(out, expand...)
	return out
}

// HasSupportedExtension reports whether name ends with one of the accepted
// model archive suffixes.
func HasSupportedExtension(name string) bool {
	for _, ext := range SupportedModelExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
