// Package rasacontrol is a control plane for a Rasa conversational-AI
// stack: it supervises the runtime and action-server processes, orchestrates
// training runs and publishes finished model artifacts.
package rasacontrol

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ntphong404/rasa-control/internal/config"
	"github.com/ntphong404/rasa-control/internal/history"
	"github.com/ntphong404/rasa-control/internal/history/factory"
	"github.com/ntphong404/rasa-control/internal/metrics"
	"github.com/ntphong404/rasa-control/internal/publisher"
	"github.com/ntphong404/rasa-control/internal/server"
	"github.com/ntphong404/rasa-control/internal/supervisor"
	"github.com/ntphong404/rasa-control/internal/training"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = config.Config

type Spec = supervisor.Spec

type TrainingStatus = training.Status

type HistorySink = history.Sink

// LoadConfig reads a TOML config file with environment overrides applied.
// An empty path yields the built-in defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Control wires the supervisor, trainer and publisher into one embeddable
// unit. It provides a stable public API for embedding.
type Control struct {
	cfg     *config.Config
	sup     *supervisor.Supervisor
	trainer *training.Trainer
	pub     *publisher.Publisher
	hist    history.Sink
}

func New(cfg *Config) (*Control, error) {
	normalizePaths(cfg)

	sup := supervisor.New()
	pub := publisher.New(cfg.Minio, cfg.Mongo)

	var hist history.Sink
	if cfg.History.DSN != "" {
		sink, err := factory.NewSinkFromDSN(cfg.History.DSN)
		if err != nil {
			return nil, err
		}
		hist = sink
	}

	main := cfg.Rasa.TrainMain()
	trainer := training.NewTrainer(training.Config{
		WorkDir:      cfg.Rasa.WorkDir,
		DataDir:      cfg.Rasa.DataDir,
		ModelsDir:    cfg.Rasa.ModelsDir,
		ActionsFile:  cfg.Rasa.ActionsFile,
		TrainCommand: cfg.Rasa.FullCommand(main, nil),
		TrainMatch:   main,
		ActionServerSpec: supervisor.Spec{
			Name:    "rasa-actions",
			Command: cfg.Rasa.FullCommand(cfg.Rasa.ActionMain(), nil),
			Match:   cfg.Rasa.ActionMain(),
			WorkDir: cfg.Rasa.WorkDir,
			Env:     cfg.Rasa.Env,
			Log:     cfg.Rasa.ProcessLog,
		},
	}, training.NewRegistry(), sup, pub, hist)

	return &Control{cfg: cfg, sup: sup, trainer: trainer, pub: pub, hist: hist}, nil
}

func (c *Control) Supervisor() *supervisor.Supervisor { return c.sup }
func (c *Control) Trainer() *training.Trainer         { return c.trainer }

// TrainingStatus returns a snapshot of the current training run state.
func (c *Control) TrainingStatus() TrainingStatus {
	return c.trainer.Registry().Snapshot()
}

// CheckConnections probes the object-storage and document-store backends.
// Failures are logged only; the control plane starts regardless.
func (c *Control) CheckConnections(ctx context.Context) {
	c.pub.CheckConnections(ctx)
}

// Handler returns the HTTP control surface as a mountable handler.
func (c *Control) Handler() http.Handler {
	return server.NewRouter(c.cfg, c.trainer, c.sup, c.pub, c.hist).Handler()
}

// NewHTTPServer starts a standalone HTTP server exposing the control surface.
func (c *Control) NewHTTPServer(addr string) *http.Server {
	return server.NewServer(addr, server.NewRouter(c.cfg, c.trainer, c.sup, c.pub, c.hist))
}

// Close releases the publisher and history sink connections.
func (c *Control) Close(ctx context.Context) error {
	c.pub.Close(ctx)
	if c.hist != nil {
		return c.hist.Close()
	}
	return nil
}

// RegisterMetrics registers the control-plane collectors (public facade).
func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }

// RegisterDefaultMetrics registers with the default Prometheus registry.
func RegisterDefaultMetrics() error { return metrics.RegisterDefault() }

// normalizePaths anchors relative artifact paths to the Rasa working
// directory so the HTTP layer and the trainer agree on locations.
func normalizePaths(cfg *Config) {
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(cfg.Rasa.WorkDir, p)
	}
	cfg.Rasa.DataDir = anchor(cfg.Rasa.DataDir)
	cfg.Rasa.ModelsDir = anchor(cfg.Rasa.ModelsDir)
	cfg.Rasa.ActionsFile = anchor(cfg.Rasa.ActionsFile)
}
