package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ntphong404/rasa-control/internal/config"
	"github.com/ntphong404/rasa-control/internal/history"
	"github.com/ntphong404/rasa-control/internal/metrics"
	"github.com/ntphong404/rasa-control/internal/publisher"
	"github.com/ntphong404/rasa-control/internal/supervisor"
	"github.com/ntphong404/rasa-control/internal/training"
)

// Router provides embeddable HTTP handlers for the control plane.
// Endpoints (under basePath):
//
//	POST /run-command      body: {main, expand, working_dir}
//	POST /rasa-run         body: {expand, working_dir}
//	POST /run-actions      body: {expand}
//	POST /run-model        body: {model}
//	GET  /health
//	GET  /list-actions
//	POST /push-actions     body: {actions}
//	GET  /list-models
//	POST /upload-model     body: {url}
//	POST /train            body: {modelName, firetune, actions, nlu, stories, rules, domain}
//	GET  /training-status
//	POST /stop-training
//	GET  /training-history query: limit
//	GET  /minio-models
//	GET  /healthz
//	GET  /metrics
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	cfg      *config.Config
	trainer  *training.Trainer
	sup      *supervisor.Supervisor
	pub      *publisher.Publisher
	hist     history.Sink
	basePath string
	probe    *http.Client
	fetch    *http.Client
}

// NewRouter constructs a Router with a configurable basePath.
// hist may be nil when training history is disabled.
func NewRouter(cfg *config.Config, trainer *training.Trainer, sup *supervisor.Supervisor, pub *publisher.Publisher, hist history.Sink) *Router {
	return &Router{
		cfg:      cfg,
		trainer:  trainer,
		sup:      sup,
		pub:      pub,
		hist:     hist,
		basePath: sanitizeBase(cfg.Server.BasePath),
		probe:    &http.Client{Timeout: 3 * time.Second},
		fetch:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/run-command", r.handleRunCommand)
	group.POST("/rasa-run", r.handleRasaRun)
	group.POST("/run-actions", r.handleRunActions)
	group.POST("/run-model", r.handleRunModel)
	group.GET("/health", r.handleHealth)
	group.GET("/list-actions", r.handleListActions)
	group.POST("/push-actions", r.handlePushActions)
	group.GET("/list-models", r.handleListModels)
	group.POST("/upload-model", r.handleFetchModel)
	group.POST("/train", r.handleTrain)
	group.GET("/training-status", r.handleTrainingStatus)
	group.POST("/stop-training", r.handleStopTraining)
	group.GET("/training-history", r.handleTrainingHistory)
	group.GET("/minio-models", r.handleMinioModels)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// The caller shuts it down via http.Server's Shutdown or Close.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

// actionServerSpec builds the process spec for the Rasa action server.
// Match tokens exclude the interpreter so differing python paths still match.
func (r *Router) actionServerSpec(expand []string) supervisor.Spec {
	main := r.cfg.Rasa.ActionMain()
	return supervisor.Spec{
		Name:    "rasa-actions",
		Command: r.cfg.Rasa.FullCommand(main, expand),
		Match:   main,
		WorkDir: r.cfg.Rasa.WorkDir,
		Env:     r.cfg.Rasa.Env,
		Log:     r.cfg.Rasa.ProcessLog,
	}
}
