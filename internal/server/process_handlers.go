package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ntphong404/rasa-control/internal/config"
	"github.com/ntphong404/rasa-control/internal/supervisor"
)

type runCommandRequest struct {
	Main       []string `json:"main"`
	Expand     []string `json:"expand"`
	WorkingDir string   `json:"working_dir"`
}

func (r *Router) handleRunCommand(c *gin.Context) {
	var req runCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid 'command'. Must be a list of strings.", nil)
		return
	}
	if len(req.Main) == 0 {
		badRequest(c, "Invalid 'command'. Must be a non-empty list of strings.", nil)
		return
	}
	wd := req.WorkingDir
	if wd == "" {
		wd = r.cfg.Rasa.WorkDir
	}
	full := r.cfg.Rasa.FullCommand(req.Main, req.Expand)
	spec := supervisor.Spec{
		Name:    "command",
		Command: full,
		Match:   req.Main,
		WorkDir: wd,
		Env:     r.cfg.Rasa.Env,
		Log:     r.cfg.Rasa.ProcessLog,
	}
	r.sup.TerminateMatching(spec)
	if err := r.sup.Launch(spec); err != nil {
		internalError(c, "Internal server error", gin.H{"error": err.Error()})
		return
	}
	respondOK(c, "Command started successfully", gin.H{
		"command":     strings.Join(full, " "),
		"working_dir": wd,
	})
}

type expandRequest struct {
	Expand     []string `json:"expand"`
	WorkingDir string   `json:"working_dir"`
}

func (r *Router) handleRasaRun(c *gin.Context) {
	var req expandRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "Invalid 'expand' format. Must be a list of strings.", nil)
		return
	}
	main := r.cfg.Rasa.RunMain()
	expand := req.Expand
	if expand == nil {
		expand = r.cfg.Rasa.RunArgs
	}
	wd := req.WorkingDir
	if wd == "" {
		wd = r.cfg.Rasa.WorkDir
	}
	full := r.cfg.Rasa.FullCommand(main, expand)
	spec := supervisor.Spec{
		Name:    "rasa-run",
		Command: full,
		Match:   main,
		WorkDir: wd,
		Env:     r.cfg.Rasa.Env,
		Log:     r.cfg.Rasa.ProcessLog,
	}
	r.sup.TerminateMatching(spec)
	if err := r.sup.Launch(spec); err != nil {
		internalError(c, "Rasa server start failed", gin.H{"error": err.Error()})
		return
	}
	respondOK(c, "Rasa server started successfully", gin.H{
		"command":     strings.Join(full, " "),
		"working_dir": wd,
		"main":        main,
		"expand":      expand,
	})
}

func (r *Router) handleRunActions(c *gin.Context) {
	var req expandRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "Invalid 'expand' format. Must be a list of strings.", nil)
		return
	}
	expand := req.Expand
	if expand == nil {
		expand = []string{}
	}
	spec := r.actionServerSpec(expand)
	if err := r.sup.Restart(spec); err != nil {
		internalError(c, "Actions server start failed", gin.H{"error": err.Error()})
		return
	}
	respondOK(c, "Actions server started successfully", gin.H{
		"command":     strings.Join(spec.Command, " "),
		"working_dir": spec.WorkDir,
		"main":        r.cfg.Rasa.ActionMain(),
		"expand":      expand,
		"port":        strconv.Itoa(r.cfg.Rasa.ActionPort),
	})
}

type runModelRequest struct {
	Model string `json:"model"`
}

func (r *Router) handleRunModel(c *gin.Context) {
	var req runModelRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Model == "" || !config.HasSupportedExtension(req.Model) {
		badRequest(c, "Invalid or missing model filename", nil)
		return
	}
	// the filename is joined into a path; reject anything with separators
	if filepath.Base(req.Model) != req.Model {
		badRequest(c, "Invalid or missing model filename", nil)
		return
	}
	modelPath := filepath.Join(r.cfg.Rasa.ModelsDir, req.Model)
	if _, err := os.Stat(modelPath); err != nil {
		notFound(c, fmt.Sprintf("Model file '%s' not found", req.Model))
		return
	}
	main := r.cfg.Rasa.RunMain()
	expand := append([]string{"--model", modelPath}, r.cfg.Rasa.RunArgs...)
	full := r.cfg.Rasa.FullCommand(main, expand)
	spec := supervisor.Spec{
		Name:    "rasa-run",
		Command: full,
		Match:   main,
		WorkDir: r.cfg.Rasa.WorkDir,
		Env:     r.cfg.Rasa.Env,
		Log:     r.cfg.Rasa.ProcessLog,
	}
	r.sup.TerminateMatching(spec)
	if err := r.sup.Launch(spec); err != nil {
		internalError(c, "Internal server error", gin.H{"error": err.Error()})
		return
	}
	respondOK(c, fmt.Sprintf("Model '%s' is now running", req.Model), gin.H{
		"model_file": req.Model,
		"model_path": modelPath,
		"status":     "running",
	})
}

func (r *Router) handleHealth(c *gin.Context) {
	respondOK(c, "Rasa health check completed", gin.H{
		"runtime":       r.probeRuntime(),
		"action_server": r.probeActionServer(),
	})
}

// probeRuntime polls the runtime's own status endpoint with a short timeout.
func (r *Router) probeRuntime() gin.H {
	url := fmt.Sprintf("http://localhost:%d/status", r.cfg.Rasa.ServerPort)
	resp, err := r.probe.Get(url)
	if err != nil {
		return gin.H{"status": "offline", "error": err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return gin.H{"status": "not_responding", "error": fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	var body struct {
		ModelFile string `json:"model_file"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.ModelFile == "" {
		body.ModelFile = "no model loaded"
	}
	return gin.H{"status": "running", "model_file": body.ModelFile}
}

func (r *Router) probeActionServer() gin.H {
	url := fmt.Sprintf("http://localhost:%d/health", r.cfg.Rasa.ActionPort)
	resp, err := r.probe.Get(url)
	if err != nil {
		return gin.H{"status": "offline", "error": err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return gin.H{"status": "not_responding", "error": fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return gin.H{"status": "running"}
}

func (r *Router) handleHealthz(c *gin.Context) {
	respondOK(c, "ok", gin.H{"status": "ok"})
}
